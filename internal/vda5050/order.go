package vda5050

import "fmt"

// Node is one waypoint of an order graph.
type Node struct {
	NodeID           string        `json:"nodeId"`
	SequenceID       int           `json:"sequenceId"`
	NodeDescription  string        `json:"nodeDescription,omitempty"`
	Released         bool          `json:"released"`
	NodePosition     *NodePosition `json:"nodePosition,omitempty"`
	Actions          []Action      `json:"actions"`
}

// Edge connects two consecutive nodes in an order graph.
type Edge struct {
	EdgeID            string   `json:"edgeId"`
	SequenceID        int      `json:"sequenceId"`
	EdgeDescription   string   `json:"edgeDescription,omitempty"`
	Released          bool     `json:"released"`
	StartNodeID       string   `json:"startNodeId"`
	EndNodeID         string   `json:"endNodeId"`
	MaxSpeed          float64  `json:"maxSpeed,omitempty"`
	MaxHeight         float64  `json:"maxHeight,omitempty"`
	MinHeight         float64  `json:"minHeight,omitempty"`
	Orientation       float64  `json:"orientation,omitempty"`
	Direction         string   `json:"direction,omitempty"`
	RotationAllowed   bool     `json:"rotationAllowed,omitempty"`
	MaxRotationSpeed  float64  `json:"maxRotationSpeed,omitempty"`
	Trajectory        any      `json:"trajectory,omitempty"`
	Actions           []Action `json:"actions"`
}

// Order is the `.../order` topic payload (C4 input).
type Order struct {
	Header
	OrderID      string `json:"orderId"`
	OrderUpdateID int    `json:"orderUpdateId"`
	ZoneSetID    string `json:"zoneSetId,omitempty"`
	Nodes        []Node `json:"nodes"`
	Edges        []Edge `json:"edges"`
}

// Validate checks the structural invariants C4 depends on: node/edge
// sequenceIds must be contiguous starting at 0 and alternate node/edge/node,
// per spec §4.4's "well-formed order graph" precondition.
func (o Order) Validate() error {
	if err := o.Header.Validate(); err != nil {
		return err
	}
	if o.OrderID == "" {
		return errMissingField("orderId")
	}
	if len(o.Nodes) == 0 {
		return fmt.Errorf("vda5050: order %q has no nodes", o.OrderID)
	}
	if len(o.Edges) != len(o.Nodes)-1 {
		return fmt.Errorf("vda5050: order %q has %d nodes and %d edges, expected %d edges",
			o.OrderID, len(o.Nodes), len(o.Edges), len(o.Nodes)-1)
	}
	for i, n := range o.Nodes {
		if n.SequenceID != i*2 {
			return fmt.Errorf("vda5050: order %q node %q has sequenceId %d, expected %d",
				o.OrderID, n.NodeID, n.SequenceID, i*2)
		}
	}
	for i, e := range o.Edges {
		if e.SequenceID != i*2+1 {
			return fmt.Errorf("vda5050: order %q edge %q has sequenceId %d, expected %d",
				o.OrderID, e.EdgeID, e.SequenceID, i*2+1)
		}
	}
	return nil
}
