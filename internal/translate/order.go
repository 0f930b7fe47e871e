// Package translate holds the three pure translation functions that sit
// between the VDA5050 wire model and the vendor TCP wire model: the order
// translator (C4), the instant-action translator (C5), and the uplink
// translator (C6). None of them perform I/O; each is a function of its
// input plus the static action registry, exactly as required for the
// session and supervisor layers to reason about them independently of
// transport.
package translate

import (
	"sort"
	"strconv"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// MoveTaskStep is one entry of a move-task list sent to the movement port
// role (either a move between two positions, or an in-place action).
type MoveTaskStep struct {
	SourceID  string `json:"source_id"`
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Operation string `json:"operation,omitempty"`
}

const selfPosition = "SELF_POSITION"

var orderOpByAction = map[string]string{
	"pick":        registry.OpJackLoad,
	"drop":        registry.OpJackUnload,
	"translate":   registry.OpTranslate,
	"turn":        registry.OpTurn,
	"rotateLoad":  registry.OpRotateLoad,
	"softEmc":     registry.OpEmergency,
	"startPause":  registry.OpPause,
	"stopPause":   registry.OpResume,
	"cancelOrder": registry.OpCancel,
	"reloc":       registry.OpReloc,
	"cancelReloc": registry.OpCancelReloc,
	"clearErrors": registry.OpClearErrors,
}

// taskIDCounter implements the "{orderId}_{counter}" rule from spec §4.4:
// the counter is scoped to a single translation call and starts at 1.
type taskIDCounter struct {
	orderID string
	n       int
}

func (c *taskIDCounter) next() string {
	c.n++
	return c.orderID + "_" + strconv.Itoa(c.n)
}

// OrderToMoveTasks implements C4: it walks the order graph in the exact
// emission order specified by spec §4.4 and returns the resulting
// move-task list, ready to frame onto the movement port role with message
// type 3066.
func OrderToMoveTasks(order vda5050.Order) []MoveTaskStep {
	counter := &taskIDCounter{orderID: order.OrderID}

	pending := make(map[string][]string, len(order.Nodes))
	nodeOrder := make([]string, 0, len(order.Nodes))
	for _, n := range order.Nodes {
		ops := actionsToOps(n.Actions)
		if len(ops) > 0 {
			pending[n.NodeID] = ops
			nodeOrder = append(nodeOrder, n.NodeID)
		}
	}

	edges := append([]vda5050.Edge(nil), order.Edges...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].SequenceID < edges[j].SequenceID })

	var out []MoveTaskStep

	emitPending := func(nodeID string) {
		for _, op := range pending[nodeID] {
			out = append(out, MoveTaskStep{
				SourceID:  selfPosition,
				ID:        selfPosition,
				TaskID:    counter.next(),
				Operation: op,
			})
		}
		delete(pending, nodeID)
	}

	for _, e := range edges {
		emitPending(e.StartNodeID)

		edgeOps := actionsToOps(e.Actions)
		out = append(out, MoveTaskStep{
			SourceID: e.StartNodeID,
			ID:       e.EndNodeID,
			TaskID:   counter.next(),
		})
		for _, op := range edgeOps {
			out = append(out, MoveTaskStep{
				SourceID:  selfPosition,
				ID:        selfPosition,
				TaskID:    counter.next(),
				Operation: op,
			})
		}
	}

	if len(edges) > 0 {
		emitPending(edges[len(edges)-1].EndNodeID)
	}

	// Any node an incident edge never touched (isolated node, or a
	// single-node order with no edges at all) still needs its actions
	// emitted, in node-iteration order.
	for _, nodeID := range nodeOrder {
		emitPending(nodeID)
	}

	return out
}

func actionsToOps(actions []vda5050.Action) []string {
	var ops []string
	for _, a := range actions {
		if op, ok := orderOpByAction[a.ActionType]; ok {
			ops = append(ops, op)
		}
	}
	return ops
}
