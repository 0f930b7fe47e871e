package vda5050

// Visualization is the `.../visualization` topic payload: a lightweight,
// high-frequency subset of State carrying only position and velocity, per
// spec §4.6 ("visualization: same agvPosition and velocity as above; all
// other fields omitted").
type Visualization struct {
	Header
	AGVPosition *NodePosition `json:"agvPosition,omitempty"`
	Velocity    *Velocity     `json:"velocity,omitempty"`
}

func (v Visualization) Validate() error {
	return v.Header.Validate()
}
