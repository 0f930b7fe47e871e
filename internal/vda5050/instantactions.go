package vda5050

// InstantActions is the `.../instantActions` topic payload (C5 input).
type InstantActions struct {
	Header
	Actions []Action `json:"actions"`
}

func (ia InstantActions) Validate() error {
	return ia.Header.Validate()
}
