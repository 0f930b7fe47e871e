package vda5050

// Connection state values.
const (
	ConnectionOnline          = "ONLINE"
	ConnectionOffline         = "OFFLINE"
	ConnectionBroken          = "CONNECTIONBROKEN"
)

// Connection is the `.../connection` topic payload (C6 output), published
// by the supervisor on AGV connect and disconnect edges.
type Connection struct {
	Header
	ConnectionState string `json:"connectionState"`
}

func (c Connection) Validate() error {
	if err := c.Header.Validate(); err != nil {
		return err
	}
	switch c.ConnectionState {
	case ConnectionOnline, ConnectionOffline, ConnectionBroken:
		return nil
	default:
		return errMissingField("connectionState")
	}
}
