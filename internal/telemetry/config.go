package telemetry

// Config holds OpenTelemetry tracer configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool
	SampleRate     float64
}

func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "vda5050-bridge",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// Attribute keys for bridge spans, kept as named constants so any call site
// that tags a span uses the same key for the same concept. The supervisor's
// spans carry only their name; no call site sets these keys.
const (
	AttrAGVSerial     = "bridge.agv.serial"
	AttrManufacturer  = "bridge.agv.manufacturer"
	AttrPortRole      = "bridge.port_role"
	AttrMessageType   = "bridge.message_type"
	AttrTopicKind     = "bridge.topic_kind"
)
