// Package metrics is the bridge's Prometheus facade: a package-level
// registry guarded by IsEnabled/GetRegistry, and one metrics struct built
// with promauto.With(registry) each time InitRegistry is called.
// Every Record* method is nil-receiver-safe so call sites never need to
// check whether metrics are enabled.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	m        *Metrics
)

// InitRegistry builds the bridge's metric set against a fresh registry.
// Calling it more than once replaces the previous registry; tests call it
// once per test to get isolated counters.
func InitRegistry() *Metrics {
	reg := prometheus.NewRegistry()

	built := &Metrics{
		AGVSessions: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "bridge_agv_sessions",
			Help: "Current session state per (serial, port_role); 1 for the active state, 0 otherwise.",
		}, []string{"serial", "port_role", "state"}),

		FramesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_frames_total",
			Help: "Total frames decoded per (serial, port_role, direction).",
		}, []string{"serial", "port_role", "direction"}),

		FrameDecodeErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_frame_decode_errors_total",
			Help: "Total received frame bodies that failed to decode per (serial, port_role).",
		}, []string{"serial", "port_role"}),

		ReconnectAttemptsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_reconnect_attempts_total",
			Help: "Total reconnect attempts per AGV serial.",
		}, []string{"serial"}),

		ReconnectSuccessesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_reconnect_successes_total",
			Help: "Total successful reconnects per AGV serial.",
		}, []string{"serial"}),

		MQTTPublishTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_mqtt_publish_total",
			Help: "Total MQTT publishes per topic kind.",
		}, []string{"topic_kind"}),

		MQTTPublishErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_mqtt_publish_errors_total",
			Help: "Total MQTT publish errors per topic kind.",
		}, []string{"topic_kind"}),

		DownlinkDroppedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_downlink_dropped_total",
			Help: "Total downlink sends dropped because the target session was not connected.",
		}, []string{"serial", "port_role"}),
	}

	mu.Lock()
	registry = reg
	m = built
	mu.Unlock()
	return built
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the active Prometheus registry, or nil if metrics
// haven't been initialised.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Get returns the active Metrics instance, or nil. Every method on a nil
// *Metrics is a no-op, so callers can hold onto the result of Get without
// re-checking IsEnabled on every call.
func Get() *Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return m
}

// Metrics holds every Prometheus collector the bridge exports (spec §4.11).
type Metrics struct {
	AGVSessions             *prometheus.GaugeVec
	FramesTotal             *prometheus.CounterVec
	FrameDecodeErrorsTotal  *prometheus.CounterVec
	ReconnectAttemptsTotal  *prometheus.CounterVec
	ReconnectSuccessesTotal *prometheus.CounterVec
	MQTTPublishTotal        *prometheus.CounterVec
	MQTTPublishErrorsTotal  *prometheus.CounterVec
	DownlinkDroppedTotal    *prometheus.CounterVec
}

func (m *Metrics) SetSessionState(serial, portRole, state string, allStates []string) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		m.AGVSessions.WithLabelValues(serial, portRole, s).Set(v)
	}
}

func (m *Metrics) RecordFrame(serial, portRole, direction string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(serial, portRole, direction).Inc()
}

func (m *Metrics) RecordFrameDecodeError(serial, portRole string) {
	if m == nil {
		return
	}
	m.FrameDecodeErrorsTotal.WithLabelValues(serial, portRole).Inc()
}

func (m *Metrics) RecordReconnectAttempt(serial string) {
	if m == nil {
		return
	}
	m.ReconnectAttemptsTotal.WithLabelValues(serial).Inc()
}

func (m *Metrics) RecordReconnectSuccess(serial string) {
	if m == nil {
		return
	}
	m.ReconnectSuccessesTotal.WithLabelValues(serial).Inc()
}

func (m *Metrics) RecordMQTTPublish(topicKind string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.MQTTPublishErrorsTotal.WithLabelValues(topicKind).Inc()
		return
	}
	m.MQTTPublishTotal.WithLabelValues(topicKind).Inc()
}

func (m *Metrics) RecordDownlinkDropped(serial, portRole string) {
	if m == nil {
		return
	}
	m.DownlinkDroppedTotal.WithLabelValues(serial, portRole).Inc()
}
