package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFrame("AGV1", "movement", "uplink")
		m.RecordReconnectAttempt("AGV1")
		m.RecordMQTTPublish("state", nil)
	})
}

func TestRecordFrameIncrementsCounter(t *testing.T) {
	built := InitRegistry()
	require.True(t, IsEnabled())

	built.RecordFrame("AGV1", "movement", "downlink")
	built.RecordFrame("AGV1", "movement", "downlink")

	got := testutil.ToFloat64(built.FramesTotal.WithLabelValues("AGV1", "movement", "downlink"))
	assert.Equal(t, 2.0, got)
}
