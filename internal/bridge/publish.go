package bridge

import (
	"encoding/json"
	"time"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// startPublishers launches the four scheduled publisher tasks from spec
// §4.8, one per uplink topic, each on its own configured period.
func (s *Supervisor) startPublishers() {
	s.wg.Add(4)
	go s.publishLoop(KindState, s.cfg.PublishPeriods.State, s.publishStateTick)
	go s.publishLoop(KindVisualization, s.cfg.PublishPeriods.Visualization, s.publishVisualizationTick)
	go s.publishLoop(KindConnection, s.cfg.PublishPeriods.Connection, s.publishConnectionTick)
	go s.publishLoop(KindFactsheet, s.cfg.PublishPeriods.Factsheet, s.publishFactsheetTick)
}

func (s *Supervisor) publishLoop(kind Kind, period time.Duration, tick func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			tick()
		}
	}
}

func (s *Supervisor) forEachAGV(fn func(rt *agvRuntime)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rt := range s.agvs {
		fn(rt)
	}
}

func (s *Supervisor) publishStateTick() {
	s.forEachAGV(func(rt *agvRuntime) {
		rt.cacheMu.Lock()
		state := rt.lastState
		rt.cacheMu.Unlock()
		if state == nil {
			return
		}
		s.publishMQTT(rt, KindState, state)
	})
}

func (s *Supervisor) publishVisualizationTick() {
	s.forEachAGV(func(rt *agvRuntime) {
		rt.cacheMu.Lock()
		vis := rt.lastVis
		rt.cacheMu.Unlock()
		if vis == nil {
			return
		}
		s.publishMQTT(rt, KindVisualization, vis)
	})
}

// publishConnectionTick is a no-op tick: connection uplinks are emitted
// only on connect/disconnect edges (publishConnection), not on a timer.
// The publisher task still exists per spec §4.8's four-task description,
// ready to re-announce the last known state if a future requirement needs
// periodic connection heartbeats.
func (s *Supervisor) publishConnectionTick() {}

func (s *Supervisor) publishFactsheetTick() {
	s.forEachAGV(func(rt *agvRuntime) {
		rt.mu.Lock()
		connected := len(rt.sessions) > 0
		rt.mu.Unlock()
		if connected {
			s.publishFactsheet(rt)
		}
	})
}

// publishConnection emits a connection uplink immediately (connect/
// disconnect edge), independent of the periodic publisher tasks.
func (s *Supervisor) publishConnection(rt *agvRuntime, state string) {
	rt.cacheMu.Lock()
	changed := rt.connState != state
	rt.connState = state
	rt.cacheMu.Unlock()
	if !changed {
		return
	}

	conn := vda5050.Connection{
		Header:          vda5050.NewHeader(rt.nextHeaderID(), rt.descriptor.Manufacturer, rt.descriptor.Serial),
		ConnectionState: state,
	}
	s.publishMQTT(rt, KindConnection, conn)
}

// publishFactsheet derives a static factsheet from the AGV descriptor's
// physical parameters and protocol limits (spec §4.6) and publishes it.
func (s *Supervisor) publishFactsheet(rt *agvRuntime) {
	d := rt.descriptor
	fs := vda5050.Factsheet{
		Version:      vda5050.Version,
		Manufacturer: d.Manufacturer,
		SerialNumber: d.Serial,
		TypeSpecification: vda5050.TypeSpecification{
			SeriesName:   d.TypeSpec.SeriesName,
			AGVKinematic: d.TypeSpec.AGVKinematic,
			AGVClass:     d.TypeSpec.AGVClass,
			MaxLoadMass:  d.TypeSpec.MaxLoadMass,
		},
		PhysicalParameters: vda5050.PhysicalParameters{
			SpeedMax:        d.Physical.SpeedMax,
			AccelerationMax: d.Physical.AccelerationMax,
			Width:           d.Physical.Width,
			Length:          d.Physical.Length,
		},
		ProtocolLimits: vda5050.ProtocolLimits{
			MaxStringLens: d.ProtocolLims.MaxStringLen,
			MaxArrayLens:  d.ProtocolLims.MaxArrayLen,
		},
	}
	s.publishMQTT(rt, KindFactsheet, fs)
}

func (s *Supervisor) publishMQTT(rt *agvRuntime, kind Kind, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Warn("failed to marshal uplink payload",
			logging.KeySerial, rt.descriptor.Serial, logging.KeyTopicKind, string(kind), logging.KeyErr, err)
		return
	}

	topic := Topic(rt.descriptor.Manufacturer, rt.descriptor.Serial, kind)
	err = s.mqtt.Publish(topic, s.cfg.Broker.QoS, false, payload)
	s.metric.RecordMQTTPublish(string(kind), err)
	if err != nil {
		logging.Warn("mqtt publish failed", logging.KeyTopic, topic, logging.KeyErr, err)
	}
}
