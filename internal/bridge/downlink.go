package bridge

import (
	"context"
	"encoding/json"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/mqttclient"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/translate"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// handleOrderMessage is the MQTT subscription callback for the order
// wildcard. It runs inline on the MQTT receive task, per spec §5: the
// downlink translation step is synchronous, only the send to the session
// socket is a non-blocking bounded write.
func (s *Supervisor) handleOrderMessage(msg mqttclient.Message) {
	ctx, end := s.traceSpan(context.Background(), "bridge.downlink.order")
	defer end()

	parsed, err := ParseTopic(msg.Topic)
	if err != nil || parsed.Kind != KindOrder {
		logging.Warn("dropping message on malformed order topic", logging.KeyTopic, msg.Topic)
		return
	}

	var order vda5050.Order
	if err := json.Unmarshal(msg.Payload, &order); err != nil {
		logging.Warn("dropping malformed order payload", logging.KeySerial, parsed.Serial, logging.KeyErr, err)
		return
	}
	if err := order.Validate(); err != nil {
		logging.Warn("dropping invalid order graph", logging.KeySerial, parsed.Serial, logging.KeyErr, err)
		return
	}

	steps := translate.OrderToMoveTasks(order)
	s.sendToSession(ctx, parsed.Serial, registry.PortMovement, registry.MsgMovementOrder,
		map[string]any{"move_task_list": steps})
}

// handleInstantActionsMessage is the MQTT subscription callback for the
// instantActions wildcard.
func (s *Supervisor) handleInstantActionsMessage(msg mqttclient.Message) {
	ctx, end := s.traceSpan(context.Background(), "bridge.downlink.instantActions")
	defer end()

	parsed, err := ParseTopic(msg.Topic)
	if err != nil || parsed.Kind != KindInstantActions {
		logging.Warn("dropping message on malformed instantActions topic", logging.KeyTopic, msg.Topic)
		return
	}

	var ia vda5050.InstantActions
	if err := json.Unmarshal(msg.Payload, &ia); err != nil {
		logging.Warn("dropping malformed instantActions payload", logging.KeySerial, parsed.Serial, logging.KeyErr, err)
		return
	}

	egress, factsheetRequested := translate.InstantActionsToEgress(ia)
	for _, e := range egress {
		s.sendRawToSession(ctx, parsed.Serial, e.PortRole, e.MessageType, e.Body)
	}

	if factsheetRequested {
		s.mu.RLock()
		rt := s.agvs[parsed.Serial]
		s.mu.RUnlock()
		if rt != nil {
			s.publishFactsheet(rt)
		}
	}
}

// sendToSession marshals body to JSON and routes it to (serial, role,
// messageType). A missing or disconnected session is a logged warning,
// never an error returned to the caller — sends are best-effort per §4.8.
func (s *Supervisor) sendToSession(ctx context.Context, serial string, role registry.PortRole, messageType uint16, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		logging.Warn("failed to marshal downlink body", logging.KeySerial, serial, logging.KeyErr, err)
		return
	}
	s.sendRawToSession(ctx, serial, role, messageType, payload)
}

func (s *Supervisor) sendRawToSession(_ context.Context, serial string, role registry.PortRole, messageType uint16, payload []byte) {
	s.mu.RLock()
	rt := s.agvs[serial]
	s.mu.RUnlock()
	if rt == nil {
		logging.Warn("downlink for unknown AGV", logging.KeySerial, serial)
		return
	}

	rt.mu.Lock()
	sess, ok := rt.sessions[role]
	rt.mu.Unlock()
	if !ok {
		logging.Warn("downlink dropped, port not connected",
			logging.KeySerial, serial, logging.KeyPortRole, string(role))
		s.metric.RecordDownlinkDropped(serial, string(role))
		return
	}

	if err := sess.Send(messageType, json.RawMessage(payload)); err != nil {
		logging.Warn("downlink send failed",
			logging.KeySerial, serial, logging.KeyPortRole, string(role), logging.KeyErr, err)
		s.metric.RecordDownlinkDropped(serial, string(role))
		return
	}

	s.metric.RecordFrame(serial, string(role), "downlink")
}
