package bridge

import (
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/frame"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/translate"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// handleUplinkFrame is the per-session frame callback (runs on that
// session's single receive task, so frames from one socket are processed
// in wire order). Only state-push frames (message type 9300) update the
// cache; anything else is logged and dropped.
func (s *Supervisor) handleUplinkFrame(rt *agvRuntime, role registry.PortRole, f frame.Frame) {
	s.metric.RecordFrame(rt.descriptor.Serial, string(role), "uplink")

	if role != registry.PortStatePush || f.MessageType != registry.MsgStatePush {
		logging.Debug("ignoring non-state-push uplink frame",
			logging.KeySerial, rt.descriptor.Serial,
			logging.KeyPortRole, string(role),
			logging.KeyMessageType, f.MessageType,
		)
		return
	}

	vs, err := translate.ParseVendorState(f.Body)
	if err != nil {
		logging.Warn("dropping malformed state-push body", logging.KeySerial, rt.descriptor.Serial, logging.KeyErr, err)
		s.metric.RecordFrameDecodeError(rt.descriptor.Serial, string(role))
		return
	}

	header := vda5050.NewHeader(rt.nextHeaderID(), rt.descriptor.Manufacturer, rt.descriptor.Serial)
	up := translate.VendorStateToUplink(vs, header)

	rt.cacheMu.Lock()
	rt.lastState = &up.State
	rt.lastVis = &up.Visualization
	rt.cacheMu.Unlock()
}
