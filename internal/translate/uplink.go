package translate

import (
	"encoding/json"
	"math"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// VendorState is the loosely-typed vendor state-push body (message type
// 9300). Only the fields C6 maps are named; any other field in the body is
// ignored on decode.
type VendorState struct {
	VehicleID    string   `json:"vehicle_id"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	Angle        *float64 `json:"angle"`
	Yaw          *float64 `json:"yaw"`
	CurrentMap   string   `json:"current_map"`
	Confidence   float64  `json:"confidence"`
	Vx           float64  `json:"vx"`
	Vy           float64  `json:"vy"`
	W            float64  `json:"w"`
	BatteryLevel float64  `json:"battery_level"`
	Voltage      float64  `json:"voltage"`
	Charging     bool     `json:"charging"`
	CurrentStation string `json:"current_station"`
	TaskStatus   string   `json:"task_status"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	Emergency    bool     `json:"emergency"`
	SoftEmc      bool     `json:"soft_emc"`
	Blocked      bool     `json:"blocked"`
	IsStop       *bool    `json:"is_stop"`
}

// ParseVendorState decodes a state-push frame body.
func ParseVendorState(body []byte) (VendorState, error) {
	var vs VendorState
	err := json.Unmarshal(body, &vs)
	return vs, err
}

// Uplink bundles the records C6 derives from one vendor state push. State
// and Visualization are always populated; Connection/Factsheet are emitted
// only on their own triggers (connect/disconnect edges, factsheetRequest)
// and are handled by the supervisor directly, not by this function.
type Uplink struct {
	State         vda5050.State
	Visualization vda5050.Visualization
}

// VendorStateToUplink implements the `state`/`visualization` half of C6.
// header supplies the VDA5050 Header fields (headerId/timestamp/manufacturer
// /serialNumber) the supervisor stamps onto every outbound record.
func VendorStateToUplink(vs VendorState, header vda5050.Header) Uplink {
	theta := normalizeTheta(vs.Angle, vs.Yaw)

	pos := &vda5050.NodePosition{
		X:                   vs.X,
		Y:                   vs.Y,
		Theta:               theta,
		MapID:               vs.CurrentMap,
		LocalizationScore:   clamp01(vs.Confidence),
		PositionInitialized: true,
	}
	vel := &vda5050.Velocity{Vx: vs.Vx, Vy: vs.Vy, Omega: vs.W}

	var nodeStates []vda5050.NodeState
	if vs.CurrentStation != "" {
		nodeStates = []vda5050.NodeState{{NodeID: vs.CurrentStation}}
	}

	var actionStates []vda5050.ActionState
	if vs.TaskStatus != "" {
		actionStates = []vda5050.ActionState{{ActionStatus: mapTaskStatus(vs.TaskStatus)}}
	}

	var errs []vda5050.Error
	for _, e := range vs.Errors {
		errs = append(errs, vda5050.Error{ErrorType: e, ErrorLevel: vda5050.ErrorLevelFatal})
	}
	for _, w := range vs.Warnings {
		errs = append(errs, vda5050.Error{ErrorType: w, ErrorLevel: vda5050.ErrorLevelWarning})
	}

	eStop := vda5050.EStopAutoack
	if vs.Emergency || vs.SoftEmc {
		eStop = vda5050.EStopTriggered
	}

	paused := false
	driving := vs.Vx != 0 || vs.Vy != 0 || vs.W != 0
	if vs.IsStop != nil {
		paused = *vs.IsStop
		driving = !*vs.IsStop
	}

	state := vda5050.State{
		Header:         header,
		LastNodeID:     vs.CurrentStation,
		Driving:        driving,
		Paused:         paused,
		OperatingMode:  operatingMode(vs),
		NodeStates:     nodeStates,
		EdgeStates:     []vda5050.EdgeState{},
		AGVPosition:    pos,
		Velocity:       vel,
		ActionStates:   actionStates,
		BatteryState: vda5050.BatteryState{
			BatteryCharge:  vs.BatteryLevel,
			BatteryVoltage: vs.Voltage,
			Charging:       vs.Charging,
		},
		Errors: errs,
		SafetyState: vda5050.SafetyState{
			EStop:          eStop,
			FieldViolation: vs.Blocked,
		},
	}
	if errs == nil {
		state.Errors = []vda5050.Error{}
	}

	visualization := vda5050.Visualization{
		Header:      header,
		AGVPosition: pos,
		Velocity:    vel,
	}

	return Uplink{State: state, Visualization: visualization}
}

func operatingMode(vs VendorState) string {
	switch {
	case vs.Emergency:
		return "EMERGENCY"
	case vs.SoftEmc:
		return "SEMIAUTOMATIC"
	case vs.Charging:
		return vda5050.OperatingModeService
	default:
		return vda5050.OperatingModeAutomatic
	}
}

func mapTaskStatus(s string) string {
	switch s {
	case "waiting", "WAITING":
		return vda5050.ActionStatusWaiting
	case "running", "RUNNING", "active", "ACTIVE":
		return vda5050.ActionStatusRunning
	case "finished", "FINISHED", "done", "DONE", "completed", "COMPLETED":
		return vda5050.ActionStatusFinished
	case "failed", "FAILED", "error", "ERROR":
		return vda5050.ActionStatusFailed
	default:
		return vda5050.ActionStatusWaiting
	}
}

// normalizeTheta implements the degrees-vs-radians heuristic from spec
// §4.6: if the raw magnitude exceeds 2π it is assumed to be degrees and
// converted, then the result is wrapped into [-π, π].
func normalizeTheta(angle, yaw *float64) float64 {
	var raw float64
	switch {
	case angle != nil:
		raw = *angle
	case yaw != nil:
		raw = *yaw
	default:
		return 0
	}
	if math.Abs(raw) > 2*math.Pi {
		raw = raw * math.Pi / 180
	}
	return wrapToPi(raw)
}

func wrapToPi(rad float64) float64 {
	for rad > math.Pi {
		rad -= 2 * math.Pi
	}
	for rad < -math.Pi {
		rad += 2 * math.Pi
	}
	return rad
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
