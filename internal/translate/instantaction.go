package translate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// FactsheetRequestAction is the VDA5050 instant action type that triggers a
// supervisor-side factsheet publish instead of TCP egress (spec §4.5).
const FactsheetRequestAction = "factsheetRequest"

// Egress is one outbound packet C5 wants sent on behalf of an instant
// action: a fully-formed body addressed to a port role and message type.
type Egress struct {
	PortRole    registry.PortRole
	MessageType uint16
	Body        []byte
}

// InstantActionsToEgress implements C5: it walks the actions array in
// order and returns one Egress per recognised, TCP-bound action.
// factsheetRequest is reported separately via factsheetRequested since it
// has no TCP egress of its own. Unknown action types are dropped with a
// logged warning, per spec §4.5.
func InstantActionsToEgress(ia vda5050.InstantActions) (egress []Egress, factsheetRequested bool) {
	counter := &taskIDCounter{orderID: strconv.FormatInt(ia.HeaderID, 10)}

	for _, a := range ia.Actions {
		if a.ActionType == FactsheetRequestAction {
			factsheetRequested = true
			continue
		}

		spec, ok := registry.Lookup(a.ActionType)
		if !ok {
			logging.Warn("dropping unrecognised instant action",
				logging.KeyAction, a.ActionType,
				logging.KeySerial, ia.SerialNumber,
			)
			continue
		}

		body, err := bodyFor(a, spec, counter)
		if err != nil {
			logging.Warn("dropping instant action with invalid parameters",
				logging.KeyAction, a.ActionType,
				logging.KeyErr, err,
			)
			continue
		}

		egress = append(egress, Egress{
			PortRole:    spec.PortRole,
			MessageType: spec.MessageType,
			Body:        body,
		})
	}
	return egress, factsheetRequested
}

func bodyFor(a vda5050.Action, spec registry.ActionSpec, counter *taskIDCounter) ([]byte, error) {
	switch spec.BodyShape {
	case registry.ShapeMoveTaskList:
		step := MoveTaskStep{
			SourceID:  selfPosition,
			ID:        selfPosition,
			TaskID:    counter.next(),
			Operation: spec.VendorOp,
		}
		return json.Marshal(map[string]any{"move_task_list": []MoveTaskStep{step}})

	case registry.ShapeEmpty:
		return []byte("{}"), nil

	case registry.ShapeParams:
		return paramsBody(a)

	default:
		return nil, fmt.Errorf("translate: unhandled body shape %q", spec.BodyShape)
	}
}

func paramsBody(a vda5050.Action) ([]byte, error) {
	switch a.ActionType {
	case "reloc":
		return relocParams(a)
	case "translate":
		return translateParams(a)
	case "turn":
		return turnParams(a)
	case "rotateLoad":
		return rotateLoadParams(a)
	case "softEmc":
		return softEmcParams(a)
	case "clearErrors":
		return clearErrorsParams(a)
	case "grabAuthority", "releaseAuthority":
		return authorityParams(a)
	default:
		return nil, fmt.Errorf("translate: no params builder for action %q", a.ActionType)
	}
}

func relocParams(a vda5050.Action) ([]byte, error) {
	out := map[string]any{}
	isAuto, hasAuto := a.Param("isAuto")
	home, hasHome := a.Param("home")
	if hasAuto {
		out["isAuto"] = isAuto
	}
	if hasHome {
		out["home"] = home
	}
	if v, ok := a.Param("length"); ok {
		out["length"] = v
	}
	autoOrHome := truthy(isAuto) || truthy(home)
	if !autoOrHome {
		for _, key := range []string{"x", "y", "angle"} {
			if v, ok := a.Param(key); ok {
				out[key] = v
			}
		}
	}
	return json.Marshal(out)
}

func translateParams(a vda5050.Action) ([]byte, error) {
	dist, ok := a.Param("dist")
	if !ok {
		return nil, fmt.Errorf("translate: missing required param dist")
	}
	out := map[string]any{"dist": asNumber(dist)}
	if v, ok := a.Param("vx"); ok {
		out["vx"] = asNumber(v)
	}
	if v, ok := a.Param("vy"); ok {
		out["vy"] = asNumber(v)
	}
	if v, ok := a.Param("mode"); ok {
		out["mode"] = v
	}
	return json.Marshal(out)
}

func turnParams(a vda5050.Action) ([]byte, error) {
	angle, ok := a.Param("angle")
	if !ok {
		return nil, fmt.Errorf("turn: missing required param angle")
	}
	vw, ok := a.Param("vw")
	if !ok {
		return nil, fmt.Errorf("turn: missing required param vw")
	}
	out := map[string]any{"angle": asNumber(angle), "vw": asNumber(vw)}
	if v, ok := a.Param("mode"); ok {
		out["mode"] = v
	}
	return json.Marshal(out)
}

func rotateLoadParams(a vda5050.Action) ([]byte, error) {
	out := map[string]any{}
	for _, key := range []string{"increase_spin_angle", "robot_spin_angle", "global_spin_angle", "spin_direction"} {
		if v, ok := a.Param(key); ok {
			out[key] = v
		}
	}
	return json.Marshal(out)
}

func softEmcParams(a vda5050.Action) ([]byte, error) {
	status := false
	if v, ok := a.Param("status"); ok {
		status = truthy(v)
	}
	return json.Marshal(map[string]any{"status": status})
}

func clearErrorsParams(a vda5050.Action) ([]byte, error) {
	out := map[string]any{}
	if v, ok := a.Param("error_codes"); ok {
		codes, err := parseErrorCodes(v)
		if err != nil {
			return nil, err
		}
		if codes != nil {
			out["error_codes"] = codes
		}
	}
	return json.Marshal(out)
}

// parseErrorCodes accepts the three shapes spec §4.5 calls out: a native
// JSON array, a JSON-encoded string containing an array, or a
// comma-separated string.
func parseErrorCodes(v any) ([]int, error) {
	switch t := v.(type) {
	case []any:
		out := make([]int, 0, len(t))
		for _, e := range t {
			n, err := toInt(e)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return nil, fmt.Errorf("clearErrors: invalid error_codes json: %w", err)
			}
			return parseErrorCodes(arr)
		}
		parts := strings.Split(s, ",")
		out := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("clearErrors: invalid error code %q: %w", p, err)
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("clearErrors: unsupported error_codes type %T", v)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func authorityParams(a vda5050.Action) ([]byte, error) {
	v, _ := a.Param("value")
	return json.Marshal(map[string]any{"value": v})
}

func asNumber(v any) any {
	switch n := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
		return n
	default:
		return v
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t != 0
	default:
		return false
	}
}
