package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

func TestMixedInstantActions(t *testing.T) {
	ia := vda5050.InstantActions{
		Header: vda5050.Header{HeaderID: 42, SerialNumber: "AGV1"},
		Actions: []vda5050.Action{
			{ActionType: "pick", ActionID: "a1"},
			{ActionType: "startPause", ActionID: "a2"},
			{ActionType: "translate", ActionID: "a3", ActionParameters: []vda5050.ActionParameter{
				{Key: "dist", Value: 1.5},
			}},
			{ActionType: "somethingUnknown", ActionID: "a4"},
			{ActionType: "factsheetRequest", ActionID: "a5"},
		},
	}

	egress, factsheetRequested := InstantActionsToEgress(ia)
	require.Len(t, egress, 3)
	assert.True(t, factsheetRequested)

	assert.Equal(t, registry.PortMovement, egress[0].PortRole)
	assert.Equal(t, registry.MsgMovementOrder, egress[0].MessageType)
	var moveBody map[string]any
	require.NoError(t, json.Unmarshal(egress[0].Body, &moveBody))
	assert.Contains(t, moveBody, "move_task_list")

	assert.Equal(t, registry.MsgMovementPause, egress[1].MessageType)
	assert.JSONEq(t, "{}", string(egress[1].Body))

	assert.Equal(t, registry.MsgMovementTranslate, egress[2].MessageType)
	assert.JSONEq(t, `{"dist":1.5}`, string(egress[2].Body))
}

func TestTranslateMissingRequiredParamDropped(t *testing.T) {
	ia := vda5050.InstantActions{
		Header: vda5050.Header{SerialNumber: "AGV1"},
		Actions: []vda5050.Action{
			{ActionType: "translate", ActionID: "a1"},
		},
	}
	egress, _ := InstantActionsToEgress(ia)
	assert.Empty(t, egress)
}

func TestClearErrorsParsesCommaSeparatedString(t *testing.T) {
	ia := vda5050.InstantActions{
		Header: vda5050.Header{SerialNumber: "AGV1"},
		Actions: []vda5050.Action{
			{ActionType: "clearErrors", ActionParameters: []vda5050.ActionParameter{
				{Key: "error_codes", Value: "10, 20,30"},
			}},
		},
	}
	egress, _ := InstantActionsToEgress(ia)
	require.Len(t, egress, 1)
	assert.JSONEq(t, `{"error_codes":[10,20,30]}`, string(egress[0].Body))
}

func TestRelocOmitsCoordinatesWhenAuto(t *testing.T) {
	ia := vda5050.InstantActions{
		Header: vda5050.Header{SerialNumber: "AGV1"},
		Actions: []vda5050.Action{
			{ActionType: "reloc", ActionParameters: []vda5050.ActionParameter{
				{Key: "isAuto", Value: true},
				{Key: "x", Value: 1.0},
			}},
		},
	}
	egress, _ := InstantActionsToEgress(ia)
	require.Len(t, egress, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(egress[0].Body, &body))
	assert.NotContains(t, body, "x")
	assert.Equal(t, true, body["isAuto"])
}
