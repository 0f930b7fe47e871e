package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// TestOrderWithTwoMovesAndOnePick is scenario 1 from the spec: order
// "ORD1" with nodes N1 (seq 0, action pick), N2 (seq 2), N3 (seq 4) and
// edges E1 (seq 1, N1->N2), E2 (seq 3, N2->N3).
func TestOrderWithTwoMovesAndOnePick(t *testing.T) {
	order := vda5050.Order{
		OrderID: "ORD1",
		Nodes: []vda5050.Node{
			{NodeID: "N1", SequenceID: 0, Actions: []vda5050.Action{{ActionType: "pick", ActionID: "a1"}}},
			{NodeID: "N2", SequenceID: 2},
			{NodeID: "N3", SequenceID: 4},
		},
		Edges: []vda5050.Edge{
			{EdgeID: "E1", SequenceID: 1, StartNodeID: "N1", EndNodeID: "N2"},
			{EdgeID: "E2", SequenceID: 3, StartNodeID: "N2", EndNodeID: "N3"},
		},
	}

	steps := OrderToMoveTasks(order)
	require.Len(t, steps, 3)

	assert.Equal(t, MoveTaskStep{SourceID: selfPosition, ID: selfPosition, TaskID: "ORD1_1", Operation: "JackLoad"}, steps[0])
	assert.Equal(t, MoveTaskStep{SourceID: "N1", ID: "N2", TaskID: "ORD1_2"}, steps[1])
	assert.Equal(t, MoveTaskStep{SourceID: "N2", ID: "N3", TaskID: "ORD1_3"}, steps[2])
}

func TestOrderValidateRejectsGappySequenceIDs(t *testing.T) {
	order := vda5050.Order{
		OrderID: "ORD2",
		Header:  vda5050.Header{SerialNumber: "AGV1", Version: "2.0.0"},
		Nodes: []vda5050.Node{
			{NodeID: "N1", SequenceID: 0},
			{NodeID: "N2", SequenceID: 5},
		},
		Edges: []vda5050.Edge{
			{EdgeID: "E1", SequenceID: 1, StartNodeID: "N1", EndNodeID: "N2"},
		},
	}
	assert.Error(t, order.Validate())
}

func TestEdgeWithActionEmitsAfterMove(t *testing.T) {
	order := vda5050.Order{
		OrderID: "ORD3",
		Nodes: []vda5050.Node{
			{NodeID: "N1", SequenceID: 0},
			{NodeID: "N2", SequenceID: 2},
		},
		Edges: []vda5050.Edge{
			{EdgeID: "E1", SequenceID: 1, StartNodeID: "N1", EndNodeID: "N2",
				Actions: []vda5050.Action{{ActionType: "softEmc"}}},
		},
	}

	steps := OrderToMoveTasks(order)
	require.Len(t, steps, 2)
	assert.Equal(t, "N1", steps[0].SourceID)
	assert.Equal(t, "N2", steps[0].ID)
	assert.Equal(t, "EmergencyStop", steps[1].Operation)
}
