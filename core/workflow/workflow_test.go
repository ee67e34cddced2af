package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisive-systems/conductor/core/protocol"
)

// ruleDefinition is the order-processing tree used across these tests:
// verifyOrder -> checkInventory -> chargePayment -> shipOrder, every "no"
// routing to a chat notification, resume re-entering at the paused check.
func ruleDefinition() Definition {
	return Definition{
		Entry: "verifyOrder",
		Nodes: map[string]Node{
			"verifyOrder":       {OnYes: "checkInventory", OnNo: "sendMessageToChat"},
			"checkInventory":    {OnYes: "chargePayment", OnNo: "sendMessageToChat"},
			"chargePayment":     {OnYes: "shipOrder", OnNo: "sendMessageToChat"},
			"shipOrder":         {OnYes: Terminal, OnNo: "sendMessageToChat"},
			"sendMessageToChat": {OnYes: Terminal, OnNo: Terminal},
		},
		Resume: map[string]string{
			"sendMessageToChat": "checkInventory",
		},
	}
}

func TestRegisterAndForwardTraversal(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(protocol.VerbRule, ruleDefinition()))

	entry, err := reg.Entry(protocol.VerbRule)
	require.NoError(t, err)
	assert.Equal(t, "verifyOrder", entry)

	next, err := reg.Next(protocol.VerbRule, "verifyOrder", protocol.DecisionYes)
	require.NoError(t, err)
	assert.Equal(t, "checkInventory", next)

	next, err = reg.Next(protocol.VerbRule, "checkInventory", protocol.DecisionNo)
	require.NoError(t, err)
	assert.Equal(t, "sendMessageToChat", next)

	next, err = reg.Next(protocol.VerbRule, "shipOrder", protocol.DecisionYes)
	require.NoError(t, err)
	assert.True(t, reg.IsTerminal(next))
}

func TestResumeMapIsIndependentOfForwardTree(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(protocol.VerbRule, ruleDefinition()))

	// The pause step's forward "yes" edge is terminal, but resume re-enters
	// mid-tree. The two tables must not be conflated.
	forward, err := reg.Next(protocol.VerbRule, "sendMessageToChat", protocol.DecisionYes)
	require.NoError(t, err)
	assert.Equal(t, Terminal, forward)

	resume, err := reg.ResumeTarget(protocol.VerbRule, "sendMessageToChat")
	require.NoError(t, err)
	assert.Equal(t, "checkInventory", resume)
}

func TestUnknownLookupsAreConfigDefects(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(protocol.VerbRule, ruleDefinition()))

	var stepErr *UnknownStepError

	_, err := reg.Next(protocol.VerbContent, "verifyOrder", protocol.DecisionYes)
	require.True(t, errors.As(err, &stepErr))

	_, err = reg.Next(protocol.VerbRule, "ghostAgent", protocol.DecisionYes)
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "ghostAgent", stepErr.Agent)

	_, err = reg.ResumeTarget(protocol.VerbRule, "verifyOrder")
	require.True(t, errors.As(err, &stepErr))
	assert.True(t, stepErr.Resume)
}

func TestRegisterRejectsStructuralDefects(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{
			name: "edge to undefined agent",
			def: Definition{
				Entry: "a",
				Nodes: map[string]Node{"a": {OnYes: "missing", OnNo: Terminal}},
			},
		},
		{
			name: "entry not a node",
			def: Definition{
				Entry: "missing",
				Nodes: map[string]Node{"a": {OnYes: Terminal, OnNo: Terminal}},
			},
		},
		{
			name: "resume entry not a node",
			def: Definition{
				Entry:  "a",
				Nodes:  map[string]Node{"a": {OnYes: Terminal, OnNo: Terminal}},
				Resume: map[string]string{"missing": "a"},
			},
		},
		{
			name: "resume target not a node",
			def: Definition{
				Entry:  "a",
				Nodes:  map[string]Node{"a": {OnYes: Terminal, OnNo: Terminal}},
				Resume: map[string]string{"a": "missing"},
			},
		},
		{
			name: "node missing an edge",
			def: Definition{
				Entry: "a",
				Nodes: map[string]Node{"a": {OnYes: Terminal}},
			},
		},
		{
			name: "no nodes",
			def:  Definition{Entry: "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			assert.Error(t, reg.Register(protocol.VerbRule, tt.def))
		})
	}
}

func TestRegisterRejectsDuplicateVerb(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(protocol.VerbRule, ruleDefinition()))
	assert.Error(t, reg.Register(protocol.VerbRule, ruleDefinition()))
}

func TestVerbsAndAgentsIntrospection(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(protocol.VerbRule, ruleDefinition()))

	assert.Equal(t, []protocol.Verb{protocol.VerbRule}, reg.Verbs())
	assert.Contains(t, reg.Agents(protocol.VerbRule), "chargePayment")
	assert.Nil(t, reg.Agents(protocol.VerbContent))
}
