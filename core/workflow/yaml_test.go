package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisive-systems/conductor/core/protocol"
)

const ruleYAML = `
verbs:
  RULE:
    entry: verifyOrder
    nodes:
      verifyOrder:       {on_yes: checkInventory, on_no: sendMessageToChat}
      checkInventory:    {on_yes: terminal, on_no: sendMessageToChat}
      sendMessageToChat: {on_yes: terminal, on_no: terminal}
    resume:
      sendMessageToChat: checkInventory
`

func TestLoadYAMLBuildsValidatedRegistry(t *testing.T) {
	verbs := protocol.NewVerbSet(protocol.VerbRule, protocol.VerbContent)

	reg, err := LoadYAML([]byte(ruleYAML), verbs)
	require.NoError(t, err)

	entry, err := reg.Entry(protocol.VerbRule)
	require.NoError(t, err)
	assert.Equal(t, "verifyOrder", entry)

	target, err := reg.ResumeTarget(protocol.VerbRule, "sendMessageToChat")
	require.NoError(t, err)
	assert.Equal(t, "checkInventory", target)
}

func TestLoadYAMLRejectsUnregisteredVerb(t *testing.T) {
	verbs := protocol.NewVerbSet(protocol.VerbContent)

	_, err := LoadYAML([]byte(ruleYAML), verbs)
	assert.Error(t, err)
}

func TestLoadYAMLRejectsBrokenTransitionAtLoadTime(t *testing.T) {
	broken := `
verbs:
  RULE:
    entry: verifyOrder
    nodes:
      verifyOrder: {on_yes: ghostAgent, on_no: terminal}
`
	verbs := protocol.NewVerbSet(protocol.VerbRule)

	_, err := LoadYAML([]byte(broken), verbs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghostAgent")
}

func TestLoadYAMLRejectsEmptyAndMalformedInput(t *testing.T) {
	verbs := protocol.NewVerbSet(protocol.VerbRule)

	_, err := LoadYAML([]byte("verbs: {}"), verbs)
	assert.Error(t, err)

	_, err = LoadYAML([]byte(":\n  - not yaml"), verbs)
	assert.Error(t, err)
}
