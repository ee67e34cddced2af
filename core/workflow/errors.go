package workflow

import (
	"fmt"

	"github.com/decisive-systems/conductor/core/protocol"
)

// UnknownStepError reports a lookup against a verb or agent the registry
// does not know. This is a configuration defect in the caller, not a
// workflow-level stop.
type UnknownStepError struct {
	Verb   protocol.Verb
	Agent  string
	Resume bool
}

func (e *UnknownStepError) Error() string {
	switch {
	case e.Agent == "":
		return fmt.Sprintf("no workflow registered for verb %q", e.Verb)
	case e.Resume:
		return fmt.Sprintf("workflow %q: no resume target declared for step %q", e.Verb, e.Agent)
	default:
		return fmt.Sprintf("workflow %q: agent %q is not a node", e.Verb, e.Agent)
	}
}
