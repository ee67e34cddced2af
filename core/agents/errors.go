package agents

import "fmt"

// UnknownAgentError reports a call against a name no agent was registered
// under. This is a configuration defect: the supervisor fails the turn
// with one error envelope rather than treating it as a step-level "no".
type UnknownAgentError struct {
	Name string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q", e.Name)
}

// RegistrationError reports an invalid Register call.
type RegistrationError struct {
	Name   string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register agent %q: %s", e.Name, e.Reason)
}
