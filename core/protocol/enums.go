package protocol

import "fmt"

// Version is the wire protocol version stamped on every emitted envelope.
const Version = "1.1"

// =============================================================================
// KIND
// =============================================================================

// Kind classifies an envelope on the wire.
type Kind string

const (
	// KindRequest is an inbound envelope asking the engine to act.
	KindRequest Kind = "request"
	// KindResponse is emitted once per agent invoked during a turn.
	KindResponse Kind = "response"
	// KindError is emitted exactly once when a turn fails at the boundary.
	KindError Kind = "error"
)

// ParseKind validates a raw kind string.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindRequest, KindResponse, KindError:
		return Kind(raw), nil
	}
	return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown kind %q", raw)}
}

// =============================================================================
// DECISION
// =============================================================================

// Decision is an agent's binary verdict. A "no" is a hard stop for the
// turn; the supervisor never auto-retries it.
type Decision string

const (
	DecisionYes Decision = "yes"
	DecisionNo  Decision = "no"
)

// ParseDecision validates a raw decision string.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionYes, DecisionNo:
		return Decision(raw), nil
	}
	return "", &ValidationError{Field: "decision", Reason: fmt.Sprintf("unknown decision %q", raw)}
}

// =============================================================================
// RETURN CODE
// =============================================================================

// ReturnCode is the per-step status stamped on emitted envelopes.
type ReturnCode int

const (
	// ReturnError marks a "no" decision or a turn-level failure.
	ReturnError ReturnCode = -1
	// ReturnContinue marks a "yes" decision with further steps pending.
	ReturnContinue ReturnCode = 0
	// ReturnTerminalSuccess marks the final "yes" step of a workflow.
	ReturnTerminalSuccess ReturnCode = 1
)

// ParseReturnCode validates a raw return code.
func ParseReturnCode(raw int) (ReturnCode, error) {
	switch ReturnCode(raw) {
	case ReturnError, ReturnContinue, ReturnTerminalSuccess:
		return ReturnCode(raw), nil
	}
	return 0, &ValidationError{Field: "returnCode", Reason: fmt.Sprintf("unknown return code %d", raw)}
}
