package bus

import "github.com/decisive-systems/conductor/core/protocol"

// =============================================================================
// TURN LIFECYCLE EVENTS
// =============================================================================

// TurnStarted is emitted when the supervisor accepts an inbound request.
type TurnStarted struct {
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
	Verb      string `json:"verb"`
	Resumed   bool   `json:"resumed"`
}

// Category implements the Message interface.
func (m *TurnStarted) Category() string { return string(MessageCategoryEvent) }

// TurnCompleted is emitted when a turn reaches a final state.
type TurnCompleted struct {
	SessionID  string `json:"session_id"`
	RequestID  string `json:"request_id"`
	Verb       string `json:"verb"`
	State      string `json:"state"` // TERMINAL, AWAITING_HUMAN, ERROR
	Steps      int    `json:"steps"`
	DurationMS int64  `json:"duration_ms"`
}

// Category implements the Message interface.
func (m *TurnCompleted) Category() string { return string(MessageCategoryEvent) }

// AwaitingHuman is emitted when a "no" decision pauses a session.
type AwaitingHuman struct {
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
	Verb      string `json:"verb"`
	PausedAt  string `json:"paused_at"`
	Reason    string `json:"reason"`
}

// Category implements the Message interface.
func (m *AwaitingHuman) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// STEP EVENTS
// =============================================================================

// AgentStarted is emitted when an agent begins processing.
type AgentStarted struct {
	AgentName string `json:"agent_name"`
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
	Verb      string `json:"verb"`
}

// Category implements the Message interface.
func (m *AgentStarted) Category() string { return string(MessageCategoryEvent) }

// AgentCompleted is emitted when an agent finishes processing.
type AgentCompleted struct {
	AgentName  string `json:"agent_name"`
	SessionID  string `json:"session_id"`
	RequestID  string `json:"request_id"`
	Decision   string `json:"decision"`
	Confidence float64 `json:"confidence"`
	DurationMS int64  `json:"duration_ms"`
}

// Category implements the Message interface.
func (m *AgentCompleted) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// WIRE EVENTS
// =============================================================================

// EnvelopeEmitted carries every envelope the engine emits. The transport
// subscribes to this one event and forwards envelopes to the peer.
type EnvelopeEmitted struct {
	Envelope *protocol.Envelope `json:"envelope"`
}

// Category implements the Message interface.
func (m *EnvelopeEmitted) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// COMMANDS
// =============================================================================

// CleanupSessions asks the supervisor to sweep paused sessions idle
// longer than the configured TTL.
type CleanupSessions struct{}

// Category implements the Message interface.
func (m *CleanupSessions) Category() string { return string(MessageCategoryCommand) }

// =============================================================================
// INTROSPECTION QUERIES
// =============================================================================

// GetSessionState queries the supervisor's view of one session.
type GetSessionState struct {
	SessionID string `json:"session_id"`
}

// Category implements the Message interface.
func (m *GetSessionState) Category() string { return string(MessageCategoryQuery) }

// IsQuery implements the Query interface.
func (m *GetSessionState) IsQuery() {}

// SessionStateResponse is the response for GetSessionState.
type SessionStateResponse struct {
	Found    bool   `json:"found"`
	State    string `json:"state"`
	Verb     string `json:"verb"`
	PausedAt string `json:"paused_at,omitempty"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// TypedMessage is an optional interface for messages that provide their
// own type name.
type TypedMessage interface {
	Message
	MessageType() string
}

// GetMessageType returns the type name of a message for routing.
func GetMessageType(msg Message) string {
	if typed, ok := msg.(TypedMessage); ok {
		return typed.MessageType()
	}

	switch msg.(type) {
	case *TurnStarted:
		return "TurnStarted"
	case *TurnCompleted:
		return "TurnCompleted"
	case *AwaitingHuman:
		return "AwaitingHuman"
	case *AgentStarted:
		return "AgentStarted"
	case *AgentCompleted:
		return "AgentCompleted"
	case *EnvelopeEmitted:
		return "EnvelopeEmitted"
	case *CleanupSessions:
		return "CleanupSessions"
	case *GetSessionState:
		return "GetSessionState"
	default:
		return "Unknown"
	}
}
