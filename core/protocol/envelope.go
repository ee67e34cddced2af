// Package protocol defines the envelope wire format shared by the engine
// and its transport collaborators.
//
// An Envelope is the single message shape flowing in both directions: the
// transport delivers request envelopes, and the engine emits one response
// envelope per agent invoked plus at most one error envelope per failed
// turn. Envelopes are value-built by the constructors here and never
// mutated after construction.
package protocol

import (
	"time"

	"github.com/decisive-systems/conductor/core/typeutil"
)

// Envelope is the wire message. Field names are part of the protocol
// contract with non-Go peers and must not change.
type Envelope struct {
	Kind       Kind           `json:"type"`
	Version    string         `json:"version"`
	Timestamp  int64          `json:"timestamp"` // unix milliseconds
	SessionID  string         `json:"session_id"`
	RequestID  string         `json:"request_id"`
	Verb       Verb           `json:"verb"`
	NextAgent  *string        `json:"nextAgent"` // null at/after termination
	Decision   Decision       `json:"decision,omitempty"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	ReturnCode ReturnCode     `json:"returnCode"`
	Payload    map[string]any `json:"messageBody"`
}

// NewResponse builds one response envelope for a completed step. Session
// and request identity are copied from the inbound request; the payload is
// deep-copied so later steps cannot mutate what was emitted.
func NewResponse(in *Envelope, verb Verb, nextAgent *string, decision Decision, confidence float64, reason string, code ReturnCode, payload map[string]any) *Envelope {
	e := &Envelope{
		Kind:       KindResponse,
		Version:    Version,
		Timestamp:  time.Now().UnixMilli(),
		Verb:       verb,
		NextAgent:  nextAgent,
		Decision:   decision,
		Confidence: confidence,
		Reason:     reason,
		ReturnCode: code,
		Payload:    typeutil.DeepCopyMap(payload),
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	if in != nil {
		e.SessionID = in.SessionID
		e.RequestID = in.RequestID
	}
	return e
}

// NewError builds the single error envelope for a failed turn. The inbound
// envelope may be nil when the failure happened before validation produced
// one.
func NewError(in *Envelope, reason string) *Envelope {
	e := &Envelope{
		Kind:       KindError,
		Version:    Version,
		Timestamp:  time.Now().UnixMilli(),
		Confidence: 0,
		Reason:     reason,
		ReturnCode: ReturnError,
		Payload:    map[string]any{},
	}
	if in != nil {
		e.SessionID = in.SessionID
		e.RequestID = in.RequestID
		e.Verb = in.Verb
	}
	return e
}

// Clone returns a deep copy. Emitted envelopes are shared with subscribers
// through the bus; cloning keeps them immutable from the engine's side.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	cp := *e
	if e.NextAgent != nil {
		next := *e.NextAgent
		cp.NextAgent = &next
	}
	cp.Payload = typeutil.DeepCopyMap(e.Payload)
	return &cp
}

// StringPtr is a convenience for building nextAgent values.
func StringPtr(s string) *string { return &s }
