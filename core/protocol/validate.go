package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ValidationPolicy controls the handling of recoverable field defects.
type ValidationPolicy struct {
	// ClampConfidence clamps out-of-range confidence into [0,1] instead of
	// rejecting the envelope. This is the default: peers that overshoot a
	// score should not lose the whole turn.
	ClampConfidence bool
}

// DefaultValidationPolicy clamps confidence.
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{ClampConfidence: true}
}

// wireEnvelope is the loose decode target. Pointer fields distinguish
// "absent" from zero values during rule evaluation.
type wireEnvelope struct {
	Kind       string          `json:"type"`
	Version    string          `json:"version"`
	Timestamp  int64           `json:"timestamp"`
	SessionID  string          `json:"session_id"`
	RequestID  string          `json:"request_id"`
	Verb       string          `json:"verb"`
	NextAgent  *string         `json:"nextAgent"`
	Decision   *string         `json:"decision"`
	Confidence *float64        `json:"confidence"`
	Reason     string          `json:"reason"`
	ReturnCode int             `json:"returnCode"`
	Payload    json.RawMessage `json:"messageBody"`
}

// Validate parses and validates a raw envelope. Rules are applied in
// order: kind, verb (against the registered set), confidence range,
// return code, payload shape. The result is fully typed; callers never
// re-check fields.
//
// Validate is pure: no side effects, and it returns typed errors rather
// than panicking on any input.
func Validate(raw []byte, verbs *VerbSet, policy ValidationPolicy) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &ValidationError{Field: "envelope", Reason: "malformed JSON", Cause: err}
	}

	kind, err := ParseKind(w.Kind)
	if err != nil {
		return nil, err
	}

	verb, err := verbs.Parse(w.Verb)
	if err != nil {
		return nil, &ValidationError{Field: "verb", Reason: err.Error(), Cause: err}
	}

	var decision Decision
	if w.Decision != nil && *w.Decision != "" {
		decision, err = ParseDecision(*w.Decision)
		if err != nil {
			return nil, err
		}
	}

	var confidence float64
	if w.Confidence != nil {
		confidence = *w.Confidence
		if math.IsNaN(confidence) {
			return nil, &ValidationError{Field: "confidence", Reason: "not a number"}
		}
		if confidence < 0 || confidence > 1 {
			if !policy.ClampConfidence {
				return nil, &ValidationError{Field: "confidence", Reason: fmt.Sprintf("%v out of range [0,1]", confidence)}
			}
			confidence = math.Min(1, math.Max(0, confidence))
		}
	}

	returnCode, err := ParseReturnCode(w.ReturnCode)
	if err != nil {
		return nil, err
	}

	payload, err := decodePayload(w.Payload)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Kind:       kind,
		Version:    w.Version,
		Timestamp:  w.Timestamp,
		SessionID:  w.SessionID,
		RequestID:  w.RequestID,
		Verb:       verb,
		NextAgent:  w.NextAgent,
		Decision:   decision,
		Confidence: confidence,
		Reason:     w.Reason,
		ReturnCode: returnCode,
		Payload:    payload,
	}, nil
}

// decodePayload requires messageBody to be a JSON object. Absent and null
// both decode to an empty map; arrays and scalars are rejected.
func decodePayload(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}
	if trimmed[0] != '{' {
		return nil, &ValidationError{Field: "messageBody", Reason: "must be a JSON object"}
	}
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, &ValidationError{Field: "messageBody", Reason: "malformed object", Cause: err}
	}
	return payload, nil
}
