// Package tools provides the tool registry and the standardized result
// contract for side-effecting operations.
//
// Tools never raise into their calling agent: Execute always returns a
// Result with an explicit status. Side-effecting tools are idempotent by
// natural key, so a retried step converges instead of duplicating work.
package tools

import "fmt"

// Status is a tool execution outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// RiskLevel labels a tool's blast radius.
type RiskLevel string

const (
	RiskReadOnly    RiskLevel = "read_only"
	RiskWrite       RiskLevel = "write"
	RiskDestructive RiskLevel = "destructive"
)

// RequiresConfirmation reports whether the level needs human sign-off
// before execution in confirmation-gated deployments.
func (r RiskLevel) RequiresConfirmation() bool {
	return r == RiskDestructive
}

// ErrorDetails describes a failed execution.
type ErrorDetails struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// Result is the standardized tool outcome. The calling agent inspects
// Status and converts an error result into its own "no" decision.
type Result struct {
	Status Status         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  *ErrorDetails  `json:"error,omitempty"`
}

// Success builds a success result.
func Success(data map[string]any) *Result {
	if data == nil {
		data = map[string]any{}
	}
	return &Result{Status: StatusSuccess, Data: data}
}

// Failure builds an error result.
func Failure(errType, format string, args ...any) *Result {
	return &Result{
		Status: StatusError,
		Error: &ErrorDetails{
			Type:    errType,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

// RecoverableFailure builds an error result a later retry might clear.
func RecoverableFailure(errType, format string, args ...any) *Result {
	r := Failure(errType, format, args...)
	r.Error.Recoverable = true
	return r
}
