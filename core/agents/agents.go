// Package agents defines the step and routing agent contracts and the
// registry that invokes them.
//
// Agents perform the actual work of a workflow step (an LLM call, a
// database lookup, an HTTP fetch) and report a binary verdict. They are
// pure with respect to the supervisor's control flow: expected failure
// modes come back as "no" decisions, never as raised errors. The registry
// wrapper enforces that contract even for agents that misbehave.
package agents

import (
	"context"

	"github.com/decisive-systems/conductor/core/protocol"
)

// Result is the tuple every step agent returns.
type Result struct {
	Decision   protocol.Decision
	Confidence float64
	Reason     string
	// Patch is merged additively into the turn's working payload; later
	// steps may depend on keys written here.
	Patch map[string]any
}

// RouteResult is a routing agent's output: the step verdict plus the
// resolved verb. Routing is the one agent contract carrying an
// out-of-band value, so it is a distinct type rather than a convention
// buried in the payload.
type RouteResult struct {
	Result
	// Verb is the raw resolved verb. The supervisor re-validates it
	// against the registered set before trusting it.
	Verb string
}

// StepAgent executes one workflow step.
type StepAgent interface {
	Execute(ctx context.Context, verb protocol.Verb, payload map[string]any) (Result, error)
}

// StepFunc adapts a function to StepAgent.
type StepFunc func(ctx context.Context, verb protocol.Verb, payload map[string]any) (Result, error)

// Execute implements StepAgent.
func (f StepFunc) Execute(ctx context.Context, verb protocol.Verb, payload map[string]any) (Result, error) {
	return f(ctx, verb, payload)
}

// RoutingAgent classifies an inbound request into a concrete verb.
type RoutingAgent interface {
	Route(ctx context.Context, payload map[string]any) (RouteResult, error)
}

// RouteFunc adapts a function to RoutingAgent.
type RouteFunc func(ctx context.Context, payload map[string]any) (RouteResult, error)

// Route implements RoutingAgent.
func (f RouteFunc) Route(ctx context.Context, payload map[string]any) (RouteResult, error) {
	return f(ctx, payload)
}

// LLMClient is the language-model dependency injected into LLM-backed
// agents. The engine itself never calls it; agents do.
type LLMClient interface {
	Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error)
}
