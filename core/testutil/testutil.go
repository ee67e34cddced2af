// Package testutil provides shared mocks for engine tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/decisive-systems/conductor/core/agents"
	"github.com/decisive-systems/conductor/core/protocol"
)

// =============================================================================
// SCRIPTED AGENTS
// =============================================================================

// ScriptedAgent returns a fixed result on every call and counts calls.
type ScriptedAgent struct {
	Result agents.Result
	Err    error

	mu    sync.Mutex
	calls int
}

// Execute implements agents.StepAgent.
func (a *ScriptedAgent) Execute(ctx context.Context, verb protocol.Verb, payload map[string]any) (agents.Result, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.Err != nil {
		return agents.Result{}, a.Err
	}
	return a.Result, nil
}

// Calls reports how many times the agent ran.
func (a *ScriptedAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Yes builds a scripted agent that always approves.
func Yes(reason string) *ScriptedAgent {
	return &ScriptedAgent{Result: agents.Result{
		Decision:   protocol.DecisionYes,
		Confidence: 0.9,
		Reason:     reason,
	}}
}

// No builds a scripted agent that always declines.
func No(reason string) *ScriptedAgent {
	return &ScriptedAgent{Result: agents.Result{
		Decision:   protocol.DecisionNo,
		Confidence: 0.95,
		Reason:     reason,
	}}
}

// YesWithPatch builds an approving agent that contributes payload keys.
func YesWithPatch(reason string, patch map[string]any) *ScriptedAgent {
	a := Yes(reason)
	a.Result.Patch = patch
	return a
}

// ScriptedRouter resolves every request to a fixed verb.
type ScriptedRouter struct {
	Verb   string
	Result agents.Result
	Err    error

	mu    sync.Mutex
	calls int
}

// Route implements agents.RoutingAgent.
func (r *ScriptedRouter) Route(ctx context.Context, payload map[string]any) (agents.RouteResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.Err != nil {
		return agents.RouteResult{}, r.Err
	}
	return agents.RouteResult{Result: r.Result, Verb: r.Verb}, nil
}

// Calls reports how many times the router ran.
func (r *ScriptedRouter) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// RouteTo builds a router that always resolves to verb.
func RouteTo(verb string) *ScriptedRouter {
	return &ScriptedRouter{
		Verb: verb,
		Result: agents.Result{
			Decision:   protocol.DecisionYes,
			Confidence: 0.8,
			Reason:     "classified",
		},
	}
}

// =============================================================================
// MOCK LLM CLIENT
// =============================================================================

// MockLLMClient returns canned responses keyed by prompt prefix.
// Unmatched prompts return Fallback.
type MockLLMClient struct {
	Responses map[string]string
	Fallback  string
	Err       error

	mu      sync.Mutex
	prompts []string
}

// Generate implements agents.LLMClient.
func (m *MockLLMClient) Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	for prefix, response := range m.Responses {
		if strings.HasPrefix(prompt, prefix) {
			return response, nil
		}
	}
	if m.Fallback != "" {
		return m.Fallback, nil
	}
	return "", fmt.Errorf("no canned response for prompt %q", prompt)
}

// CallCount reports how many prompts were generated.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

var _ agents.LLMClient = (*MockLLMClient)(nil)
