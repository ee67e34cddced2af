package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/observability"
	"github.com/decisive-systems/conductor/core/protocol"
)

// Registry holds the registered agents and wraps every invocation with
// the fail-closed policy: panics, returned errors, and timeouts all
// become "no" decisions with diagnostic reasons. The only error Call or
// Route ever returns is UnknownAgentError.
type Registry struct {
	steps   map[string]StepAgent
	routers map[string]RoutingAgent
	timeout time.Duration
	logger  logging.Logger
	tracer  trace.Tracer
	mu      sync.RWMutex
}

// NewRegistry creates a registry. timeout bounds every agent invocation;
// zero disables the bound; production config always sets one.
func NewRegistry(timeout time.Duration, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		steps:   make(map[string]StepAgent),
		routers: make(map[string]RoutingAgent),
		timeout: timeout,
		logger:  logger,
		tracer:  otel.Tracer("conductor/agents"),
	}
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Register installs a step agent under a name.
func (r *Registry) Register(name string, agent StepAgent) error {
	if name == "" {
		return &RegistrationError{Name: name, Reason: "empty name"}
	}
	if agent == nil {
		return &RegistrationError{Name: name, Reason: "nil agent"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[name]; exists {
		return &RegistrationError{Name: name, Reason: "already registered"}
	}
	r.steps[name] = agent
	r.logger.Debug("agent_registered", "agent", name)
	return nil
}

// RegisterRouter installs a routing agent under a name.
func (r *Registry) RegisterRouter(name string, agent RoutingAgent) error {
	if name == "" {
		return &RegistrationError{Name: name, Reason: "empty name"}
	}
	if agent == nil {
		return &RegistrationError{Name: name, Reason: "nil agent"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routers[name]; exists {
		return &RegistrationError{Name: name, Reason: "already registered"}
	}
	r.routers[name] = agent
	r.logger.Debug("routing_agent_registered", "agent", name)
	return nil
}

// Has reports whether a step agent is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.steps[name]
	return ok
}

// HasRouter reports whether a routing agent is registered under name.
func (r *Registry) HasRouter(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.routers[name]
	return ok
}

// List returns registered step agent names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.steps))
	for name := range r.steps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// INVOCATION
// =============================================================================

// Call invokes a step agent with the fail-closed wrapper. The returned
// Result is always well-formed: decision is yes or no, confidence is in
// [0,1], and a failing agent yields a "no" with the diagnostic as reason.
func (r *Registry) Call(ctx context.Context, name string, verb protocol.Verb, payload map[string]any) (Result, error) {
	r.mu.RLock()
	agent, ok := r.steps[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, &UnknownAgentError{Name: name}
	}

	ctx, span := r.tracer.Start(ctx, "agent.execute",
		trace.WithAttributes(
			attribute.String("agent.name", name),
			attribute.String("verb", string(verb)),
		))
	defer span.End()

	start := time.Now()
	res := r.invoke(ctx, name, func(callCtx context.Context) (Result, error) {
		return agent.Execute(callCtx, verb, payload)
	})
	duration := time.Since(start)

	observability.RecordStep(name, string(res.Decision), duration)
	span.SetAttributes(attribute.String("agent.decision", string(res.Decision)))
	r.logger.Debug("agent_completed",
		"agent", name,
		"verb", string(verb),
		"decision", string(res.Decision),
		"duration_ms", duration.Milliseconds(),
	)
	return res, nil
}

// Route invokes a routing agent with the same wrapper. On failure the
// embedded Result fails closed and the resolved verb is empty.
func (r *Registry) Route(ctx context.Context, name string, payload map[string]any) (RouteResult, error) {
	r.mu.RLock()
	agent, ok := r.routers[name]
	r.mu.RUnlock()
	if !ok {
		return RouteResult{}, &UnknownAgentError{Name: name}
	}

	ctx, span := r.tracer.Start(ctx, "agent.route",
		trace.WithAttributes(attribute.String("agent.name", name)))
	defer span.End()

	start := time.Now()
	var resolved string
	res := r.invoke(ctx, name, func(callCtx context.Context) (Result, error) {
		rr, err := agent.Route(callCtx, payload)
		if err != nil {
			return Result{}, err
		}
		resolved = rr.Verb
		return rr.Result, nil
	})
	duration := time.Since(start)

	if res.Decision == protocol.DecisionNo {
		resolved = ""
	}
	observability.RecordStep(name, string(res.Decision), duration)
	span.SetAttributes(
		attribute.String("agent.decision", string(res.Decision)),
		attribute.String("agent.resolved_verb", resolved),
	)
	r.logger.Debug("routing_completed",
		"agent", name,
		"decision", string(res.Decision),
		"resolved_verb", resolved,
		"duration_ms", duration.Milliseconds(),
	)
	return RouteResult{Result: res, Verb: resolved}, nil
}

// invoke runs one agent body in a goroutine, recovering panics and
// enforcing the per-call timeout. Whatever happens inside, the returned
// Result is well-formed.
func (r *Registry) invoke(ctx context.Context, name string, body func(context.Context) (Result, error)) Result {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		res, err := body(callCtx)
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-callCtx.Done():
		reason := fmt.Sprintf("agent %q timed out after %s", name, r.timeout)
		if ctx.Err() != nil {
			reason = fmt.Sprintf("agent %q cancelled: %v", name, ctx.Err())
		}
		r.logger.Warning("agent_timeout", "agent", name, "timeout", r.timeout.String())
		return failClosed(reason)
	case out := <-done:
		if out.err != nil {
			r.logger.Warning("agent_failed", "agent", name, "error", out.err.Error())
			return failClosed(fmt.Sprintf("agent %q failed: %v", name, out.err))
		}
		return normalize(name, out.res)
	}
}

// failClosed is the wrapper's conversion of any failure into a hard stop.
func failClosed(reason string) Result {
	return Result{
		Decision:   protocol.DecisionNo,
		Confidence: 1.0,
		Reason:     reason,
	}
}

// normalize repairs a result whose fields are outside the contract.
func normalize(name string, res Result) Result {
	if res.Decision != protocol.DecisionYes && res.Decision != protocol.DecisionNo {
		return failClosed(fmt.Sprintf("agent %q returned malformed decision %q", name, res.Decision))
	}
	if math.IsNaN(res.Confidence) {
		res.Confidence = 0
	}
	res.Confidence = math.Min(1, math.Max(0, res.Confidence))
	return res
}
