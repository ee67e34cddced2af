// Package supervisor implements the orchestration state machine.
//
// One call to Process handles one turn: validate the inbound envelope,
// resolve the verb (invoking the routing agent for the placeholder verb),
// then walk the workflow tree invoking agents until a stop. Every
// workflow step produces exactly one response envelope; a "no" decision is a
// hard stop that pauses the session for human input; any failure escaping
// the loop produces exactly one error envelope and never crashes the
// process.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/decisive-systems/conductor/bus"
	"github.com/decisive-systems/conductor/core/agents"
	"github.com/decisive-systems/conductor/core/config"
	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/observability"
	"github.com/decisive-systems/conductor/core/protocol"
	"github.com/decisive-systems/conductor/core/store"
	"github.com/decisive-systems/conductor/core/typeutil"
	"github.com/decisive-systems/conductor/core/workflow"
)

// State is a turn's position in the orchestration state machine.
type State string

const (
	StateRouting       State = "ROUTING"
	StateExecuting     State = "EXECUTING"
	StateAwaitingHuman State = "AWAITING_HUMAN"
	StateTerminal      State = "TERMINAL"
	StateError         State = "ERROR"
)

// Options are the supervisor's dependencies. Verbs, Workflows, Agents,
// and Config are required; Store and Bus are optional collaborators.
type Options struct {
	Verbs     *protocol.VerbSet
	Workflows *workflow.Registry
	Agents    *agents.Registry
	Config    *config.Config
	Logger    logging.Logger
	Store     *store.Store
	Bus       *bus.InMemoryBus
}

// Supervisor drives turns through registered workflows. Turns for the
// same session must be processed sequentially by the caller; turns for
// different sessions are independent and may run concurrently.
type Supervisor struct {
	verbs     *protocol.VerbSet
	workflows *workflow.Registry
	agents    *agents.Registry
	cfg       *config.Config
	logger    logging.Logger
	store     *store.Store
	bus       *bus.InMemoryBus
	policy    protocol.ValidationPolicy
	tracer    trace.Tracer
	sessions  *sessionTable
}

// New validates dependencies and builds a Supervisor. When a bus is
// supplied, the GetSessionState query handler is registered on it.
func New(opts Options) (*Supervisor, error) {
	if opts.Verbs == nil || opts.Workflows == nil || opts.Agents == nil || opts.Config == nil {
		return nil, fmt.Errorf("supervisor: verbs, workflows, agents, and config are required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		verbs:     opts.Verbs,
		workflows: opts.Workflows,
		agents:    opts.Agents,
		cfg:       opts.Config,
		logger:    opts.Logger.Bind("component", "supervisor"),
		store:     opts.Store,
		bus:       opts.Bus,
		policy:    protocol.ValidationPolicy{ClampConfidence: opts.Config.ClampConfidence},
		tracer:    otel.Tracer("conductor/supervisor"),
		sessions:  newSessionTable(),
	}

	if s.bus != nil {
		if err := s.bus.RegisterHandler("GetSessionState", s.handleSessionStateQuery); err != nil {
			return nil, err
		}
		if err := s.bus.RegisterHandler("CleanupSessions", s.handleCleanupCommand); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Process handles one inbound turn and returns the emitted envelopes in
// emission order. It never panics and never returns an empty slice: a
// failed turn yields exactly one error envelope.
func (s *Supervisor) Process(ctx context.Context, raw []byte) (emitted []*protocol.Envelope) {
	start := time.Now()
	t := &turn{sup: s, start: start}

	ctx, span := s.tracer.Start(ctx, "supervisor.process")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("turn_panicked", "panic", fmt.Sprint(rec))
			t.state = StateError
			t.emit(ctx, protocol.NewError(t.inbound, fmt.Sprintf("internal error: %v", rec)))
		}
		span.SetAttributes(
			attribute.String("turn.verb", string(t.verb)),
			attribute.String("turn.state", string(t.state)),
			attribute.Int("turn.steps", t.steps),
		)
		observability.RecordTurn(string(t.verb), string(t.state), time.Since(start))
		t.finish(ctx)
		emitted = t.emitted
	}()

	s.run(ctx, t, raw)
	return nil // replaced by the deferred assignment
}

// run executes the turn body; all stops go through t.fail or the loop's
// terminal branches.
func (s *Supervisor) run(ctx context.Context, t *turn, raw []byte) {
	env, err := protocol.Validate(raw, s.verbs, s.policy)
	if err != nil {
		t.fail(ctx, nil, err.Error())
		return
	}
	t.inbound = env
	t.verb = env.Verb

	if env.Kind != protocol.KindRequest {
		t.fail(ctx, env, fmt.Sprintf("cannot process %q envelope: only requests are accepted", env.Kind))
		return
	}

	payload := typeutil.DeepCopyMap(env.Payload)
	var agent string

	resumed := env.NextAgent != nil && *env.NextAgent != ""
	t.publish(ctx, &bus.TurnStarted{
		SessionID: env.SessionID,
		RequestID: env.RequestID,
		Verb:      string(env.Verb),
		Resumed:   resumed,
	})

	if resumed {
		verb, target, ok := s.beginResume(ctx, t, env)
		if !ok {
			return
		}
		t.verb = verb
		agent = target
		s.logger.Info("turn_resumed",
			"session_id", env.SessionID,
			"verb", string(verb),
			"resume_target", target,
		)
	} else if env.Verb == protocol.Verb(s.cfg.RoutingVerb) {
		t.state = StateRouting
		verb, entry, ok := s.route(ctx, t, env, payload)
		if !ok {
			return
		}
		t.verb = verb
		agent = entry
	} else {
		entry, err := s.workflows.Entry(env.Verb)
		if err != nil {
			t.fail(ctx, env, err.Error())
			return
		}
		agent = entry
	}

	s.execute(ctx, t, env, agent, payload)
}

// route invokes the routing agent for a placeholder-verb request and
// returns the resolved verb and entry agent, or ok=false when the turn
// already stopped. Routing precedes the step loop and emits no envelope
// of its own; only workflow steps produce responses.
func (s *Supervisor) route(ctx context.Context, t *turn, env *protocol.Envelope, payload map[string]any) (protocol.Verb, string, bool) {
	name := s.cfg.RoutingAgent
	rr, err := s.agents.Route(ctx, name, payload)
	if err != nil {
		// Only UnknownAgentError escapes the wrapper: a config defect.
		t.fail(ctx, env, err.Error())
		return "", "", false
	}

	if rr.Decision == protocol.DecisionNo {
		// Classification itself failed closed; no workflow step ran, so
		// the turn ends with one error envelope.
		t.fail(ctx, env, fmt.Sprintf("intent classification failed: %s", rr.Reason))
		return "", "", false
	}

	resolved, perr := s.verbs.Parse(rr.Verb)
	if perr == nil && resolved == protocol.Verb(s.cfg.RoutingVerb) {
		// Resolving back to the placeholder is as useless as an unknown verb.
		perr = fmt.Errorf("routing resolved the placeholder verb %q", resolved)
	}
	if perr != nil {
		if s.cfg.RoutePolicy == config.RoutePolicyFallback {
			resolved = protocol.Verb(s.cfg.FallbackVerb)
			s.logger.Warning("routing_fallback",
				"session_id", env.SessionID,
				"resolved", rr.Verb,
				"fallback", string(resolved),
			)
		} else {
			t.fail(ctx, env, fmt.Sprintf("routing agent %q resolved invalid verb: %v", name, perr))
			return "", "", false
		}
	}

	entry, err := s.workflows.Entry(resolved)
	if err != nil {
		t.fail(ctx, env, err.Error())
		return "", "", false
	}

	mergePatch(payload, rr.Patch)
	return resolved, entry, true
}

// beginResume validates a resume request against the paused session and
// returns the workflow verb and re-entry agent.
func (s *Supervisor) beginResume(ctx context.Context, t *turn, env *protocol.Envelope) (protocol.Verb, string, bool) {
	echoed := *env.NextAgent
	sess, ok := s.sessions.get(env.SessionID)
	if !ok {
		sess, ok = s.recoverSession(ctx, env.SessionID)
	}
	if !ok || sess.state != StateAwaitingHuman {
		t.fail(ctx, env, fmt.Sprintf("session %q has no paused step to resume", env.SessionID))
		return "", "", false
	}
	if echoed != sess.pausedAt {
		t.fail(ctx, env, fmt.Sprintf("resume step mismatch: session %q paused at %q, request echoes %q", env.SessionID, sess.pausedAt, echoed))
		return "", "", false
	}

	// Re-enter via the explicit resume map; intent classification is
	// never re-run on a resume.
	target, err := s.workflows.ResumeTarget(sess.verb, sess.pausedAt)
	if err != nil {
		t.fail(ctx, env, err.Error())
		return "", "", false
	}
	return sess.verb, target, true
}

// recoverSession rebuilds a paused session from the audit log so a
// restart does not orphan paused conversations. A pause is the only
// response with returnCode -1 and a non-null nextAgent.
func (s *Supervisor) recoverSession(ctx context.Context, sessionID string) (sessionState, bool) {
	if s.store == nil {
		return sessionState{}, false
	}
	last, err := s.store.LastResponse(ctx, sessionID)
	if err != nil {
		s.logger.Warning("audit_lookup_failed", "session_id", sessionID, "error", err.Error())
		return sessionState{}, false
	}
	if last == nil || last.ReturnCode != protocol.ReturnError || last.NextAgent == nil || *last.NextAgent == "" {
		return sessionState{}, false
	}

	s.sessions.pause(sessionID, last.Verb, *last.NextAgent)
	s.logger.Info("session_recovered",
		"session_id", sessionID,
		"verb", string(last.Verb),
		"paused_at", *last.NextAgent,
	)
	return sessionState{verb: last.Verb, pausedAt: *last.NextAgent, state: StateAwaitingHuman}, true
}

// execute walks the forward tree from agent until a stop, emitting one
// response envelope per step.
func (s *Supervisor) execute(ctx context.Context, t *turn, env *protocol.Envelope, agent string, payload map[string]any) {
	t.state = StateExecuting
	verb := t.verb

	for hop := 0; ; hop++ {
		if t.steps >= s.cfg.MaxAgentHops {
			t.fail(ctx, env, fmt.Sprintf("turn exceeded %d agent hops; workflow %q may be miswired", s.cfg.MaxAgentHops, verb))
			return
		}

		t.publish(ctx, &bus.AgentStarted{
			AgentName: agent,
			SessionID: env.SessionID,
			RequestID: env.RequestID,
			Verb:      string(verb),
		})

		stepStart := time.Now()
		res, err := s.agents.Call(ctx, agent, verb, payload)
		if err != nil {
			t.fail(ctx, env, err.Error())
			return
		}
		t.steps++
		mergePatch(payload, res.Patch)

		t.publish(ctx, &bus.AgentCompleted{
			AgentName:  agent,
			SessionID:  env.SessionID,
			RequestID:  env.RequestID,
			Decision:   string(res.Decision),
			Confidence: res.Confidence,
			DurationMS: time.Since(stepStart).Milliseconds(),
		})

		next, err := s.workflows.Next(verb, agent, res.Decision)
		if err != nil {
			t.fail(ctx, env, err.Error())
			return
		}

		if res.Decision == protocol.DecisionNo {
			if s.workflows.IsTerminal(next) {
				// A "no" with no notification step ends the workflow
				// without a resumable pause.
				t.state = StateTerminal
				s.sessions.clear(env.SessionID)
				t.emit(ctx, protocol.NewResponse(env, verb, nil, res.Decision, res.Confidence, res.Reason, protocol.ReturnError, payload))
				return
			}
			t.state = StateAwaitingHuman
			s.sessions.pause(env.SessionID, verb, next)
			t.emit(ctx, protocol.NewResponse(env, verb, protocol.StringPtr(next), res.Decision, res.Confidence, res.Reason, protocol.ReturnError, payload))
			t.publish(ctx, &bus.AwaitingHuman{
				SessionID: env.SessionID,
				RequestID: env.RequestID,
				Verb:      string(verb),
				PausedAt:  next,
				Reason:    res.Reason,
			})
			s.logger.Info("turn_paused",
				"session_id", env.SessionID,
				"paused_at", next,
				"reason", res.Reason,
			)
			return
		}

		if s.workflows.IsTerminal(next) {
			t.state = StateTerminal
			s.sessions.clear(env.SessionID)
			t.emit(ctx, protocol.NewResponse(env, verb, nil, res.Decision, res.Confidence, res.Reason, protocol.ReturnTerminalSuccess, payload))
			s.logger.Info("turn_completed",
				"session_id", env.SessionID,
				"verb", string(verb),
				"steps", t.steps,
			)
			return
		}

		t.emit(ctx, protocol.NewResponse(env, verb, protocol.StringPtr(next), res.Decision, res.Confidence, res.Reason, protocol.ReturnContinue, payload))
		agent = next
	}
}

// CleanupStaleSessions drops paused sessions idle longer than the
// configured TTL and returns how many were removed.
func (s *Supervisor) CleanupStaleSessions() int {
	removed := s.sessions.cleanup(s.cfg.SessionTTL)
	if removed > 0 {
		s.logger.Info("stale_sessions_removed", "count", removed)
	}
	return removed
}

// SessionCount reports the number of tracked sessions.
func (s *Supervisor) SessionCount() int {
	return s.sessions.count()
}

func (s *Supervisor) handleCleanupCommand(ctx context.Context, msg bus.Message) (any, error) {
	if _, ok := msg.(*bus.CleanupSessions); !ok {
		return nil, fmt.Errorf("unexpected message type %T", msg)
	}
	s.CleanupStaleSessions()
	return nil, nil
}

func (s *Supervisor) handleSessionStateQuery(ctx context.Context, msg bus.Message) (any, error) {
	q, ok := msg.(*bus.GetSessionState)
	if !ok {
		return nil, fmt.Errorf("unexpected message type %T", msg)
	}
	sess, found := s.sessions.get(q.SessionID)
	if !found {
		return &bus.SessionStateResponse{Found: false}, nil
	}
	return &bus.SessionStateResponse{
		Found:    true,
		State:    string(sess.state),
		Verb:     string(sess.verb),
		PausedAt: sess.pausedAt,
	}, nil
}

// mergePatch applies a step's payload patch additively.
func mergePatch(payload, patch map[string]any) {
	for k, v := range patch {
		payload[k] = v
	}
}

// =============================================================================
// TURN BOOKKEEPING
// =============================================================================

// turn accumulates one Process call's emissions and final state.
type turn struct {
	sup     *Supervisor
	inbound *protocol.Envelope
	verb    protocol.Verb
	state   State
	steps   int
	start   time.Time
	emitted []*protocol.Envelope
}

// emit records one envelope: best-effort audit append, bus publication,
// metrics, and the Process return slice.
func (t *turn) emit(ctx context.Context, env *protocol.Envelope) {
	seq := len(t.emitted)
	if t.sup.store != nil {
		if err := t.sup.store.AppendEnvelope(ctx, env, seq); err != nil {
			t.sup.logger.Warning("audit_append_failed",
				"session_id", env.SessionID,
				"seq", seq,
				"error", err.Error(),
			)
		}
	}
	if t.sup.bus != nil {
		_ = t.sup.bus.Publish(ctx, &bus.EnvelopeEmitted{Envelope: env.Clone()})
	}
	observability.RecordEnvelopeEmitted(string(env.Kind))
	t.emitted = append(t.emitted, env)
}

// fail stops the turn with exactly one error envelope.
func (t *turn) fail(ctx context.Context, env *protocol.Envelope, reason string) {
	t.sup.logger.Warning("turn_failed", "reason", reason)
	t.state = StateError
	t.emit(ctx, protocol.NewError(env, reason))
}

// publish sends a lifecycle event when a bus is attached.
func (t *turn) publish(ctx context.Context, msg bus.Message) {
	if t.sup.bus != nil {
		_ = t.sup.bus.Publish(ctx, msg)
	}
}

// finish emits the TurnCompleted event.
func (t *turn) finish(ctx context.Context) {
	if t.inbound == nil {
		return
	}
	t.publish(ctx, &bus.TurnCompleted{
		SessionID:  t.inbound.SessionID,
		RequestID:  t.inbound.RequestID,
		Verb:       string(t.verb),
		State:      string(t.state),
		Steps:      t.steps,
		DurationMS: time.Since(t.start).Milliseconds(),
	})
}
