package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisive-systems/conductor/bus"
	"github.com/decisive-systems/conductor/core/agents"
	"github.com/decisive-systems/conductor/core/config"
	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/protocol"
	"github.com/decisive-systems/conductor/core/store"
	"github.com/decisive-systems/conductor/core/testutil"
	"github.com/decisive-systems/conductor/core/workflow"
)

// fixture builds a supervisor around the order-processing RULE workflow:
// verifyOrder -> checkInventory -> chargePayment -> shipOrder ->
// sendReceipt, "no" routing to sendMessageToChat, resume re-entering at
// checkInventory.
type fixture struct {
	sup    *Supervisor
	bus    *bus.InMemoryBus
	agents *agents.Registry
	cfg    *config.Config
	router *testutil.ScriptedRouter
	steps  map[string]*testutil.ScriptedAgent
}

func newFixture(t *testing.T, mutate func(*fixture)) *fixture {
	t.Helper()

	verbs := protocol.NewVerbSet(protocol.VerbRule, protocol.VerbContent, protocol.VerbGeneric)

	workflows := mustRuleWorkflows(t)

	cfg := config.Default()
	cfg.AgentTimeout = time.Second
	cfg.DatabasePath = ":memory:"

	f := &fixture{
		bus:    bus.New(time.Second, logging.Nop()),
		agents: agents.NewRegistry(cfg.AgentTimeout, logging.Nop()),
		cfg:    cfg,
		router: testutil.RouteTo("RULE"),
		steps: map[string]*testutil.ScriptedAgent{
			"verifyOrder":       testutil.Yes("order valid"),
			"checkInventory":    testutil.Yes("in stock"),
			"chargePayment":     testutil.Yes("charged"),
			"shipOrder":         testutil.Yes("shipped"),
			"sendReceipt":       testutil.Yes("receipt sent"),
			"sendMessageToChat": testutil.Yes("notified"),
		},
	}
	for name, agent := range f.steps {
		require.NoError(t, f.agents.Register(name, agent))
	}
	require.NoError(t, f.agents.RegisterRouter(cfg.RoutingAgent, f.router))

	if mutate != nil {
		mutate(f)
	}

	sup, err := New(Options{
		Verbs:     verbs,
		Workflows: workflows,
		Agents:    f.agents,
		Config:    f.cfg,
		Logger:    logging.Nop(),
		Bus:       f.bus,
	})
	require.NoError(t, err)
	f.sup = sup
	return f
}

func request(t *testing.T, session, request, verb string, nextAgent *string, payload map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"type":        "request",
		"version":     protocol.Version,
		"timestamp":   time.Now().UnixMilli(),
		"session_id":  session,
		"request_id":  request,
		"verb":        verb,
		"nextAgent":   nextAgent,
		"messageBody": payload,
	})
	require.NoError(t, err)
	return raw
}

func returnCodes(envs []*protocol.Envelope) []int {
	out := make([]int, len(envs))
	for i, e := range envs {
		out[i] = int(e.ReturnCode)
	}
	return out
}

func TestFullPipelineViaRouting(t *testing.T) {
	f := newFixture(t, nil)

	emitted := f.sup.Process(context.Background(), request(t, "s-1", "r-1", "GENERIC", nil, map[string]any{"raw_text": "ship order 42"}))

	// One response per workflow step; classification precedes the loop and
	// emits nothing of its own.
	require.Len(t, emitted, 5)
	assert.Equal(t, []int{0, 0, 0, 0, 1}, returnCodes(emitted))
	for _, e := range emitted {
		assert.Equal(t, protocol.KindResponse, e.Kind)
		assert.Equal(t, protocol.VerbRule, e.Verb)
		assert.Equal(t, "s-1", e.SessionID)
		assert.Equal(t, "r-1", e.RequestID)
	}

	// The first response is the entry agent's, pointing at its successor.
	assert.Equal(t, "checkInventory", *emitted[0].NextAgent)
	// The terminal response carries a null next step.
	assert.Nil(t, emitted[4].NextAgent)
	assert.Equal(t, protocol.DecisionYes, emitted[4].Decision)

	assert.Equal(t, 1, f.router.Calls())
	assert.Equal(t, 1, f.steps["sendReceipt"].Calls())
	assert.Equal(t, 0, f.steps["sendMessageToChat"].Calls())
	// A terminal turn tracks no session.
	assert.Equal(t, 0, f.sup.SessionCount())
}

func TestRoutedNoAtSecondNodeEmitsExactlyTwo(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["checkInventory"] = testutil.No("ambiguous entity")
		f.agents = recreated(t, f)
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-1b", "r-1", "GENERIC", nil, map[string]any{"raw_text": "ship it"}))

	require.Len(t, emitted, 2)
	assert.Equal(t, []int{0, -1}, returnCodes(emitted))
	assert.Equal(t, "sendMessageToChat", *emitted[1].NextAgent)
	assert.Equal(t, 1, f.router.Calls())
}

func TestDirectVerbSkipsRouting(t *testing.T) {
	f := newFixture(t, nil)

	emitted := f.sup.Process(context.Background(), request(t, "s-2", "r-1", "RULE", nil, map[string]any{}))

	require.Len(t, emitted, 5)
	assert.Equal(t, []int{0, 0, 0, 0, 1}, returnCodes(emitted))
	assert.Equal(t, 0, f.router.Calls())
}

func TestNoDecisionIsHardStop(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["checkInventory"] = testutil.No("inventory short")
		f.agents = recreated(t, f)
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-3", "r-1", "RULE", nil, map[string]any{}))

	require.Len(t, emitted, 2)
	assert.Equal(t, []int{0, -1}, returnCodes(emitted))

	last := emitted[1]
	assert.Equal(t, protocol.DecisionNo, last.Decision)
	assert.Equal(t, "sendMessageToChat", *last.NextAgent)
	assert.Equal(t, "inventory short", last.Reason)

	// The notification target is named, not invoked, and nothing past the
	// stop ran.
	assert.Equal(t, 0, f.steps["sendMessageToChat"].Calls())
	assert.Equal(t, 0, f.steps["chargePayment"].Calls())

	// The session is paused awaiting human input.
	res, err := f.bus.QuerySync(context.Background(), &bus.GetSessionState{SessionID: "s-3"})
	require.NoError(t, err)
	state := res.(*bus.SessionStateResponse)
	assert.True(t, state.Found)
	assert.Equal(t, string(StateAwaitingHuman), state.State)
	assert.Equal(t, "sendMessageToChat", state.PausedAt)
}

func TestResumeReentersViaResumeMap(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["checkInventory"] = testutil.No("inventory short")
		f.agents = recreated(t, f)
	})

	ctx := context.Background()
	first := f.sup.Process(ctx, request(t, "s-4", "r-1", "GENERIC", nil, map[string]any{"raw_text": "ship it"}))
	require.Equal(t, []int{0, -1}, returnCodes(first))
	require.Equal(t, 1, f.router.Calls())

	// Human restocks; the inventory agent will now approve.
	f.steps["checkInventory"].Result.Decision = protocol.DecisionYes
	f.steps["checkInventory"].Result.Reason = "restocked"

	resumed := f.sup.Process(ctx, request(t, "s-4", "r-2", "RULE", protocol.StringPtr("sendMessageToChat"), map[string]any{"approved": true}))

	// Re-entry at checkInventory, then chargePayment, shipOrder,
	// sendReceipt.
	require.Len(t, resumed, 4)
	assert.Equal(t, []int{0, 0, 0, 1}, returnCodes(resumed))
	// Intent classification is never re-run on resume.
	assert.Equal(t, 1, f.router.Calls())
	// verifyOrder ran once in the whole exchange.
	assert.Equal(t, 1, f.steps["verifyOrder"].Calls())
	assert.Equal(t, 0, f.sup.SessionCount())
}

func TestResumeMismatchedEchoIsRejected(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["verifyOrder"] = testutil.No("bad order")
		f.agents = recreated(t, f)
	})

	ctx := context.Background()
	first := f.sup.Process(ctx, request(t, "s-5", "r-1", "RULE", nil, nil))
	require.Equal(t, []int{-1}, returnCodes(first))

	emitted := f.sup.Process(ctx, request(t, "s-5", "r-2", "RULE", protocol.StringPtr("chargePayment"), nil))

	require.Len(t, emitted, 1)
	assert.Equal(t, protocol.KindError, emitted[0].Kind)
	assert.Contains(t, emitted[0].Reason, "resume step mismatch")

	// The pause survives a bad resume attempt.
	assert.Equal(t, 1, f.sup.SessionCount())
}

func TestResumeWithoutPausedSessionFails(t *testing.T) {
	f := newFixture(t, nil)

	emitted := f.sup.Process(context.Background(), request(t, "s-never-paused", "r-1", "RULE", protocol.StringPtr("sendMessageToChat"), nil))

	require.Len(t, emitted, 1)
	assert.Equal(t, protocol.KindError, emitted[0].Kind)
	assert.Contains(t, emitted[0].Reason, "no paused step")
}

func TestMalformedEnvelopeYieldsOneErrorEnvelope(t *testing.T) {
	f := newFixture(t, nil)

	for _, raw := range []string{
		`{not json`,
		`{"type":"request","verb":"REFUND","messageBody":{}}`,
		`{"type":"request","verb":"","messageBody":{}}`,
		`{"type":"request","verb":"RULE","messageBody":[1]}`,
		`{"type":"response","verb":"RULE","messageBody":{}}`,
	} {
		emitted := f.sup.Process(context.Background(), []byte(raw))
		require.Len(t, emitted, 1, "input %s", raw)
		assert.Equal(t, protocol.KindError, emitted[0].Kind)
		assert.Equal(t, protocol.ReturnError, emitted[0].ReturnCode)
		assert.NotEmpty(t, emitted[0].Reason)
	}
}

func TestUnknownWorkflowAgentIsConfigDefectNotCrash(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		// The workflow references verifyOrder but no such agent exists.
		reg := agents.NewRegistry(time.Second, logging.Nop())
		require.NoError(t, reg.RegisterRouter(f.cfg.RoutingAgent, f.router))
		f.agents = reg
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-6", "r-1", "RULE", nil, nil))

	require.Len(t, emitted, 1)
	assert.Equal(t, protocol.KindError, emitted[0].Kind)
	assert.Contains(t, emitted[0].Reason, "unknown agent")

	// The supervisor survives to serve the next turn.
	f2 := f.sup.Process(context.Background(), []byte(`{broken`))
	assert.Len(t, f2, 1)
}

func TestFailingAgentFailsClosedAndPauses(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["verifyOrder"] = &testutil.ScriptedAgent{Err: fmt.Errorf("llm unreachable")}
		f.agents = recreated(t, f)
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-7", "r-1", "RULE", nil, nil))

	require.Len(t, emitted, 1)
	assert.Equal(t, protocol.KindResponse, emitted[0].Kind)
	assert.Equal(t, protocol.DecisionNo, emitted[0].Decision)
	assert.Equal(t, protocol.ReturnError, emitted[0].ReturnCode)
	assert.Contains(t, emitted[0].Reason, "llm unreachable")
	assert.Equal(t, "sendMessageToChat", *emitted[0].NextAgent)
}

func TestRoutingRejectsUnknownResolvedVerbByDefault(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.router.Verb = "REFUND"
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-8", "r-1", "GENERIC", nil, nil))

	require.Len(t, emitted, 1)
	assert.Equal(t, protocol.KindError, emitted[0].Kind)
	assert.Contains(t, emitted[0].Reason, "resolved invalid verb")
}

func TestRoutingFallbackPolicyRoutesToFallbackVerb(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.router.Verb = "REFUND"
		f.cfg.RoutePolicy = config.RoutePolicyFallback
		f.cfg.FallbackVerb = "RULE"
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-9", "r-1", "GENERIC", nil, nil))

	require.Len(t, emitted, 5)
	assert.Equal(t, []int{0, 0, 0, 0, 1}, returnCodes(emitted))
	assert.Equal(t, protocol.VerbRule, emitted[0].Verb)
}

func TestRoutingFailureStopsTurn(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.router.Err = fmt.Errorf("classifier offline")
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-10", "r-1", "GENERIC", nil, nil))

	// No workflow step ran, so the only emission is one error envelope.
	require.Len(t, emitted, 1)
	assert.Equal(t, protocol.KindError, emitted[0].Kind)
	assert.Equal(t, protocol.ReturnError, emitted[0].ReturnCode)
	assert.Contains(t, emitted[0].Reason, "intent classification failed")
	assert.Contains(t, emitted[0].Reason, "classifier offline")
	assert.Equal(t, 0, f.steps["verifyOrder"].Calls())
}

func TestPayloadPatchesAccumulateAcrossSteps(t *testing.T) {
	var seen map[string]any
	f := newFixture(t, func(f *fixture) {
		f.steps["verifyOrder"] = testutil.YesWithPatch("order valid", map[string]any{"order_id": "o-42"})
		f.steps["checkInventory"] = &testutil.ScriptedAgent{Result: agents.Result{
			Decision:   protocol.DecisionYes,
			Confidence: 0.9,
			Patch:      map[string]any{"warehouse": "east"},
		}}
		probe := agents.StepFunc(func(ctx context.Context, verb protocol.Verb, payload map[string]any) (agents.Result, error) {
			seen = payload
			return agents.Result{Decision: protocol.DecisionYes, Confidence: 1}, nil
		})
		reg := agents.NewRegistry(time.Second, logging.Nop())
		require.NoError(t, reg.RegisterRouter(f.cfg.RoutingAgent, f.router))
		require.NoError(t, reg.Register("verifyOrder", f.steps["verifyOrder"]))
		require.NoError(t, reg.Register("checkInventory", f.steps["checkInventory"]))
		require.NoError(t, reg.Register("chargePayment", probe))
		require.NoError(t, reg.Register("shipOrder", testutil.Yes("shipped")))
		require.NoError(t, reg.Register("sendReceipt", testutil.Yes("receipt sent")))
		require.NoError(t, reg.Register("sendMessageToChat", testutil.Yes("notified")))
		f.agents = reg
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-11", "r-1", "RULE", nil, map[string]any{"raw_text": "ship"}))

	require.Len(t, emitted, 5)
	// The third agent sees both earlier patches plus the original body.
	assert.Equal(t, "o-42", seen["order_id"])
	assert.Equal(t, "east", seen["warehouse"])
	assert.Equal(t, "ship", seen["raw_text"])
	// Emitted envelopes carry the merged payload as of their step.
	assert.Equal(t, "o-42", emitted[0].Payload["order_id"])
	_, hasWarehouse := emitted[0].Payload["warehouse"]
	assert.False(t, hasWarehouse)
}

func TestMaxHopsBoundsMiswiredWorkflow(t *testing.T) {
	verbs := protocol.NewVerbSet(protocol.VerbRule)
	workflows := workflow.NewRegistry()
	// Structurally valid but cyclic.
	require.NoError(t, workflows.Register(protocol.VerbRule, workflow.Definition{
		Entry: "ping",
		Nodes: map[string]workflow.Node{
			"ping": {OnYes: "pong", OnNo: workflow.Terminal},
			"pong": {OnYes: "ping", OnNo: workflow.Terminal},
		},
	}))

	cfg := config.Default()
	cfg.MaxAgentHops = 6

	reg := agents.NewRegistry(time.Second, logging.Nop())
	require.NoError(t, reg.Register("ping", testutil.Yes("")))
	require.NoError(t, reg.Register("pong", testutil.Yes("")))

	sup, err := New(Options{
		Verbs: verbs, Workflows: workflows, Agents: reg,
		Config: cfg, Logger: logging.Nop(),
	})
	require.NoError(t, err)

	emitted := sup.Process(context.Background(), request(t, "s-12", "r-1", "RULE", nil, nil))

	last := emitted[len(emitted)-1]
	assert.Equal(t, protocol.KindError, last.Kind)
	assert.Contains(t, last.Reason, "agent hops")
	assert.Len(t, emitted, cfg.MaxAgentHops+1)
}

func TestBusReceivesEveryEmittedEnvelope(t *testing.T) {
	f := newFixture(t, nil)

	var mu sync.Mutex
	var seen []*protocol.Envelope
	f.bus.Subscribe("EnvelopeEmitted", func(ctx context.Context, msg bus.Message) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msg.(*bus.EnvelopeEmitted).Envelope)
		return nil, nil
	})

	emitted := f.sup.Process(context.Background(), request(t, "s-13", "r-1", "RULE", nil, nil))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, len(emitted))
	for i := range seen {
		assert.Equal(t, emitted[i].ReturnCode, seen[i].ReturnCode)
	}
}

func TestAuditLogRecordsTurn(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "audit.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := newFixture(t, nil)
	sup, err := New(Options{
		Verbs:     protocol.NewVerbSet(protocol.VerbRule, protocol.VerbContent, protocol.VerbGeneric),
		Workflows: mustRuleWorkflows(t),
		Agents:    f.agents,
		Config:    f.cfg,
		Logger:    logging.Nop(),
		Store:     st,
	})
	require.NoError(t, err)

	emitted := sup.Process(context.Background(), request(t, "s-14", "r-1", "RULE", nil, nil))
	require.Len(t, emitted, 5)

	logged, err := st.SessionEnvelopes(context.Background(), "s-14")
	require.NoError(t, err)
	assert.Len(t, logged, 5)

	last, err := st.LastResponse(context.Background(), "s-14")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, protocol.ReturnTerminalSuccess, last.ReturnCode)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["checkInventory"] = testutil.No("short")
		f.agents = recreated(t, f)
	})
	ctx := context.Background()

	// Session A pauses; session B completes; A's pause is untouched.
	a := f.sup.Process(ctx, request(t, "s-A", "r-1", "RULE", nil, nil))
	require.Equal(t, []int{0, -1}, returnCodes(a))

	f.steps["checkInventory"].Result.Decision = protocol.DecisionYes
	b := f.sup.Process(ctx, request(t, "s-B", "r-1", "RULE", nil, nil))
	require.Equal(t, []int{0, 0, 0, 0, 1}, returnCodes(b))

	res, err := f.bus.QuerySync(ctx, &bus.GetSessionState{SessionID: "s-A"})
	require.NoError(t, err)
	assert.True(t, res.(*bus.SessionStateResponse).Found)
}

func TestCleanupStaleSessions(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["verifyOrder"] = testutil.No("paused")
		f.agents = recreated(t, f)
		f.cfg.SessionTTL = time.Nanosecond
	})

	f.sup.Process(context.Background(), request(t, "s-old", "r-1", "RULE", nil, nil))
	require.Equal(t, 1, f.sup.SessionCount())

	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, 1, f.sup.CleanupStaleSessions())
	assert.Equal(t, 0, f.sup.SessionCount())
}

func TestResumeSurvivesRestartViaAuditLog(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "audit.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	verbs := protocol.NewVerbSet(protocol.VerbRule, protocol.VerbContent, protocol.VerbGeneric)
	cfg := config.Default()
	cfg.AgentTimeout = time.Second

	build := func(inventory *testutil.ScriptedAgent) *Supervisor {
		reg := agents.NewRegistry(time.Second, logging.Nop())
		for name, agent := range map[string]*testutil.ScriptedAgent{
			"verifyOrder":       testutil.Yes("order valid"),
			"chargePayment":     testutil.Yes("charged"),
			"shipOrder":         testutil.Yes("shipped"),
			"sendReceipt":       testutil.Yes("receipt sent"),
			"sendMessageToChat": testutil.Yes("notified"),
		} {
			require.NoError(t, reg.Register(name, agent))
		}
		require.NoError(t, reg.Register("checkInventory", inventory))
		require.NoError(t, reg.RegisterRouter(cfg.RoutingAgent, testutil.RouteTo("RULE")))
		sup, err := New(Options{
			Verbs: verbs, Workflows: mustRuleWorkflows(t), Agents: reg,
			Config: cfg, Logger: logging.Nop(), Store: st,
		})
		require.NoError(t, err)
		return sup
	}

	ctx := context.Background()
	first := build(testutil.No("inventory short"))
	paused := first.Process(ctx, request(t, "s-15", "r-1", "RULE", nil, nil))
	require.Equal(t, []int{0, -1}, returnCodes(paused))

	// A fresh supervisor has no in-memory session table; the pause is
	// rebuilt from the audit log.
	second := build(testutil.Yes("restocked"))
	require.Equal(t, 0, second.SessionCount())

	resumed := second.Process(ctx, request(t, "s-15", "r-2", "RULE", protocol.StringPtr("sendMessageToChat"), nil))
	assert.Equal(t, []int{0, 0, 0, 1}, returnCodes(resumed))
	assert.Equal(t, 0, second.SessionCount())
}

func TestCleanupSessionsCommandSweepsStalePauses(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.steps["verifyOrder"] = testutil.No("paused")
		f.agents = recreated(t, f)
		f.cfg.SessionTTL = time.Nanosecond
	})

	ctx := context.Background()
	f.sup.Process(ctx, request(t, "s-cmd", "r-1", "RULE", nil, nil))
	require.Equal(t, 1, f.sup.SessionCount())

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, f.bus.Send(ctx, &bus.CleanupSessions{}))
	assert.Equal(t, 0, f.sup.SessionCount())
}

// recreated rebuilds the agent registry from the fixture's current step
// map; used by mutations that replace agents before New.
func recreated(t *testing.T, f *fixture) *agents.Registry {
	t.Helper()
	reg := agents.NewRegistry(time.Second, logging.Nop())
	for name, agent := range f.steps {
		require.NoError(t, reg.Register(name, agent))
	}
	require.NoError(t, reg.RegisterRouter(f.cfg.RoutingAgent, f.router))
	return reg
}

func mustRuleWorkflows(t *testing.T) *workflow.Registry {
	t.Helper()
	workflows := workflow.NewRegistry()
	require.NoError(t, workflows.Register(protocol.VerbRule, workflow.Definition{
		Entry: "verifyOrder",
		Nodes: map[string]workflow.Node{
			"verifyOrder":       {OnYes: "checkInventory", OnNo: "sendMessageToChat"},
			"checkInventory":    {OnYes: "chargePayment", OnNo: "sendMessageToChat"},
			"chargePayment":     {OnYes: "shipOrder", OnNo: "sendMessageToChat"},
			"shipOrder":         {OnYes: "sendReceipt", OnNo: "sendMessageToChat"},
			"sendReceipt":       {OnYes: workflow.Terminal, OnNo: "sendMessageToChat"},
			"sendMessageToChat": {OnYes: workflow.Terminal, OnNo: workflow.Terminal},
		},
		Resume: map[string]string{"sendMessageToChat": "checkInventory"},
	}))
	return workflows
}
