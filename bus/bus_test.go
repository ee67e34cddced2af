package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/protocol"
)

func newTestBus() *InMemoryBus {
	return New(time.Second, logging.Nop())
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := newTestBus()

	var mu sync.Mutex
	var got []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		b.Subscribe("EnvelopeEmitted", func(ctx context.Context, msg Message) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name)
			return nil, nil
		})
	}

	env := protocol.NewError(nil, "test")
	require.NoError(t, b.Publish(context.Background(), &EnvelopeEmitted{Envelope: env}))
	assert.Len(t, got, 3)
}

func TestSubscriberErrorDoesNotStopOthers(t *testing.T) {
	b := newTestBus()

	delivered := false
	b.Subscribe("TurnStarted", func(context.Context, Message) (any, error) {
		return nil, errors.New("subscriber broken")
	})
	b.Subscribe("TurnStarted", func(context.Context, Message) (any, error) {
		delivered = true
		return nil, nil
	})

	require.NoError(t, b.Publish(context.Background(), &TurnStarted{SessionID: "s"}))
	assert.True(t, delivered)
}

func TestUnsubscribeRemovesExactlyOneSubscription(t *testing.T) {
	b := newTestBus()

	h := func(context.Context, Message) (any, error) { return nil, nil }
	unsub := b.Subscribe("TurnCompleted", h)
	b.Subscribe("TurnCompleted", h)
	require.Equal(t, 2, b.SubscriberCount("TurnCompleted"))

	unsub()
	assert.Equal(t, 1, b.SubscriberCount("TurnCompleted"))
	unsub() // second call is a no-op
	assert.Equal(t, 1, b.SubscriberCount("TurnCompleted"))
}

func TestQuerySyncReturnsHandlerResponse(t *testing.T) {
	b := newTestBus()
	require.NoError(t, b.RegisterHandler("GetSessionState", func(ctx context.Context, msg Message) (any, error) {
		q := msg.(*GetSessionState)
		return &SessionStateResponse{Found: true, State: "AWAITING_HUMAN", Verb: "RULE", PausedAt: q.SessionID}, nil
	}))

	res, err := b.QuerySync(context.Background(), &GetSessionState{SessionID: "s-1"})
	require.NoError(t, err)
	state := res.(*SessionStateResponse)
	assert.True(t, state.Found)
	assert.Equal(t, "AWAITING_HUMAN", state.State)
}

func TestQuerySyncWithoutHandlerFails(t *testing.T) {
	b := newTestBus()

	_, err := b.QuerySync(context.Background(), &GetSessionState{SessionID: "s-1"})
	var noHandler *NoHandlerError
	require.True(t, errors.As(err, &noHandler))
}

func TestSendDispatchesCommandToHandler(t *testing.T) {
	b := newTestBus()
	calls := 0
	require.NoError(t, b.RegisterHandler("CleanupSessions", func(ctx context.Context, msg Message) (any, error) {
		calls++
		return nil, nil
	}))

	require.NoError(t, b.Send(context.Background(), &CleanupSessions{}))
	assert.Equal(t, 1, calls)
}

func TestSendWithoutHandlerIsFireAndForget(t *testing.T) {
	b := newTestBus()

	// A command with no handler is logged and dropped, not an error.
	assert.NoError(t, b.Send(context.Background(), &CleanupSessions{}))
}

func TestQuerySyncTimesOut(t *testing.T) {
	b := New(30*time.Millisecond, logging.Nop())
	require.NoError(t, b.RegisterHandler("GetSessionState", func(ctx context.Context, msg Message) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	_, err := b.QuerySync(context.Background(), &GetSessionState{SessionID: "s-1"})
	var timeout *QueryTimeoutError
	require.True(t, errors.As(err, &timeout))
}

func TestDuplicateHandlerRejected(t *testing.T) {
	b := newTestBus()
	h := func(context.Context, Message) (any, error) { return nil, nil }

	require.NoError(t, b.RegisterHandler("GetSessionState", h))
	err := b.RegisterHandler("GetSessionState", h)
	var dup *HandlerAlreadyRegisteredError
	require.True(t, errors.As(err, &dup))
	assert.True(t, b.HasHandler("GetSessionState"))
}

// recordingMiddleware captures before/after invocations.
type recordingMiddleware struct {
	mu     sync.Mutex
	before []string
	after  []string
	abort  bool
}

func (m *recordingMiddleware) Before(ctx context.Context, msg Message) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before = append(m.before, GetMessageType(msg))
	if m.abort {
		return nil, nil
	}
	return msg, nil
}

func (m *recordingMiddleware) After(ctx context.Context, msg Message, result any, err error) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.after = append(m.after, GetMessageType(msg))
	return result, err
}

func TestMiddlewareSeesBeforeAndAfter(t *testing.T) {
	b := newTestBus()
	mw := &recordingMiddleware{}
	b.AddMiddleware(mw)

	delivered := false
	b.Subscribe("TurnStarted", func(context.Context, Message) (any, error) {
		delivered = true
		return nil, nil
	})

	require.NoError(t, b.Publish(context.Background(), &TurnStarted{}))
	assert.True(t, delivered)
	assert.Equal(t, []string{"TurnStarted"}, mw.before)
	assert.Equal(t, []string{"TurnStarted"}, mw.after)
}

func TestMiddlewareCanAbortDelivery(t *testing.T) {
	b := newTestBus()
	b.AddMiddleware(&recordingMiddleware{abort: true})

	delivered := false
	b.Subscribe("TurnStarted", func(context.Context, Message) (any, error) {
		delivered = true
		return nil, nil
	})

	require.NoError(t, b.Publish(context.Background(), &TurnStarted{}))
	assert.False(t, delivered)
}

func TestGetMessageTypeCoversDomainMessages(t *testing.T) {
	cases := map[string]Message{
		"TurnStarted":     &TurnStarted{},
		"TurnCompleted":   &TurnCompleted{},
		"AwaitingHuman":   &AwaitingHuman{},
		"AgentStarted":    &AgentStarted{},
		"AgentCompleted":  &AgentCompleted{},
		"EnvelopeEmitted": &EnvelopeEmitted{},
		"CleanupSessions": &CleanupSessions{},
		"GetSessionState": &GetSessionState{},
	}
	for want, msg := range cases {
		assert.Equal(t, want, GetMessageType(msg))
	}
}
