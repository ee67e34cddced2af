package bus

import (
	"context"
	"sync"
	"time"

	"github.com/decisive-systems/conductor/core/logging"
)

// InMemoryBus is a thread-safe single-process bus.
//
// Features:
//   - Event fan-out to multiple subscribers
//   - Query request-response with timeout
//   - Command fire-and-forget
//   - Middleware chain for cross-cutting concerns
//
// Usage:
//
//	b := New(30*time.Second, logger)
//	unsub := b.Subscribe("EnvelopeEmitted", transportHandler)
//	b.Publish(ctx, &EnvelopeEmitted{Envelope: env})
type InMemoryBus struct {
	handlers     map[string]HandlerFunc
	subscribers  map[string][]subscription
	middleware   []Middleware
	queryTimeout time.Duration
	nextSubID    int
	logger       logging.Logger
	mu           sync.RWMutex
}

type subscription struct {
	id      int
	handler HandlerFunc
}

// New creates an InMemoryBus.
func New(queryTimeout time.Duration, logger logging.Logger) *InMemoryBus {
	if logger == nil {
		logger = logging.Nop()
	}
	return &InMemoryBus{
		handlers:     make(map[string]HandlerFunc),
		subscribers:  make(map[string][]subscription),
		queryTimeout: queryTimeout,
		logger:       logger.Bind("component", "bus"),
	}
}

// =============================================================================
// MESSAGING
// =============================================================================

// Publish delivers an event to all subscribers concurrently. Subscriber
// errors are logged and do not stop other subscribers.
func (b *InMemoryBus) Publish(ctx context.Context, event Message) error {
	eventType := GetMessageType(event)

	processed, err := b.runMiddlewareBefore(ctx, event)
	if err != nil {
		return err
	}
	if processed == nil {
		b.logger.Debug("event_aborted_by_middleware", "event", eventType)
		return nil
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[eventType]))
	copy(subs, b.subscribers[eventType])
	b.mu.RUnlock()

	if len(subs) == 0 {
		_, _ = b.runMiddlewareAfter(ctx, event, nil, nil)
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(subs))
	for i, sub := range subs {
		wg.Add(1)
		go func(idx int, h HandlerFunc) {
			defer wg.Done()
			if _, err := h(ctx, processed); err != nil {
				errs[idx] = err
				b.logger.Warning("subscriber_failed", "event", eventType, "error", err.Error())
			}
		}(i, sub.handler)
	}
	wg.Wait()

	var firstErr error
	for _, e := range errs {
		if e != nil {
			firstErr = e
			break
		}
	}
	_, _ = b.runMiddlewareAfter(ctx, event, nil, firstErr)
	return nil
}

// Send delivers a command to its single handler, fire-and-forget.
func (b *InMemoryBus) Send(ctx context.Context, command Message) error {
	messageType := GetMessageType(command)

	processed, err := b.runMiddlewareBefore(ctx, command)
	if err != nil {
		return err
	}
	if processed == nil {
		b.logger.Debug("command_aborted_by_middleware", "command", messageType)
		return nil
	}

	b.mu.RLock()
	handler, exists := b.handlers[messageType]
	b.mu.RUnlock()
	if !exists {
		b.logger.Warning("no_command_handler", "command", messageType)
		return nil
	}

	_, handlerErr := handler(ctx, processed)
	if handlerErr != nil {
		b.logger.Warning("command_handler_failed", "command", messageType, "error", handlerErr.Error())
	}
	_, _ = b.runMiddlewareAfter(ctx, command, nil, handlerErr)
	return handlerErr
}

// QuerySync sends a query and waits for the handler's response, bounded
// by the bus query timeout.
func (b *InMemoryBus) QuerySync(ctx context.Context, query Query) (any, error) {
	messageType := GetMessageType(query)

	processed, err := b.runMiddlewareBefore(ctx, query)
	if err != nil {
		return nil, err
	}
	if processed == nil {
		return nil, &NoHandlerError{MessageType: messageType}
	}

	b.mu.RLock()
	handler, exists := b.handlers[messageType]
	b.mu.RUnlock()
	if !exists {
		return nil, &NoHandlerError{MessageType: messageType}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	type result struct {
		value any
		err   error
	}
	resultCh := make(chan result, 1)
	go func() {
		v, e := handler(timeoutCtx, processed)
		resultCh <- result{value: v, err: e}
	}()

	select {
	case <-timeoutCtx.Done():
		err := &QueryTimeoutError{MessageType: messageType, Timeout: b.queryTimeout.Seconds()}
		_, _ = b.runMiddlewareAfter(ctx, query, nil, err)
		return nil, err
	case res := <-resultCh:
		finalResult, mwErr := b.runMiddlewareAfter(ctx, query, res.value, res.err)
		if mwErr != nil {
			return finalResult, mwErr
		}
		return finalResult, res.err
	}
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Subscribe registers an event subscriber. The returned function removes
// exactly this subscription.
func (b *InMemoryBus) Subscribe(eventType string, handler HandlerFunc) func() {
	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// RegisterHandler registers the single handler for a command or query
// type.
func (b *InMemoryBus) RegisterHandler(messageType string, handler HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[messageType]; exists {
		return &HandlerAlreadyRegisteredError{MessageType: messageType}
	}
	b.handlers[messageType] = handler
	return nil
}

// AddMiddleware appends middleware; executed in registration order on the
// way in, reverse order on the way out.
func (b *InMemoryBus) AddMiddleware(middleware Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, middleware)
}

// =============================================================================
// INTROSPECTION
// =============================================================================

// HasHandler reports whether a handler is registered for a message type.
func (b *InMemoryBus) HasHandler(messageType string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.handlers[messageType]
	return exists
}

// SubscriberCount reports the number of subscribers for an event type.
func (b *InMemoryBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// Clear removes all handlers, subscribers, and middleware. Tests only.
func (b *InMemoryBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]HandlerFunc)
	b.subscribers = make(map[string][]subscription)
	b.middleware = nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (b *InMemoryBus) runMiddlewareBefore(ctx context.Context, message Message) (Message, error) {
	b.mu.RLock()
	mws := make([]Middleware, len(b.middleware))
	copy(mws, b.middleware)
	b.mu.RUnlock()

	current := message
	for _, mw := range mws {
		result, err := mw.Before(ctx, current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		current = result
	}
	return current, nil
}

func (b *InMemoryBus) runMiddlewareAfter(ctx context.Context, message Message, result any, err error) (any, error) {
	b.mu.RLock()
	mws := make([]Middleware, len(b.middleware))
	copy(mws, b.middleware)
	b.mu.RUnlock()

	currentResult := result
	for i := len(mws) - 1; i >= 0; i-- {
		afterResult, afterErr := mws[i].After(ctx, message, currentResult, err)
		if afterErr != nil {
			err = afterErr
		}
		if afterResult != nil {
			currentResult = afterResult
		}
	}
	return currentResult, err
}
