package bus

import (
	"context"

	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/observability"
)

// LoggingMiddleware logs every message crossing the bus at debug level.
type LoggingMiddleware struct {
	logger logging.Logger
}

// NewLoggingMiddleware creates a LoggingMiddleware.
func NewLoggingMiddleware(logger logging.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LoggingMiddleware{logger: logger.Bind("component", "bus")}
}

// Before implements Middleware.
func (m *LoggingMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	m.logger.Debug("bus_message",
		"message_type", GetMessageType(message),
		"category", message.Category(),
	)
	return message, nil
}

// After implements Middleware.
func (m *LoggingMiddleware) After(ctx context.Context, message Message, result any, err error) (any, error) {
	if err != nil {
		m.logger.Warning("bus_message_failed",
			"message_type", GetMessageType(message),
			"error", err.Error(),
		)
	}
	return result, err
}

// MetricsMiddleware counts bus traffic by message type and outcome.
type MetricsMiddleware struct{}

// NewMetricsMiddleware creates a MetricsMiddleware.
func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{}
}

// Before implements Middleware.
func (m *MetricsMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	return message, nil
}

// After implements Middleware.
func (m *MetricsMiddleware) After(ctx context.Context, message Message, result any, err error) (any, error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.RecordBusMessage(GetMessageType(message), outcome)
	return result, err
}

var (
	_ Middleware = (*LoggingMiddleware)(nil)
	_ Middleware = (*MetricsMiddleware)(nil)
)
