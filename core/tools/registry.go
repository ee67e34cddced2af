package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/observability"
)

// Handler executes one tool call. A returned error becomes an error
// Result; handlers are free to return one for expected failures.
type Handler func(ctx context.Context, params map[string]any) (map[string]any, error)

// Definition carries a tool's metadata.
type Definition struct {
	Name        string
	Description string
	Risk        RiskLevel
}

// Registry holds registered tools. Execute absorbs every failure mode
// (unknown tool, handler error, handler panic) into an error Result.
type Registry struct {
	handlers    map[string]Handler
	definitions map[string]Definition
	logger      logging.Logger
	mu          sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		handlers:    make(map[string]Handler),
		definitions: make(map[string]Definition),
		logger:      logger,
	}
}

// Register installs a tool.
func (r *Registry) Register(def Definition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if handler == nil {
		return fmt.Errorf("register tool %q: nil handler", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[def.Name]; exists {
		return fmt.Errorf("register tool %q: already registered", def.Name)
	}
	r.handlers[def.Name] = handler
	r.definitions[def.Name] = def
	r.logger.Debug("tool_registered", "tool", def.Name, "risk", string(def.Risk))
	return nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// List returns registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GetDefinition returns a tool's metadata.
func (r *Registry) GetDefinition(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

// Execute runs a tool. It never returns a Go error: every failure mode
// comes back as a Result with StatusError so the calling agent can fold
// it into its own decision.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool_panicked", "tool", name, "panic", fmt.Sprint(rec))
			result = Failure("panic", "tool %q panicked: %v", name, rec)
		}
		observability.RecordToolExecution(name, string(result.Status))
	}()

	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warning("tool_not_found", "tool", name)
		return Failure("not_found", "tool %q is not registered", name)
	}

	data, err := handler(ctx, params)
	if err != nil {
		r.logger.Warning("tool_failed", "tool", name, "error", err.Error())
		return RecoverableFailure("execution", "tool %q failed: %v", name, err)
	}
	return Success(data)
}
