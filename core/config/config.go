// Package config holds the runtime configuration for the engine.
//
// Configuration is an explicit value constructed once at startup and
// passed to the components that need it. There are no package-level
// mutable settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RoutePolicy decides what happens when the routing agent resolves a verb
// outside the registered set.
type RoutePolicy string

const (
	// RoutePolicyReject fails the turn with one error envelope. Default.
	RoutePolicyReject RoutePolicy = "reject"
	// RoutePolicyFallback silently routes to FallbackVerb instead.
	RoutePolicyFallback RoutePolicy = "fallback"
)

// Config is the full runtime configuration.
type Config struct {
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	// Verbs is the registered verb set.
	Verbs []string `yaml:"verbs"`

	// RoutingVerb is the placeholder verb that triggers classification.
	RoutingVerb string `yaml:"routing_verb"`
	// RoutingAgent names the registered routing agent.
	RoutingAgent string `yaml:"routing_agent"`
	// RoutePolicy handles an unknown resolved verb; see RoutePolicy.
	RoutePolicy RoutePolicy `yaml:"route_policy"`
	// FallbackVerb is used when RoutePolicy is fallback.
	FallbackVerb string `yaml:"fallback_verb"`

	// ClampConfidence clamps out-of-range confidence instead of rejecting.
	ClampConfidence bool `yaml:"clamp_confidence"`

	// MaxAgentHops bounds the steps of one turn against miswired cycles.
	MaxAgentHops int `yaml:"max_agent_hops"`

	// AgentTimeout bounds each agent invocation.
	AgentTimeout time.Duration `yaml:"-"`
	// SessionTTL is the idle lifetime of a paused session.
	SessionTTL time.Duration `yaml:"-"`
	// QueryTimeout bounds synchronous bus queries.
	QueryTimeout time.Duration `yaml:"-"`

	// Raw duration strings; parsed by Load.
	AgentTimeoutRaw string `yaml:"agent_timeout"`
	SessionTTLRaw   string `yaml:"session_ttl"`
	QueryTimeoutRaw string `yaml:"query_timeout"`

	// DatabasePath is the SQLite file; ":memory:" for ephemeral.
	DatabasePath string `yaml:"database_path"`
	// WorkflowPath is the workflow definition YAML file.
	WorkflowPath string `yaml:"workflow_path"`

	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		Verbs:           []string{"RULE", "CONTENT", "GENERIC"},
		RoutingVerb:     "GENERIC",
		RoutingAgent:    "intentClassifier",
		RoutePolicy:     RoutePolicyReject,
		ClampConfidence: true,
		MaxAgentHops:    32,
		AgentTimeout:    30 * time.Second,
		SessionTTL:      time.Hour,
		QueryTimeout:    10 * time.Second,
		DatabasePath:    "data/conductor.db",
		Tracing: TracingConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "conductor",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	for _, d := range []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.AgentTimeoutRaw, &cfg.AgentTimeout, "agent_timeout"},
		{cfg.SessionTTLRaw, &cfg.SessionTTL, "session_ttl"},
		{cfg.QueryTimeoutRaw, &cfg.QueryTimeout, "query_timeout"},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if len(c.Verbs) == 0 {
		return fmt.Errorf("config: no verbs registered")
	}
	switch c.RoutePolicy {
	case RoutePolicyReject:
	case RoutePolicyFallback:
		if c.FallbackVerb == "" {
			return fmt.Errorf("config: route_policy fallback requires fallback_verb")
		}
	default:
		return fmt.Errorf("config: unknown route_policy %q", c.RoutePolicy)
	}
	if c.MaxAgentHops <= 0 {
		return fmt.Errorf("config: max_agent_hops must be positive")
	}
	if c.AgentTimeout <= 0 {
		return fmt.Errorf("config: agent_timeout must be positive")
	}
	return nil
}
