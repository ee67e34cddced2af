// Package main provides the conductor stdio transport adapter.
//
// The engine's transport is an external collaborator; this adapter is the
// reference one. It reads one JSON request envelope per line on stdin,
// drives the supervisor, and writes every emitted envelope as one JSON
// line on stdout. Real deployments register their own agents; serve mode
// installs harness agents that approve every step, which is enough to
// exercise routing, workflows, pauses, and resumes end to end.
//
// Usage:
//
//	# Serve: one request envelope per stdin line, emissions on stdout
//	conductor serve --config conductor.yaml --workflows workflows.yaml
//
//	# Validate a single envelope from stdin
//	echo '{"type":"request","verb":"RULE",...}' | conductor validate
//
//	# Print version information
//	conductor version
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/decisive-systems/conductor/bus"
	"github.com/decisive-systems/conductor/core/agents"
	"github.com/decisive-systems/conductor/core/config"
	"github.com/decisive-systems/conductor/core/logging"
	"github.com/decisive-systems/conductor/core/observability"
	"github.com/decisive-systems/conductor/core/protocol"
	"github.com/decisive-systems/conductor/core/store"
	"github.com/decisive-systems/conductor/core/supervisor"
	"github.com/decisive-systems/conductor/core/tools"
	"github.com/decisive-systems/conductor/core/typeutil"
	"github.com/decisive-systems/conductor/core/workflow"
)

const (
	cmdServe    = "serve"
	cmdValidate = "validate"
	cmdVersion  = "version"
)

const (
	version   = "1.1.0"
	buildTime = "2026-08-29"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case cmdVersion:
		handleVersion()
	case cmdValidate:
		handleValidate(os.Args[2:])
	case cmdServe:
		handleServe(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: conductor <command>

Commands:
  serve     Read request envelopes from stdin, write emissions to stdout
  validate  Validate one envelope JSON from stdin
  version   Print version information

Flags (serve, validate):
  --config     Runtime configuration YAML (defaults apply when omitted)
  --workflows  Workflow definition YAML (serve only; required)`)
}

func handleVersion() {
	writeJSON(os.Stdout, map[string]string{
		"version":    version,
		"build_time": buildTime,
	})
}

func handleValidate(args []string) {
	fs := flag.NewFlagSet(cmdValidate, flag.ExitOnError)
	configPath := fs.String("config", "", "runtime configuration YAML")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(fmt.Errorf("reading stdin: %w", err))
	}

	verbs := verbSet(cfg)
	env, err := protocol.Validate(raw, verbs, protocol.ValidationPolicy{ClampConfidence: cfg.ClampConfidence})
	if err != nil {
		writeJSON(os.Stdout, map[string]any{"valid": false, "error": err.Error()})
		os.Exit(1)
	}
	writeJSON(os.Stdout, map[string]any{
		"valid":      true,
		"verb":       string(env.Verb),
		"session_id": env.SessionID,
	})
}

func handleServe(args []string) {
	fs := flag.NewFlagSet(cmdServe, flag.ExitOnError)
	configPath := fs.String("config", "", "runtime configuration YAML")
	workflowPath := fs.String("workflows", "", "workflow definition YAML")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	logger := logging.New(cfg.LogLevel)

	if *workflowPath == "" {
		*workflowPath = cfg.WorkflowPath
	}
	if *workflowPath == "" {
		fatal(fmt.Errorf("serve requires --workflows or workflow_path in the config"))
	}

	verbs := verbSet(cfg)
	workflows, err := workflow.LoadFile(*workflowPath, verbs)
	if err != nil {
		fatal(err)
	}

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			fatal(err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	st, err := store.New(cfg.DatabasePath, logger)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	toolReg := tools.NewRegistry(logger)
	if err := tools.RegisterStoreTools(toolReg, st); err != nil {
		fatal(err)
	}

	agentReg := agents.NewRegistry(cfg.AgentTimeout, logger)
	if err := registerHarnessAgents(agentReg, cfg, workflows, toolReg); err != nil {
		fatal(err)
	}

	b := bus.New(cfg.QueryTimeout, logger)
	b.AddMiddleware(bus.NewLoggingMiddleware(logger))
	b.AddMiddleware(bus.NewMetricsMiddleware())

	sup, err := supervisor.New(supervisor.Options{
		Verbs:     verbs,
		Workflows: workflows,
		Agents:    agentReg,
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Bus:       b,
	})
	if err != nil {
		fatal(err)
	}

	// The transport seam: forward every emitted envelope to stdout.
	out := json.NewEncoder(os.Stdout)
	b.Subscribe("EnvelopeEmitted", func(ctx context.Context, msg bus.Message) (any, error) {
		return nil, out.Encode(msg.(*bus.EnvelopeEmitted).Envelope)
	})

	logger.Info("serve_started",
		"workflows", strings.Join(verbNames(workflows), ","),
		"agents", strings.Join(agentReg.List(), ","),
	)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	ctx := context.Background()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sup.Process(ctx, []byte(line))
		if err := b.Send(ctx, &bus.CleanupSessions{}); err != nil {
			logger.Warning("session_cleanup_failed", "error", err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		fatal(fmt.Errorf("reading stdin: %w", err))
	}
}

// registerHarnessAgents installs one approving agent per workflow node
// plus a keyword router for the placeholder verb. The upsert_record tool
// gives each step a visible, idempotent side effect.
func registerHarnessAgents(reg *agents.Registry, cfg *config.Config, workflows *workflow.Registry, toolReg *tools.Registry) error {
	registered := make(map[string]bool)
	for _, verb := range workflows.Verbs() {
		for _, name := range workflows.Agents(verb) {
			if registered[name] {
				continue
			}
			registered[name] = true
			agentName := name
			err := reg.Register(agentName, agents.StepFunc(func(ctx context.Context, verb protocol.Verb, payload map[string]any) (agents.Result, error) {
				sessionKey := typeutil.SafeStringDefault(payload, "session_id", "harness")
				res := toolReg.Execute(ctx, "upsert_record", map[string]any{
					"namespace": "steps",
					"key":       fmt.Sprintf("%s/%s/%s", sessionKey, verb, agentName),
					"body":      map[string]any{"agent": agentName, "verb": string(verb)},
				})
				if res.Status != tools.StatusSuccess {
					return agents.Result{}, fmt.Errorf("recording step: %s", res.Error.Message)
				}
				return agents.Result{
					Decision:   protocol.DecisionYes,
					Confidence: 1.0,
					Reason:     fmt.Sprintf("harness approved %s", agentName),
				}, nil
			}))
			if err != nil {
				return err
			}
		}
	}

	return reg.RegisterRouter(cfg.RoutingAgent, keywordRouter(cfg, workflows))
}

// keywordRouter resolves the placeholder verb by naive keyword match so
// serve mode can demonstrate the routing path without a model behind it.
func keywordRouter(cfg *config.Config, workflows *workflow.Registry) agents.RoutingAgent {
	return agents.RouteFunc(func(ctx context.Context, payload map[string]any) (agents.RouteResult, error) {
		text := strings.ToUpper(typeutil.SafeString(payload, "raw_text"))
		for _, verb := range workflows.Verbs() {
			if string(verb) != cfg.RoutingVerb && strings.Contains(text, string(verb)) {
				return agents.RouteResult{
					Result: agents.Result{Decision: protocol.DecisionYes, Confidence: 0.9, Reason: "keyword match"},
					Verb:   string(verb),
				}, nil
			}
		}
		for _, verb := range workflows.Verbs() {
			if string(verb) != cfg.RoutingVerb {
				return agents.RouteResult{
					Result: agents.Result{Decision: protocol.DecisionYes, Confidence: 0.5, Reason: "first registered workflow"},
					Verb:   string(verb),
				}, nil
			}
		}
		return agents.RouteResult{
			Result: agents.Result{Decision: protocol.DecisionNo, Confidence: 1.0, Reason: "no workflow to route to"},
		}, nil
	})
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func verbSet(cfg *config.Config) *protocol.VerbSet {
	verbs := make([]protocol.Verb, len(cfg.Verbs))
	for i, v := range cfg.Verbs {
		verbs[i] = protocol.Verb(strings.ToUpper(strings.TrimSpace(v)))
	}
	return protocol.NewVerbSet(verbs...)
}

func verbNames(workflows *workflow.Registry) []string {
	verbs := workflows.Verbs()
	out := make([]string, len(verbs))
	for i, v := range verbs {
		out[i] = string(v)
	}
	return out
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
