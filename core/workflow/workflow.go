// Package workflow holds the per-verb decision trees that drive the
// supervisor.
//
// Each verb owns two separate tables. The forward tree maps
// (agent, decision) to the next agent or the terminal sentinel. The resume
// map names the step to re-enter when a human answers a "no" pause. The
// two are deliberately independent: a resume re-enters wherever the
// deployment says corrected input becomes useful, which is rarely the node
// that said "no" and never derivable from the yes/no edges.
//
// A Registry is built once at startup; every transition target is checked
// at build time so a miswired tree fails before the first request.
package workflow

import (
	"fmt"
	"sort"

	"github.com/decisive-systems/conductor/core/protocol"
)

// Terminal is the sentinel transition target ending a workflow.
const Terminal = "terminal"

// Node is one decision step's outgoing edges.
type Node struct {
	OnYes string
	OnNo  string
}

// Definition is the declarative form of one verb's workflow.
type Definition struct {
	// Entry is the agent invoked first when a turn enters this workflow.
	Entry string
	// Nodes maps agent name to its outgoing edges.
	Nodes map[string]Node
	// Resume maps a paused step (the nextAgent emitted with a "no") to the
	// agent that re-enters the workflow after human input.
	Resume map[string]string
}

type table struct {
	entry  string
	nodes  map[string]Node
	resume map[string]string
}

// Registry is the immutable collection of validated workflows.
type Registry struct {
	verbs map[protocol.Verb]*table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{verbs: make(map[protocol.Verb]*table)}
}

// Register validates and installs one verb's workflow. All structural
// defects (missing entry, edges to undefined agents, resume entries
// naming undefined agents) are build errors here, never call-time
// surprises.
func (r *Registry) Register(verb protocol.Verb, def Definition) error {
	if _, exists := r.verbs[verb]; exists {
		return fmt.Errorf("workflow %q: already registered", verb)
	}
	if len(def.Nodes) == 0 {
		return fmt.Errorf("workflow %q: no nodes defined", verb)
	}
	if def.Entry == "" {
		return fmt.Errorf("workflow %q: entry agent not set", verb)
	}
	if _, ok := def.Nodes[def.Entry]; !ok {
		return fmt.Errorf("workflow %q: entry agent %q is not a node", verb, def.Entry)
	}
	for name, node := range def.Nodes {
		if node.OnYes == "" || node.OnNo == "" {
			return fmt.Errorf("workflow %q: node %q must define both on_yes and on_no", verb, name)
		}
		for _, target := range []string{node.OnYes, node.OnNo} {
			if target == Terminal {
				continue
			}
			if _, ok := def.Nodes[target]; !ok {
				return fmt.Errorf("workflow %q: node %q routes to unknown target %q", verb, name, target)
			}
		}
	}
	for paused, target := range def.Resume {
		if _, ok := def.Nodes[paused]; !ok {
			return fmt.Errorf("workflow %q: resume entry %q is not a node", verb, paused)
		}
		if _, ok := def.Nodes[target]; !ok {
			return fmt.Errorf("workflow %q: resume entry %q points at unknown target %q", verb, paused, target)
		}
	}

	t := &table{
		entry:  def.Entry,
		nodes:  make(map[string]Node, len(def.Nodes)),
		resume: make(map[string]string, len(def.Resume)),
	}
	for name, node := range def.Nodes {
		t.nodes[name] = node
	}
	for paused, target := range def.Resume {
		t.resume[paused] = target
	}
	r.verbs[verb] = t
	return nil
}

// Entry returns the first agent of a verb's workflow.
func (r *Registry) Entry(verb protocol.Verb) (string, error) {
	t, ok := r.verbs[verb]
	if !ok {
		return "", &UnknownStepError{Verb: verb}
	}
	return t.entry, nil
}

// Next looks up the forward edge for (verb, agent, decision). An unknown
// verb or agent is a configuration defect, signalled with UnknownStepError,
// distinct from the Terminal sentinel, which means "workflow says stop".
func (r *Registry) Next(verb protocol.Verb, agent string, decision protocol.Decision) (string, error) {
	t, ok := r.verbs[verb]
	if !ok {
		return "", &UnknownStepError{Verb: verb}
	}
	node, ok := t.nodes[agent]
	if !ok {
		return "", &UnknownStepError{Verb: verb, Agent: agent}
	}
	if decision == protocol.DecisionYes {
		return node.OnYes, nil
	}
	return node.OnNo, nil
}

// IsTerminal reports whether a transition target is the terminal sentinel.
func (r *Registry) IsTerminal(target string) bool {
	return target == Terminal
}

// ResumeTarget returns the agent that re-enters the workflow when a human
// answers the pause emitted at the given step. Absence of a resume entry
// is an UnknownStepError: a workflow that pauses at a step without a
// declared resume is misconfigured for resumption.
func (r *Registry) ResumeTarget(verb protocol.Verb, pausedAt string) (string, error) {
	t, ok := r.verbs[verb]
	if !ok {
		return "", &UnknownStepError{Verb: verb}
	}
	target, ok := t.resume[pausedAt]
	if !ok {
		return "", &UnknownStepError{Verb: verb, Agent: pausedAt, Resume: true}
	}
	return target, nil
}

// Verbs returns the registered verbs, sorted by name.
func (r *Registry) Verbs() []protocol.Verb {
	out := make([]protocol.Verb, 0, len(r.verbs))
	for v := range r.verbs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Agents returns the node names of one verb's workflow, sorted.
func (r *Registry) Agents(verb protocol.Verb) []string {
	t, ok := r.verbs[verb]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t.nodes))
	for name := range t.nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
