package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decisive-systems/conductor/core/protocol"
)

// File format:
//
//	verbs:
//	  RULE:
//	    entry: verifyOrder
//	    nodes:
//	      verifyOrder:   {on_yes: checkInventory, on_no: sendMessageToChat}
//	      checkInventory: {on_yes: terminal, on_no: sendMessageToChat}
//	      sendMessageToChat: {on_yes: terminal, on_no: terminal}
//	    resume:
//	      sendMessageToChat: checkInventory

type fileSpec struct {
	Verbs map[string]defSpec `yaml:"verbs"`
}

type defSpec struct {
	Entry  string              `yaml:"entry"`
	Nodes  map[string]nodeSpec `yaml:"nodes"`
	Resume map[string]string   `yaml:"resume"`
}

type nodeSpec struct {
	OnYes string `yaml:"on_yes"`
	OnNo  string `yaml:"on_no"`
}

// LoadYAML builds a validated registry from YAML bytes. Verb names are
// checked against the registered set; a workflow for an unregistered verb
// is a load error, not a silent skip.
func LoadYAML(data []byte, verbs *protocol.VerbSet) (*Registry, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse workflow file: %w", err)
	}
	if len(spec.Verbs) == 0 {
		return nil, fmt.Errorf("workflow file defines no verbs")
	}

	reg := NewRegistry()
	for rawVerb, def := range spec.Verbs {
		verb, err := verbs.Parse(rawVerb)
		if err != nil {
			return nil, fmt.Errorf("workflow file: %w", err)
		}
		d := Definition{
			Entry:  def.Entry,
			Nodes:  make(map[string]Node, len(def.Nodes)),
			Resume: def.Resume,
		}
		for name, node := range def.Nodes {
			d.Nodes[name] = Node{OnYes: node.OnYes, OnNo: node.OnNo}
		}
		if err := reg.Register(verb, d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadFile reads and parses a workflow YAML file.
func LoadFile(path string, verbs *protocol.VerbSet) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return LoadYAML(data, verbs)
}
