package protocol

import (
	"sort"
	"strings"
)

// Verb names the workflow an envelope addresses. Verbs are a closed set
// registered at startup; nothing in the engine hardcodes the members.
type Verb string

// Well-known verbs used by the default deployment. Deployments may
// register any set they like.
const (
	VerbRule    Verb = "RULE"
	VerbContent Verb = "CONTENT"
	// VerbGeneric is conventionally the routing placeholder: an inbound
	// request carrying it is classified by the routing agent first.
	VerbGeneric Verb = "GENERIC"
)

// VerbSet is the registered verb collection. It is built once at startup
// and read-only afterwards.
type VerbSet struct {
	members map[Verb]struct{}
	names   []string
}

// NewVerbSet builds a set from the given verbs. Duplicates collapse.
func NewVerbSet(verbs ...Verb) *VerbSet {
	s := &VerbSet{members: make(map[Verb]struct{}, len(verbs))}
	for _, v := range verbs {
		s.members[v] = struct{}{}
	}
	s.names = make([]string, 0, len(s.members))
	for v := range s.members {
		s.names = append(s.names, string(v))
	}
	sort.Strings(s.names)
	return s
}

// Parse normalizes a raw verb string (trim, upper-case) and checks
// membership. Returns ErrEmptyVerb for a blank verb and *UnknownVerbError
// for an unrecognized one. It never defaults silently.
func (s *VerbSet) Parse(raw string) (Verb, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "" {
		return "", ErrEmptyVerb
	}
	v := Verb(normalized)
	if _, ok := s.members[v]; !ok {
		return "", &UnknownVerbError{Verb: normalized, Valid: s.Names()}
	}
	return v, nil
}

// Contains reports whether v is registered.
func (s *VerbSet) Contains(v Verb) bool {
	_, ok := s.members[v]
	return ok
}

// Names returns the registered verb names, sorted.
func (s *VerbSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
