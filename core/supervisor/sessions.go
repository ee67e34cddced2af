package supervisor

import (
	"sync"
	"time"

	"github.com/decisive-systems/conductor/core/protocol"
)

// sessionState is the supervisor's memory of one session between turns.
// Only paused sessions matter: a terminal turn clears its entry.
type sessionState struct {
	verb      protocol.Verb
	pausedAt  string
	state     State
	updatedAt time.Time
}

type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*sessionState)}
}

func (t *sessionTable) get(sessionID string) (sessionState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return sessionState{}, false
	}
	return *s, true
}

func (t *sessionTable) pause(sessionID string, verb protocol.Verb, pausedAt string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sessionID] = &sessionState{
		verb:      verb,
		pausedAt:  pausedAt,
		state:     StateAwaitingHuman,
		updatedAt: time.Now(),
	}
}

func (t *sessionTable) clear(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

func (t *sessionTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// cleanup removes sessions idle longer than ttl. A zero ttl disables the
// sweep.
func (t *sessionTable) cleanup(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-ttl)
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, s := range t.sessions {
		if s.updatedAt.Before(cutoff) {
			delete(t.sessions, id)
			removed++
		}
	}
	return removed
}
