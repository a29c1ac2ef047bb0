package server

import (
	"errors"
	"slices"
	"sync"
)

var ErrFull = errors.New("server: connection table full")

// Table holds the live sessions keyed by id. Ids are never reused.
type Table struct {
	mu       sync.RWMutex
	max      int
	next     uint64
	sessions map[uint64]*Session
}

func NewTable(maxConns int) *Table {
	if maxConns <= 0 {
		maxConns = 1
	}
	return &Table{
		max:      maxConns,
		sessions: make(map[uint64]*Session),
	}
}

// Add assigns s the next id and stores it.
func (t *Table) Add(s *Session) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sessions) >= t.max {
		return 0, ErrFull
	}
	t.next++
	s.ID = t.next
	t.sessions[s.ID] = s
	return s.ID, nil
}

func (t *Table) Remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

func (t *Table) Get(id uint64) *Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessions[id]
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Each calls fn for every session in id order until fn returns false. The
// table is not locked while fn runs.
func (t *Table) Each(fn func(*Session) bool) {
	t.mu.RLock()
	sessions := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		sessions = append(sessions, s)
	}
	t.mu.RUnlock()
	slices.SortFunc(sessions, func(a, b *Session) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	for _, s := range sessions {
		if !fn(s) {
			return
		}
	}
}
