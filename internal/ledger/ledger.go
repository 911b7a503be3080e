// Package ledger tracks proposals awaiting a human decision.
package ledger

import (
	"sort"
	"sync"

	"github.com/harunnryd/sabaki/internal/action"
)

// Entry is one pending confirmation. A is the auxiliary context type.
type Entry[A any] struct {
	ID      string
	Actions []action.Proposed
	Aux     A
}

// Ledger maps confirmation ids to pending entries. Entries leave only
// through Remove.
type Ledger[A any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[A]
	order   map[string]uint64
	seq     uint64
}

func New[A any]() *Ledger[A] {
	return &Ledger[A]{
		entries: make(map[string]Entry[A]),
		order:   make(map[string]uint64),
	}
}

// Add stores actions under id. Adding an id twice replaces the entry.
func (l *Ledger[A]) Add(id string, actions []action.Proposed, aux A) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.entries[id] = Entry[A]{
		ID:      id,
		Actions: append([]action.Proposed(nil), actions...),
		Aux:     aux,
	}
	l.order[id] = l.seq
}

// Get returns the entry for id. A missing id is a normal condition.
func (l *Ledger[A]) Get(id string) (Entry[A], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[id]
	if !ok {
		return Entry[A]{}, false
	}
	e.Actions = append([]action.Proposed(nil), e.Actions...)
	return e, true
}

func (l *Ledger[A]) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[id]
	return ok
}

// Remove deletes id; removing a missing id is a no-op.
func (l *Ledger[A]) Remove(id string) {
	l.mu.Lock()
	delete(l.entries, id)
	delete(l.order, id)
	l.mu.Unlock()
}

// IDs lists live ids in insertion order.
func (l *Ledger[A]) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return l.order[ids[i]] < l.order[ids[j]] })
	return ids
}

func (l *Ledger[A]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
