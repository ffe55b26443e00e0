package engine

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints entity ids for locally originated sessions, players,
// and events. Implemented by RandomIDs (production) and FixedIDs (tests).
type IDGenerator interface {
	NewID() uuid.UUID
}

// RandomIDs generates random v4 UUIDs.
//
// Stateless and safe for concurrent use.
type RandomIDs struct{}

// NewID returns a fresh random UUID.
// Panics if the system entropy source fails (never in practice).
func (RandomIDs) NewID() uuid.UUID {
	return uuid.New()
}

// FixedIDs returns predetermined ids in order, enabling deterministic
// tests and golden trace comparison.
//
// Safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []uuid.UUID
	idx int
}

// NewFixedIDs creates a generator that returns the given ids in order.
// Generating past the end panics - fail fast on test misconfiguration.
func NewFixedIDs(ids ...uuid.UUID) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// NewID returns the next predetermined id.
func (g *FixedIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
