// Package testutil holds deterministic stand-ins for the engine's
// wall-clock and id collaborators, shared by tests across packages.
package testutil

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SteppingClock yields wall-clock times that advance by a fixed step on
// every read. Deterministic event timestamps make duration and ordering
// assertions exact and golden traces byte-identical.
//
// Thread-safety: all methods are safe for concurrent use.
type SteppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewSteppingClock starts at the given instant; each Now() call returns
// the current instant and advances by step.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{now: start.UTC(), step: step}
}

// Now returns the current instant and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// SequentialIDs mints id-00000000-...-NNNN style UUIDs by counting up.
// Unlike engine.FixedIDs it never exhausts, so a scenario does not need
// to know in advance how many ids it will mint.
type SequentialIDs struct {
	mu   sync.Mutex
	next uint32
}

// NewSequentialIDs starts the counter at start. Give each device a
// distinct range so ids minted on both sides never collide.
func NewSequentialIDs(start uint32) *SequentialIDs {
	return &SequentialIDs{next: start}
}

// NewID returns the next counted UUID.
func (g *SequentialIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	var id uuid.UUID
	id[12] = byte(g.next >> 24)
	id[13] = byte(g.next >> 16)
	id[14] = byte(g.next >> 8)
	id[15] = byte(g.next)
	// Keep the RFC 4122 version/variant bits plausible.
	id[6] = 0x40
	id[8] = 0x80
	return id
}
