package model

import (
	"math"

	"github.com/google/uuid"
)

// PlayerStats holds the derived per-player counters for one session.
// Identity is the (SessionID, PlayerID) pair.
//
// The counters are incremented on the live fast path but are always
// superseded by a full recompute from the event log whenever events are
// merged (end-of-session reconciliation). They must never be trusted as
// a source of truth across retries.
type PlayerStats struct {
	SessionID uuid.UUID
	PlayerID  uuid.UUID
	IsHome    bool
	Goals     int
	Assists   int
	Saves     int
}

// Score is the single-match performance rating on a 10-point scale.
//
// Base 4.0, a fixed bonus for the first goal/assist/save, and a
// diminishing exponential bonus for each additional one. Both devices
// and every rebuild must produce bit-identical values, so the constants
// here are load-bearing.
func (s PlayerStats) Score() float64 {
	score := 4.0

	if s.Goals > 0 {
		score += 2.4
	}
	if s.Goals > 1 {
		score += 1.9 * (1 - math.Exp(-0.95*float64(s.Goals-1)))
	}

	if s.Assists > 0 {
		score += 1.5
	}
	if s.Assists > 1 {
		score += 1.3 * (1 - math.Exp(-0.75*float64(s.Assists-1)))
	}

	if s.Saves > 0 {
		score += 1.3
	}
	if s.Saves > 1 {
		score += 1.0 * (1 - math.Exp(-0.6*float64(s.Saves-1)))
	}

	return math.Min(score, 10.0)
}

// MVPWeight is the integer weighting used to pick the match MVP:
// goals count triple, assists double, saves single.
func (s PlayerStats) MVPWeight() int {
	return s.Goals*3 + s.Assists*2 + s.Saves
}
