package engine

import (
	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/model"
)

// RecomputeStats rebuilds the per-player counters from scratch: every
// roster member starts at zero, then every event is replayed exactly
// once. The result depends only on the set of events, never on the
// order they arrived or were merged in.
func RecomputeStats(sessionID uuid.UUID, roster []model.Player, events []model.Event) []model.PlayerStats {
	index := make(map[uuid.UUID]int, len(roster))
	stats := make([]model.PlayerStats, len(roster))
	for i, p := range roster {
		index[p.ID] = i
		stats[i] = model.PlayerStats{
			SessionID: sessionID,
			PlayerID:  p.ID,
			IsHome:    p.IsHome,
		}
	}

	bump := func(playerID uuid.UUID, f func(*model.PlayerStats)) {
		if playerID == uuid.Nil {
			return
		}
		if i, ok := index[playerID]; ok {
			f(&stats[i])
		}
	}

	for _, ev := range events {
		switch ev.Kind {
		case model.EventGoal:
			bump(ev.ScorerID, func(s *model.PlayerStats) { s.Goals++ })
			bump(ev.AssistantID, func(s *model.PlayerStats) { s.Assists++ })
		case model.EventSave:
			bump(ev.GoalkeeperID, func(s *model.PlayerStats) { s.Saves++ })
		}
	}

	return stats
}

// Summarize derives the session-level aggregates from the recomputed
// counters and the merged event log: final score, leaderboard picks,
// participant count, and duration from the event timestamp span.
//
// Leaderboard picks are uuid.Nil when no player earned anything in the
// relevant category - an all-zero match has no MVP. Ties go to the
// earliest roster entry for determinism across rebuilds.
func Summarize(sess model.Session, roster []model.Player, stats []model.PlayerStats, events []model.Event) model.Session {
	home, away := 0, 0
	for _, ev := range events {
		if ev.Kind != model.EventGoal {
			continue
		}
		if ev.IsHome {
			home++
		} else {
			away++
		}
	}
	sess.HomeScore = home
	sess.AwayScore = away

	sess.MVP = pickTop(stats, func(s model.PlayerStats) int { return s.MVPWeight() })
	sess.TopScorer = pickTop(stats, func(s model.PlayerStats) int { return s.Goals })
	sess.TopGoalkeeper = pickTop(stats, func(s model.PlayerStats) int { return s.Saves })
	sess.TopPlaymaker = pickTop(stats, func(s model.PlayerStats) int { return s.Assists })

	sess.PlayerCount = len(roster)
	sess.DurationMinutes = 0
	if len(events) > 0 {
		min, max := events[0].Timestamp, events[0].Timestamp
		for _, ev := range events[1:] {
			if ev.Timestamp.Before(min) {
				min = ev.Timestamp
			}
			if ev.Timestamp.After(max) {
				max = ev.Timestamp
			}
		}
		sess.DurationMinutes = int(max.Sub(min).Minutes())
	}

	return sess
}

func pickTop(stats []model.PlayerStats, weight func(model.PlayerStats) int) uuid.UUID {
	best := uuid.Nil
	bestWeight := 0
	for _, s := range stats {
		if w := weight(s); w > bestWeight {
			best = s.PlayerID
			bestWeight = w
		}
	}
	return best
}
