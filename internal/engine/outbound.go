package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/wire"
)

// Outbound sync policy. Three tiers, chosen per mutation class:
//
//   - roster, start, and score refreshes ride best-effort only: a drop
//     is acceptable because the end-of-session snapshot repairs any
//     loss.
//   - individual events are dual-sent: best-effort for latency AND a
//     guaranteed backup, because the live send can vanish (peer
//     backgrounded, out of range) and the durable queue is the only
//     path that survives a relaunch. The receiver's id dedup absorbs
//     the intentional duplicate.
//   - end-of-session always rides guaranteed and carries the entire
//     event snapshot, not a diff: the sender cannot know what the peer
//     is missing, so the receiver computes the diff.

func (e *Engine) sendBestEffort(cmd wire.Command) {
	if err := e.transport.SendBestEffort(wire.Encode(cmd)); err != nil {
		// Logged only; the protocol self-heals at session end.
		slog.Debug("best-effort send failed",
			"role", e.role, "command", cmd.Kind(), "error", err)
	}
}

func (e *Engine) sendGuaranteed(cmd wire.Command) {
	e.transport.SendGuaranteed(wire.Encode(cmd))
}

func (e *Engine) sendEventDual(cmd wire.RecordEvent) {
	p := wire.Encode(cmd)
	if err := e.transport.SendBestEffort(p); err != nil {
		slog.Debug("live event send failed, backup still queued",
			"role", e.role, "event_id", cmd.Event.ID, "error", err)
	}
	e.transport.SendGuaranteed(p)
}

func (e *Engine) sendScoreSync(sessionID uuid.UUID, home, away int) {
	e.sendBestEffort(wire.ScoreSync{SessionID: sessionID, HomeScore: home, AwayScore: away})
}

// RosterEntry describes one participant for StartSession.
type RosterEntry struct {
	Name   string
	IsHome bool
	Number *int
}

// StartSession creates a new session on the primary and announces it to
// the companion. Session and player ids are minted here, once; they
// travel verbatim from now on.
func (e *Engine) StartSession(ctx context.Context, homeTeam, awayTeam string, roster []RosterEntry) (model.Session, error) {
	if e.role != model.RolePrimary {
		return model.Session{}, fmt.Errorf("start session: only the primary creates sessions")
	}

	var sess model.Session
	err := e.do(ctx, func(ctx context.Context) error {
		sess = model.Session{
			ID:           e.ids.NewID(),
			HomeTeamName: homeTeam,
			AwayTeamName: awayTeam,
			StartTime:    e.now().UTC(),
			Status:       model.StatusInProgress,
		}

		players := make([]model.Player, len(roster))
		participants := make([]wire.Participant, len(roster))
		for i, entry := range roster {
			players[i] = model.Player{
				ID:        e.ids.NewID(),
				SessionID: sess.ID,
				Name:      entry.Name,
				IsHome:    entry.IsHome,
				Number:    entry.Number,
			}
			participants[i] = wire.Participant{
				ID:     players[i].ID,
				Name:   entry.Name,
				IsHome: entry.IsHome,
			}
		}

		if err := e.store.CreateSessionWithRoster(ctx, sess, players); err != nil {
			return fmt.Errorf("start session: %w", err)
		}

		slog.Info("session started",
			"session_id", sess.ID,
			"home_team", homeTeam,
			"away_team", awayTeam,
			"participants", len(players),
		)

		e.sendBestEffort(wire.StartSession{
			SessionID:    sess.ID,
			HomeTeamName: homeTeam,
			AwayTeamName: awayTeam,
			Participants: participants,
		})
		return nil
	})
	return sess, err
}

// AddParticipant appends a roster entry mid-session on either device
// and announces it to the peer.
func (e *Engine) AddParticipant(ctx context.Context, sessionID uuid.UUID, name string, isHome bool) (model.Player, error) {
	var player model.Player
	err := e.do(ctx, func(ctx context.Context) error {
		player = model.Player{
			ID:        e.ids.NewID(),
			SessionID: sessionID,
			Name:      name,
			IsHome:    isHome,
		}
		if err := e.applyNewParticipant(ctx, wire.NewParticipant{
			SessionID: sessionID,
			PlayerID:  player.ID,
			Name:      name,
			IsHome:    isHome,
		}); err != nil {
			return err
		}

		e.sendBestEffort(wire.NewParticipant{
			SessionID: sessionID,
			PlayerID:  player.ID,
			Name:      name,
			IsHome:    isHome,
		})
		return nil
	})
	return player, err
}

// RecordEvent appends a locally observed event: mint the event id,
// apply it through the same idempotent path inbound events take, then
// dual-send it to the peer (for kinds that cross the sync boundary).
func (e *Engine) RecordEvent(ctx context.Context, sessionID uuid.UUID, kind model.EventKind, actorID, assistantID uuid.UUID) (model.Event, error) {
	if !kind.Valid() {
		return model.Event{}, fmt.Errorf("record event: unknown kind %q", kind)
	}

	var ev model.Event
	err := e.do(ctx, func(ctx context.Context) error {
		roster, err := e.store.ListPlayers(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("record event: %w", err)
		}

		isHome := false
		for _, p := range roster {
			if p.ID == actorID {
				isHome = p.IsHome
				break
			}
		}

		rec := wire.EventRecord{
			ID:          e.ids.NewID(),
			Kind:        kind,
			Timestamp:   e.now().UTC().Truncate(time.Millisecond),
			IsHome:      isHome,
			PlayerID:    actorID,
			AssistantID: assistantID,
		}

		if err := e.applyRecordEvent(ctx, sessionID, rec); err != nil {
			return err
		}
		ev, _, _ = resolveEvent(sessionID, rec, roster)

		if kind.CrossesSync() {
			e.sendEventDual(wire.RecordEvent{SessionID: sessionID, Event: rec})
		}
		return nil
	})
	return ev, err
}

// EndSession terminates the session from this device's point of view.
//
// On the companion: ship the full event snapshot over the guaranteed
// channel and clear local data - the companion never keeps history.
//
// On the primary: run the same merge/recompute path as an inbound end
// (with an empty snapshot), then ship the authoritative final snapshot
// and the ack to the companion.
func (e *Engine) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	return e.do(ctx, func(ctx context.Context) error {
		sess, err := e.store.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("end session: %w", err)
		}

		if e.role == model.RoleCompanion {
			return e.endFromCompanion(ctx, sess)
		}
		return e.endFromPrimary(ctx, sess)
	})
}

func (e *Engine) endFromCompanion(ctx context.Context, sess model.Session) error {
	events, err := e.store.ListEvents(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	snapshot := make([]wire.EventRecord, 0, len(events))
	for _, ev := range events {
		if !ev.Kind.CrossesSync() {
			continue
		}
		snapshot = append(snapshot, eventRecord(ev))
	}

	e.sendGuaranteed(wire.EndFromCompanion{SessionID: sess.ID, Events: snapshot})

	if err := e.store.DeleteAllSessions(ctx); err != nil {
		return fmt.Errorf("end session: clear local data: %w", err)
	}

	slog.Info("session ended, snapshot queued",
		"session_id", sess.ID, "events", len(snapshot))
	return nil
}

func (e *Engine) endFromPrimary(ctx context.Context, sess model.Session) error {
	if sess.Status == model.StatusFinished {
		slog.Debug("session already finished", "session_id", sess.ID)
		return nil
	}

	if err := e.finishSession(ctx, sess, nil); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	final, err := e.store.GetSession(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	events, err := e.store.ListEvents(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	snapshot := make([]wire.EventRecord, 0, len(events))
	for _, ev := range events {
		if !ev.Kind.CrossesSync() {
			continue
		}
		snapshot = append(snapshot, eventRecord(ev))
	}

	e.sendGuaranteed(wire.EndFromPrimary{
		SessionID: final.ID,
		HomeScore: final.HomeScore,
		AwayScore: final.AwayScore,
		Events:    snapshot,
	})
	e.sendGuaranteed(wire.SessionEndedAck{SessionID: final.ID})
	return nil
}

func eventRecord(ev model.Event) wire.EventRecord {
	return wire.EventRecord{
		ID:          ev.ID,
		Kind:        ev.Kind,
		Timestamp:   ev.Timestamp,
		IsHome:      ev.IsHome,
		PlayerID:    ev.Actor(),
		AssistantID: ev.AssistantID,
	}
}
