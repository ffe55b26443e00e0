package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/wire"
)

// applyStart replaces any prior companion-side session with the one in
// the payload: delete-all, then create session + roster in a single
// transaction so a failed start leaves no partial state.
func (e *Engine) applyStart(ctx context.Context, c wire.StartSession) error {
	if err := e.store.DeleteAllSessions(ctx); err != nil {
		return fmt.Errorf("apply start: %w", err)
	}

	sess := model.Session{
		ID:           c.SessionID,
		HomeTeamName: c.HomeTeamName,
		AwayTeamName: c.AwayTeamName,
		StartTime:    e.now().UTC(),
		Status:       model.StatusInProgress,
		Active:       true,
	}

	roster := make([]model.Player, len(c.Participants))
	for i, p := range c.Participants {
		roster[i] = model.Player{
			ID:        p.ID,
			SessionID: c.SessionID,
			Name:      p.Name,
			IsHome:    p.IsHome,
		}
	}

	if err := e.store.CreateSessionWithRoster(ctx, sess, roster); err != nil {
		return fmt.Errorf("apply start: %w", err)
	}

	slog.Info("session started from peer",
		"session_id", c.SessionID,
		"home_team", c.HomeTeamName,
		"away_team", c.AwayTeamName,
		"participants", len(roster),
	)
	e.notifier.SessionStarted(c.HomeTeamName, c.AwayTeamName)
	return nil
}

// applyNewParticipant inserts a roster entry, deduplicated on the
// (session, player) pair so a redelivered command cannot create a
// duplicate.
func (e *Engine) applyNewParticipant(ctx context.Context, c wire.NewParticipant) error {
	sess, ok, err := e.lookupSession(ctx, c)
	if err != nil || !ok {
		return err
	}
	if sess.Status.Terminal() {
		slog.Warn("dropping participant for terminal session",
			"session_id", c.SessionID, "status", sess.Status)
		return nil
	}

	inserted, err := e.store.InsertPlayer(ctx, model.Player{
		ID:        c.PlayerID,
		SessionID: c.SessionID,
		Name:      c.Name,
		IsHome:    c.IsHome,
	})
	if err != nil {
		return fmt.Errorf("apply new participant: %w", err)
	}
	if !inserted {
		slog.Debug("participant already known, skipping",
			"session_id", c.SessionID, "player_id", c.PlayerID)
		return nil
	}

	slog.Info("participant added",
		"session_id", c.SessionID, "player_id", c.PlayerID, "name", c.Name)
	return nil
}

// applyRecordEvent appends one event to the log, keyed by event id.
//
// The id-existence check is the protocol's central idempotence
// guarantee: the same event may arrive via the live channel and again
// via the durable backup, in either order. First write wins; later
// copies are no-ops regardless of field content.
//
// Counter increments here are the live fast path only. They are always
// superseded by the full recompute whenever events are merged.
func (e *Engine) applyRecordEvent(ctx context.Context, sessionID uuid.UUID, rec wire.EventRecord) error {
	sess, ok, err := e.lookupSession(ctx, wire.RecordEvent{SessionID: sessionID, Event: rec})
	if err != nil || !ok {
		return err
	}
	if sess.Status.Terminal() {
		slog.Warn("dropping event for terminal session",
			"session_id", sessionID, "event_id", rec.ID, "status", sess.Status)
		return nil
	}

	roster, err := e.store.ListPlayers(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("apply record event: %w", err)
	}

	ev, actor, assistant := resolveEvent(sessionID, rec, roster)

	inserted, err := e.store.InsertEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("apply record event: %w", err)
	}
	if !inserted {
		slog.Debug("event already known, skipping (idempotent)",
			"session_id", sessionID, "event_id", rec.ID)
		return nil
	}

	// Live incremental counters for resolved participants.
	switch ev.Kind {
	case model.EventGoal:
		if actor != nil {
			err = e.store.BumpStats(ctx, model.PlayerStats{
				SessionID: sessionID, PlayerID: actor.ID, IsHome: actor.IsHome, Goals: 1,
			})
			if err != nil {
				return fmt.Errorf("apply record event: %w", err)
			}
		}
		if assistant != nil {
			err = e.store.BumpStats(ctx, model.PlayerStats{
				SessionID: sessionID, PlayerID: assistant.ID, IsHome: assistant.IsHome, Assists: 1,
			})
			if err != nil {
				return fmt.Errorf("apply record event: %w", err)
			}
		}
	case model.EventSave:
		if actor != nil {
			err = e.store.BumpStats(ctx, model.PlayerStats{
				SessionID: sessionID, PlayerID: actor.ID, IsHome: actor.IsHome, Saves: 1,
			})
			if err != nil {
				return fmt.Errorf("apply record event: %w", err)
			}
		}
	}

	// Running score moves on the live path only on the primary; the
	// companion gets its refresh via scoreSync.
	if e.role == model.RolePrimary && ev.Kind == model.EventGoal {
		if ev.IsHome {
			sess.HomeScore++
		} else {
			sess.AwayScore++
		}
		if err := e.store.UpdateScore(ctx, sessionID, sess.HomeScore, sess.AwayScore); err != nil {
			return fmt.Errorf("apply record event: %w", err)
		}
		e.sendScoreSync(sessionID, sess.HomeScore, sess.AwayScore)
	}

	slog.Info("event recorded",
		"role", e.role,
		"session_id", sessionID,
		"event_id", ev.ID,
		"kind", ev.Kind,
		"is_home", ev.IsHome,
	)
	return nil
}

// resolveEvent maps a wire event onto the local roster. Unresolved
// player references stay uuid.Nil - roster completeness never blocks
// event persistence. When the actor resolves, the event's team side
// follows the roster entry rather than the wire flag.
func resolveEvent(sessionID uuid.UUID, rec wire.EventRecord, roster []model.Player) (ev model.Event, actor, assistant *model.Player) {
	byID := make(map[uuid.UUID]*model.Player, len(roster))
	for i := range roster {
		byID[roster[i].ID] = &roster[i]
	}

	ev = model.Event{
		ID:        rec.ID,
		SessionID: sessionID,
		Kind:      rec.Kind,
		Timestamp: rec.Timestamp,
		IsHome:    rec.IsHome,
	}

	actor = byID[rec.PlayerID]
	if actor != nil {
		ev.IsHome = actor.IsHome
	}

	if rec.Kind == model.EventSave {
		if actor != nil {
			ev.GoalkeeperID = actor.ID
		}
	} else {
		if actor != nil {
			ev.ScorerID = actor.ID
		}
		if rec.AssistantID != uuid.Nil {
			assistant = byID[rec.AssistantID]
			if assistant != nil {
				ev.AssistantID = assistant.ID
			}
		}
	}

	return ev, actor, assistant
}

// applyScoreSync is a cosmetic last-write-wins refresh on the device
// that does not own the authoritative log. Never drives stats.
func (e *Engine) applyScoreSync(ctx context.Context, c wire.ScoreSync) error {
	_, ok, err := e.lookupSession(ctx, c)
	if err != nil || !ok {
		return err
	}
	if err := e.store.UpdateScore(ctx, c.SessionID, c.HomeScore, c.AwayScore); err != nil {
		return fmt.Errorf("apply score sync: %w", err)
	}
	slog.Debug("score refreshed",
		"session_id", c.SessionID, "home", c.HomeScore, "away", c.AwayScore)
	return nil
}

// applyEndFromCompanion is the correctness-critical reconciliation on
// the primary. It merges the companion's snapshot into the local log by
// event id, then rebuilds every derived aggregate from the merged log.
func (e *Engine) applyEndFromCompanion(ctx context.Context, c wire.EndFromCompanion) error {
	sess, ok, err := e.lookupSession(ctx, c)
	if err != nil || !ok {
		return err
	}

	// Duplicate end-of-match signals arrive via both channels; the
	// second one must change nothing.
	if sess.Status == model.StatusFinished {
		slog.Debug("session already finished, ignoring end snapshot",
			"session_id", c.SessionID)
		return nil
	}

	if err := e.finishSession(ctx, sess, c.Events); err != nil {
		return fmt.Errorf("apply end from companion: %w", err)
	}
	return nil
}

// finishSession merges snapshot events the local log is missing,
// recomputes all counters and aggregates from the merged log, and
// persists the Finished session atomically.
func (e *Engine) finishSession(ctx context.Context, sess model.Session, snapshot []wire.EventRecord) error {
	roster, err := e.store.ListPlayers(ctx, sess.ID)
	if err != nil {
		return err
	}

	known, err := e.store.KnownEventIDs(ctx, sess.ID)
	if err != nil {
		return err
	}

	// Materialize snapshot events we have never seen; locally known
	// events win over their snapshot copies (the local row may carry
	// richer fields).
	var repaired []model.Event
	for _, rec := range snapshot {
		if _, exists := known[rec.ID]; exists {
			continue
		}
		ev, _, _ := resolveEvent(sess.ID, rec, roster)
		repaired = append(repaired, ev)
		known[rec.ID] = struct{}{}
		slog.Info("materialized event from peer snapshot",
			"session_id", sess.ID, "event_id", rec.ID, "kind", rec.Kind)
	}

	local, err := e.store.ListEvents(ctx, sess.ID)
	if err != nil {
		return err
	}
	merged := append(local, repaired...)

	// Full recompute from the merged log. Zero every counter, replay
	// every event once. The result depends only on the merged event
	// set, never on arrival order.
	stats := RecomputeStats(sess.ID, roster, merged)
	sess = Summarize(sess, roster, stats, merged)
	sess.Status = model.StatusFinished

	if err := e.store.FinishSession(ctx, sess, repaired, stats); err != nil {
		return err
	}

	slog.Info("session finished",
		"session_id", sess.ID,
		"home_score", sess.HomeScore,
		"away_score", sess.AwayScore,
		"events", len(merged),
		"repaired", len(repaired),
	)
	return nil
}

// applyEndFromPrimary: the companion is not authoritative and never
// retains history past its own session lifetime, so it notes the final
// score and clears everything.
func (e *Engine) applyEndFromPrimary(ctx context.Context, c wire.EndFromPrimary) error {
	_, ok, err := e.lookupSession(ctx, c)
	if err != nil || !ok {
		return err
	}

	slog.Info("session ended by primary",
		"session_id", c.SessionID,
		"home_score", c.HomeScore,
		"away_score", c.AwayScore,
	)

	if err := e.store.UpdateScore(ctx, c.SessionID, c.HomeScore, c.AwayScore); err != nil {
		return fmt.Errorf("apply end from primary: %w", err)
	}
	if err := e.store.DeleteAllSessions(ctx); err != nil {
		return fmt.Errorf("apply end from primary: %w", err)
	}
	return nil
}

// applySessionEndedAck marks the companion session inactive.
func (e *Engine) applySessionEndedAck(ctx context.Context, c wire.SessionEndedAck) error {
	_, ok, err := e.lookupSession(ctx, c)
	if err != nil || !ok {
		return err
	}
	if err := e.store.SetActive(ctx, c.SessionID, false); err != nil {
		return fmt.Errorf("apply session ended ack: %w", err)
	}
	return nil
}
