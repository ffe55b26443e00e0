package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/model"
)

// CreateSession inserts a session row. Idempotent on session id.
func (s *Store) CreateSession(ctx context.Context, sess model.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, home_team_name, away_team_name, start_time, status, home_score, away_score, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID.String(),
		sess.HomeTeamName,
		sess.AwayTeamName,
		sess.StartTime.UnixMilli(),
		string(sess.Status),
		sess.HomeScore,
		sess.AwayScore,
		boolInt(sess.Active),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CreateSessionWithRoster inserts a session and its initial roster in a
// single transaction. Either everything commits or nothing does - a
// malformed start command must not leave partial state behind.
func (s *Store) CreateSessionWithRoster(ctx context.Context, sess model.Session, roster []model.Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create session with roster: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, home_team_name, away_team_name, start_time, status, home_score, away_score, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID.String(),
		sess.HomeTeamName,
		sess.AwayTeamName,
		sess.StartTime.UnixMilli(),
		string(sess.Status),
		sess.HomeScore,
		sess.AwayScore,
		boolInt(sess.Active),
	)
	if err != nil {
		return fmt.Errorf("create session with roster: insert session: %w", err)
	}

	for _, p := range roster {
		if err := insertPlayerTx(ctx, tx, p); err != nil {
			return fmt.Errorf("create session with roster: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create session with roster: commit: %w", err)
	}
	return nil
}

// DeleteAllSessions removes every session together with its roster,
// events, and stats. The companion calls this when a new session starts
// (single-active-session invariant) and on authoritative teardown.
func (s *Store) DeleteAllSessions(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete all sessions: begin tx: %w", err)
	}
	defer tx.Rollback()

	// players and events cascade from sessions; player_stats has no FK
	// (the pair key spans devices) and is cleared explicitly.
	for _, stmt := range []string{
		"DELETE FROM player_stats",
		"DELETE FROM sessions",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("delete all sessions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete all sessions: commit: %w", err)
	}
	return nil
}

// InsertPlayer adds a roster entry. Returns inserted=false when a
// player with the same (session, player) pair already exists - the
// dedup that makes redelivered roster commands harmless.
func (s *Store) InsertPlayer(ctx context.Context, p model.Player) (inserted bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, session_id, name, is_home, number)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO NOTHING
	`,
		p.ID.String(),
		p.SessionID.String(),
		p.Name,
		boolInt(p.IsHome),
		p.Number,
	)
	if err != nil {
		return false, fmt.Errorf("insert player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert player: rows affected: %w", err)
	}
	return n > 0, nil
}

func insertPlayerTx(ctx context.Context, tx *sql.Tx, p model.Player) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO players (id, session_id, name, is_home, number)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO NOTHING
	`,
		p.ID.String(),
		p.SessionID.String(),
		p.Name,
		boolInt(p.IsHome),
		p.Number,
	)
	if err != nil {
		return fmt.Errorf("insert player %s: %w", p.ID, err)
	}
	return nil
}

// InsertEvent appends an event to the log. Returns inserted=false when
// an event with the same id already exists. This is the critical
// idempotence guarantee: the eventual-delivery channel may redeliver
// the same payload, and a live send may race a later backup of the
// same event.
func (s *Store) InsertEvent(ctx context.Context, ev model.Event) (inserted bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, session_id, kind, ts, is_home, scorer_id, assistant_id, goalkeeper_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID.String(),
		ev.SessionID.String(),
		string(ev.Kind),
		ev.Timestamp.UnixMilli(),
		boolInt(ev.IsHome),
		uuidText(ev.ScorerID),
		uuidText(ev.AssistantID),
		uuidText(ev.GoalkeeperID),
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: rows affected: %w", err)
	}
	return n > 0, nil
}

// BumpStats applies an incremental counter delta for the live fast
// path. The row is created on first touch.
func (s *Store) BumpStats(ctx context.Context, delta model.PlayerStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_stats (session_id, player_id, is_home, goals, assists, saves)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, player_id) DO UPDATE SET
			goals   = goals + excluded.goals,
			assists = assists + excluded.assists,
			saves   = saves + excluded.saves
	`,
		delta.SessionID.String(),
		delta.PlayerID.String(),
		boolInt(delta.IsHome),
		delta.Goals,
		delta.Assists,
		delta.Saves,
	)
	if err != nil {
		return fmt.Errorf("bump stats: %w", err)
	}
	return nil
}

// UpdateScore sets the session's running score.
func (s *Store) UpdateScore(ctx context.Context, sessionID uuid.UUID, home, away int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET home_score = ?, away_score = ? WHERE id = ?
	`, home, away, sessionID.String())
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

// SetStatus updates the session lifecycle state.
func (s *Store) SetStatus(ctx context.Context, sessionID uuid.UUID, status model.SessionStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ? WHERE id = ?
	`, string(status), sessionID.String())
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// SetActive updates the companion-side active flag.
func (s *Store) SetActive(ctx context.Context, sessionID uuid.UUID, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET active = ? WHERE id = ?
	`, boolInt(active), sessionID.String())
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// FinishSession persists the outcome of end-of-session reconciliation
// in one transaction: events repaired from the peer snapshot, the fully
// recomputed stats (replacing whatever the incremental path left), and
// the final session row. Either all of it commits or none of it does.
func (s *Store) FinishSession(ctx context.Context, sess model.Session, repaired []model.Event, stats []model.PlayerStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish session: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range repaired {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events
			(id, session_id, kind, ts, is_home, scorer_id, assistant_id, goalkeeper_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			ev.ID.String(),
			ev.SessionID.String(),
			string(ev.Kind),
			ev.Timestamp.UnixMilli(),
			boolInt(ev.IsHome),
			uuidText(ev.ScorerID),
			uuidText(ev.AssistantID),
			uuidText(ev.GoalkeeperID),
		)
		if err != nil {
			return fmt.Errorf("finish session: insert event %s: %w", ev.ID, err)
		}
	}

	// Recomputed stats replace the incremental counters wholesale.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM player_stats WHERE session_id = ?
	`, sess.ID.String()); err != nil {
		return fmt.Errorf("finish session: clear stats: %w", err)
	}

	for _, st := range stats {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO player_stats (session_id, player_id, is_home, goals, assists, saves)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			st.SessionID.String(),
			st.PlayerID.String(),
			boolInt(st.IsHome),
			st.Goals,
			st.Assists,
			st.Saves,
		)
		if err != nil {
			return fmt.Errorf("finish session: insert stats %s: %w", st.PlayerID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET
			status = ?,
			home_score = ?,
			away_score = ?,
			mvp_id = ?,
			top_scorer_id = ?,
			top_goalkeeper_id = ?,
			top_playmaker_id = ?,
			player_count = ?,
			duration_minutes = ?
		WHERE id = ?
	`,
		string(sess.Status),
		sess.HomeScore,
		sess.AwayScore,
		uuidText(sess.MVP),
		uuidText(sess.TopScorer),
		uuidText(sess.TopGoalkeeper),
		uuidText(sess.TopPlaymaker),
		sess.PlayerCount,
		sess.DurationMinutes,
		sess.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("finish session: update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish session: commit: %w", err)
	}
	return nil
}
