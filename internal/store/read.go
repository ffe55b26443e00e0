package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/model"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("not found")

// GetSession returns the session with the given id, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, home_team_name, away_team_name, start_time, status,
		       home_score, away_score, active,
		       mvp_id, top_scorer_id, top_goalkeeper_id, top_playmaker_id,
		       player_count, duration_minutes
		FROM sessions
		WHERE id = ?
	`, id.String())

	var sess model.Session
	var idStr, statusStr string
	var startMillis int64
	var active int
	var mvp, scorer, keeper, playmaker string
	err := row.Scan(
		&idStr, &sess.HomeTeamName, &sess.AwayTeamName, &startMillis, &statusStr,
		&sess.HomeScore, &sess.AwayScore, &active,
		&mvp, &scorer, &keeper, &playmaker,
		&sess.PlayerCount, &sess.DurationMinutes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}

	sess.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: parse id: %w", err)
	}
	sess.StartTime = time.UnixMilli(startMillis).UTC()
	sess.Status = model.SessionStatus(statusStr)
	sess.Active = active != 0
	if sess.MVP, err = parseUUIDText(mvp); err != nil {
		return model.Session{}, fmt.Errorf("get session: parse mvp: %w", err)
	}
	if sess.TopScorer, err = parseUUIDText(scorer); err != nil {
		return model.Session{}, fmt.Errorf("get session: parse top scorer: %w", err)
	}
	if sess.TopGoalkeeper, err = parseUUIDText(keeper); err != nil {
		return model.Session{}, fmt.Errorf("get session: parse top goalkeeper: %w", err)
	}
	if sess.TopPlaymaker, err = parseUUIDText(playmaker); err != nil {
		return model.Session{}, fmt.Errorf("get session: parse top playmaker: %w", err)
	}
	return sess, nil
}

// ActiveSession returns the single active session, or ErrNotFound.
// Companion-side convenience.
func (s *Store) ActiveSession(ctx context.Context) (model.Session, error) {
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM sessions WHERE active = 1 LIMIT 1
	`).Scan(&idStr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("active session: %w", ErrNotFound)
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("active session: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Session{}, fmt.Errorf("active session: parse id: %w", err)
	}
	return s.GetSession(ctx, id)
}

// ListPlayers returns the roster for a session, insertion order
// preserved by rowid.
func (s *Store) ListPlayers(ctx context.Context, sessionID uuid.UUID) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, name, is_home, number
		FROM players
		WHERE session_id = ?
		ORDER BY rowid ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		var idStr, sStr string
		var isHome int
		var number sql.NullInt64
		if err := rows.Scan(&idStr, &sStr, &p.Name, &isHome, &number); err != nil {
			return nil, fmt.Errorf("list players: scan: %w", err)
		}
		if p.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("list players: parse id: %w", err)
		}
		if p.SessionID, err = uuid.Parse(sStr); err != nil {
			return nil, fmt.Errorf("list players: parse session id: %w", err)
		}
		p.IsHome = isHome != 0
		if number.Valid {
			n := int(number.Int64)
			p.Number = &n
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: iterate: %w", err)
	}
	return players, nil
}

// ListEvents returns the event log for a session ordered by timestamp,
// then id for determinism between equal timestamps.
func (s *Store) ListEvents(ctx context.Context, sessionID uuid.UUID) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, kind, ts, is_home, scorer_id, assistant_id, goalkeeper_id
		FROM events
		WHERE session_id = ?
		ORDER BY ts ASC, id ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: iterate: %w", err)
	}
	return events, nil
}

// KnownEventIDs returns the set of event ids already stored for a
// session. Reconciliation uses this to decide which snapshot events to
// materialize.
func (s *Store) KnownEventIDs(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM events WHERE session_id = ?
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("known event ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("known event ids: scan: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("known event ids: parse: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("known event ids: iterate: %w", err)
	}
	return ids, nil
}

// ListStats returns the per-player counters for a session.
func (s *Store) ListStats(ctx context.Context, sessionID uuid.UUID) ([]model.PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, player_id, is_home, goals, assists, saves
		FROM player_stats
		WHERE session_id = ?
		ORDER BY player_id ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	var stats []model.PlayerStats
	for rows.Next() {
		var st model.PlayerStats
		var sStr, pStr string
		var isHome int
		if err := rows.Scan(&sStr, &pStr, &isHome, &st.Goals, &st.Assists, &st.Saves); err != nil {
			return nil, fmt.Errorf("list stats: scan: %w", err)
		}
		if st.SessionID, err = uuid.Parse(sStr); err != nil {
			return nil, fmt.Errorf("list stats: parse session id: %w", err)
		}
		if st.PlayerID, err = uuid.Parse(pStr); err != nil {
			return nil, fmt.Errorf("list stats: parse player id: %w", err)
		}
		st.IsHome = isHome != 0
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stats: iterate: %w", err)
	}
	return stats, nil
}

// GetStats returns the counters for one player in one session, or a
// zero-valued row when none exist yet.
func (s *Store) GetStats(ctx context.Context, sessionID, playerID uuid.UUID) (model.PlayerStats, error) {
	st := model.PlayerStats{SessionID: sessionID, PlayerID: playerID}
	var isHome int
	err := s.db.QueryRowContext(ctx, `
		SELECT is_home, goals, assists, saves
		FROM player_stats
		WHERE session_id = ? AND player_id = ?
	`, sessionID.String(), playerID.String()).Scan(&isHome, &st.Goals, &st.Assists, &st.Saves)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return model.PlayerStats{}, fmt.Errorf("get stats: %w", err)
	}
	st.IsHome = isHome != 0
	return st, nil
}

func scanEvent(rows *sql.Rows) (model.Event, error) {
	var ev model.Event
	var idStr, sStr, kindStr string
	var millis int64
	var isHome int
	var scorer, assist, keeper string
	if err := rows.Scan(&idStr, &sStr, &kindStr, &millis, &isHome, &scorer, &assist, &keeper); err != nil {
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}

	var err error
	if ev.ID, err = uuid.Parse(idStr); err != nil {
		return model.Event{}, fmt.Errorf("scan event: parse id: %w", err)
	}
	if ev.SessionID, err = uuid.Parse(sStr); err != nil {
		return model.Event{}, fmt.Errorf("scan event: parse session id: %w", err)
	}
	ev.Kind = model.EventKind(kindStr)
	ev.Timestamp = time.UnixMilli(millis).UTC()
	ev.IsHome = isHome != 0
	if ev.ScorerID, err = parseUUIDText(scorer); err != nil {
		return model.Event{}, fmt.Errorf("scan event: parse scorer: %w", err)
	}
	if ev.AssistantID, err = parseUUIDText(assist); err != nil {
		return model.Event{}, fmt.Errorf("scan event: parse assistant: %w", err)
	}
	if ev.GoalkeeperID, err = parseUUIDText(keeper); err != nil {
		return model.Event{}, fmt.Errorf("scan event: parse goalkeeper: %w", err)
	}
	return ev, nil
}

// uuidText maps uuid.Nil to the empty string for storage; parseUUIDText
// is its inverse.
func uuidText(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseUUIDText(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
