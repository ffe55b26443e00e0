package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/store"
	"github.com/roach88/matchlink/internal/testutil"
	"github.com/roach88/matchlink/internal/transport"
	"github.com/roach88/matchlink/internal/wire"
)

var testStart = time.Date(2025, time.June, 24, 18, 0, 0, 0, time.UTC)

// captureTransport records outbound sends so tests can assert on the
// sync policy without a peer.
type captureTransport struct {
	mu          sync.Mutex
	unreachable bool
	best        []wire.Payload
	guaranteed  []wire.Payload
}

func (c *captureTransport) SendBestEffort(p wire.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unreachable {
		return transport.ErrUnreachable
	}
	c.best = append(c.best, p)
	return nil
}

func (c *captureTransport) SendGuaranteed(p wire.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guaranteed = append(c.guaranteed, p)
}

func (c *captureTransport) Reachable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.unreachable
}

func (c *captureTransport) setUnreachable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unreachable = v
}

func kinds(payloads []wire.Payload) []string {
	out := make([]string, len(payloads))
	for i, p := range payloads {
		out[i], _ = p["command"].(string)
	}
	return out
}

func (c *captureTransport) bestKinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return kinds(c.best)
}

func (c *captureTransport) guaranteedKinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return kinds(c.guaranteed)
}

func (c *captureTransport) lastGuaranteed() wire.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.guaranteed) == 0 {
		return nil
	}
	return c.guaranteed[len(c.guaranteed)-1]
}

func (c *captureTransport) guaranteedAt(i int) wire.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guaranteed[i]
}

// newTestEngine builds an engine over a throwaway store with a
// deterministic clock and id sequence, with its Run loop started.
func newTestEngine(t *testing.T, role model.Role, tr transport.Transport) *Engine {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := New(role, s, tr,
		WithClock(testutil.NewSteppingClock(testStart, time.Second).Now),
		WithIDGenerator(testutil.NewSequentialIDs(1)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

// deliver feeds one command through the inbound path and waits for the
// actor to process it.
func deliver(t *testing.T, e *Engine, cmd wire.Command) {
	t.Helper()
	require.True(t, e.HandlePayload(wire.Encode(cmd)))
	require.NoError(t, e.Barrier(context.Background()))
}

// startStandardSession starts Rovers vs Wanderers with Ana (home) and
// Bo (away) on the given primary engine.
func startStandardSession(t *testing.T, e *Engine) (model.Session, []model.Player) {
	t.Helper()
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "Rovers", "Wanderers", []RosterEntry{
		{Name: "Ana", IsHome: true},
		{Name: "Bo", IsHome: false},
	})
	require.NoError(t, err)

	players, err := e.Store().ListPlayers(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, players, 2)
	return sess, players
}

// seedCompanionSession pushes a startSession command into a companion
// engine and returns the session and roster ids used.
func seedCompanionSession(t *testing.T, e *Engine) (uuid.UUID, []wire.Participant) {
	t.Helper()

	sessionID := uuid.MustParse("11111111-0000-4000-8000-000000000001")
	participants := []wire.Participant{
		{ID: uuid.MustParse("11111111-0000-4000-8000-000000000002"), Name: "Ana", IsHome: true},
		{ID: uuid.MustParse("11111111-0000-4000-8000-000000000003"), Name: "Bo", IsHome: false},
	}
	deliver(t, e, wire.StartSession{
		SessionID:    sessionID,
		HomeTeamName: "Rovers",
		AwayTeamName: "Wanderers",
		Participants: participants,
	})
	return sessionID, participants
}

func TestStartSessionCompanionRefuses(t *testing.T) {
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})

	_, err := e.StartSession(context.Background(), "A", "B", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only the primary")
}

func TestLiveGoalOnPrimary(t *testing.T) {
	ctx := context.Background()
	tr := &captureTransport{}
	e := newTestEngine(t, model.RolePrimary, tr)
	sess, players := startStandardSession(t, e)
	ana, bo := players[0], players[1]

	ev, err := e.RecordEvent(ctx, sess.ID, model.EventGoal, ana.ID, bo.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, ev.ScorerID)
	assert.Equal(t, bo.ID, ev.AssistantID)
	assert.True(t, ev.IsHome, "side follows the scorer's roster entry")

	got, err := e.Store().GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.HomeScore)
	assert.Equal(t, 0, got.AwayScore)

	anaStats, err := e.Store().GetStats(ctx, sess.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, anaStats.Goals)
	assert.InDelta(t, 6.4, anaStats.Score(), 1e-9)

	boStats, err := e.Store().GetStats(ctx, sess.ID, bo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, boStats.Assists)

	// The goal rides both channels; the score refresh rides only the
	// cheap one.
	assert.Equal(t, []string{"startSession", "scoreSync", "recordEvent"}, tr.bestKinds())
	assert.Equal(t, []string{"recordEvent"}, tr.guaranteedKinds())
}

func TestLocalOnlyKindsDoNotCross(t *testing.T) {
	ctx := context.Background()
	tr := &captureTransport{}
	e := newTestEngine(t, model.RolePrimary, tr)
	sess, players := startStandardSession(t, e)

	for _, kind := range []model.EventKind{model.EventFoul, model.EventYellowCard, model.EventRedCard} {
		_, err := e.RecordEvent(ctx, sess.ID, kind, players[0].ID, uuid.Nil)
		require.NoError(t, err)
	}

	events, err := e.Store().ListEvents(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3, "local kinds still land in the log")

	assert.Equal(t, []string{"startSession"}, tr.bestKinds(), "nothing crossed")
	assert.Empty(t, tr.guaranteedKinds())
}

func TestRecordEventRejectsUnknownKind(t *testing.T) {
	e := newTestEngine(t, model.RolePrimary, &captureTransport{})
	sess, players := startStandardSession(t, e)

	_, err := e.RecordEvent(context.Background(), sess.ID, "throwIn", players[0].ID, uuid.Nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})
	sessionID, participants := seedCompanionSession(t, e)

	rec := wire.EventRecord{
		ID:        uuid.MustParse("11111111-0000-4000-8000-00000000000e"),
		Kind:      model.EventGoal,
		Timestamp: testStart.Add(time.Minute),
		IsHome:    true,
		PlayerID:  participants[0].ID,
	}
	cmd := wire.RecordEvent{SessionID: sessionID, Event: rec}

	// Live channel and durable backup both deliver.
	deliver(t, e, cmd)
	deliver(t, e, cmd)

	events, err := e.Store().ListEvents(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	stats, err := e.Store().GetStats(ctx, sessionID, participants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Goals, "counters bumped exactly once")
}

func TestDedupKeyIsTheEventID(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})
	sessionID, participants := seedCompanionSession(t, e)

	rec := wire.EventRecord{
		ID:        uuid.MustParse("11111111-0000-4000-8000-00000000000e"),
		Kind:      model.EventGoal,
		Timestamp: testStart.Add(time.Minute),
		IsHome:    true,
		PlayerID:  participants[0].ID,
	}
	deliver(t, e, wire.RecordEvent{SessionID: sessionID, Event: rec})

	// Same id, mutated content. First write wins.
	altered := rec
	altered.Timestamp = testStart.Add(2 * time.Minute)
	deliver(t, e, wire.RecordEvent{SessionID: sessionID, Event: altered})

	events, err := e.Store().ListEvents(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, rec.Timestamp, events[0].Timestamp)
}

func TestUnresolvedActorKeepsEventAndScore(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, model.RolePrimary, &captureTransport{})
	sess, _ := startStandardSession(t, e)

	ghost := uuid.MustParse("99999999-0000-4000-8000-000000000009")
	deliver(t, e, wire.RecordEvent{SessionID: sess.ID, Event: wire.EventRecord{
		ID:        uuid.MustParse("11111111-0000-4000-8000-00000000000e"),
		Kind:      model.EventGoal,
		Timestamp: testStart.Add(time.Minute),
		IsHome:    true,
		PlayerID:  ghost,
	}})

	events, err := e.Store().ListEvents(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uuid.Nil, events[0].ScorerID, "unknown actor stored as unresolved")
	assert.True(t, events[0].IsHome, "wire flag kept when the roster cannot resolve")

	got, err := e.Store().GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.HomeScore, "team score never blocked on roster completeness")

	stats, err := e.Store().ListStats(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stats, "no per-player counter for an unresolved actor")
}

func TestWrongDirectionCommandsDropped(t *testing.T) {
	ctx := context.Background()

	primary := newTestEngine(t, model.RolePrimary, &captureTransport{})
	deliver(t, primary, wire.StartSession{
		SessionID:    uuid.MustParse("11111111-0000-4000-8000-000000000001"),
		HomeTeamName: "A",
		AwayTeamName: "B",
	})
	_, err := primary.Store().GetSession(ctx, uuid.MustParse("11111111-0000-4000-8000-000000000001"))
	require.ErrorIs(t, err, store.ErrNotFound, "primary never accepts startSession")

	companion := newTestEngine(t, model.RoleCompanion, &captureTransport{})
	sessionID, _ := seedCompanionSession(t, companion)
	deliver(t, companion, wire.EndFromCompanion{SessionID: sessionID})
	got, err := companion.Store().GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status, "companion never accepts its own end command")
}

func TestGarbagePayloadsAreDroppedNotFatal(t *testing.T) {
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})

	require.True(t, e.HandlePayload(wire.Payload{"command": "timeTravel", "sessionId": uuid.Nil.String()}))
	require.True(t, e.HandlePayload(wire.Payload{"what": "is this"}))
	require.True(t, e.HandlePayload(wire.Payload{"command": "recordEvent", "sessionId": "not-a-uuid"}))
	require.NoError(t, e.Barrier(context.Background()))

	// The engine keeps serving after each drop.
	sessionID, _ := seedCompanionSession(t, e)
	_, err := e.Store().GetSession(context.Background(), sessionID)
	require.NoError(t, err)
}

func TestEventForUnknownSessionDropped(t *testing.T) {
	e := newTestEngine(t, model.RolePrimary, &captureTransport{})
	startStandardSession(t, e)

	other := uuid.MustParse("22222222-0000-4000-8000-000000000001")
	deliver(t, e, wire.RecordEvent{SessionID: other, Event: wire.EventRecord{
		ID:        uuid.MustParse("11111111-0000-4000-8000-00000000000e"),
		Kind:      model.EventGoal,
		Timestamp: testStart,
		IsHome:    true,
		PlayerID:  uuid.MustParse("11111111-0000-4000-8000-000000000002"),
	}})

	events, err := e.Store().ListEvents(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventForFinishedSessionDropped(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, model.RolePrimary, &captureTransport{})
	sess, players := startStandardSession(t, e)

	require.NoError(t, e.EndSession(ctx, sess.ID))

	deliver(t, e, wire.RecordEvent{SessionID: sess.ID, Event: wire.EventRecord{
		ID:        uuid.MustParse("11111111-0000-4000-8000-00000000000e"),
		Kind:      model.EventGoal,
		Timestamp: testStart.Add(time.Minute),
		IsHome:    true,
		PlayerID:  players[0].ID,
	}})

	events, err := e.Store().ListEvents(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, events, "terminal sessions accept no further events")
}

func TestStartSessionReplacesCompanionState(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})
	oldID, _ := seedCompanionSession(t, e)

	newID := uuid.MustParse("33333333-0000-4000-8000-000000000001")
	deliver(t, e, wire.StartSession{
		SessionID:    newID,
		HomeTeamName: "Lions",
		AwayTeamName: "Tigers",
		Participants: []wire.Participant{
			{ID: uuid.MustParse("33333333-0000-4000-8000-000000000002"), Name: "Cam", IsHome: true},
		},
	})

	_, err := e.Store().GetSession(ctx, oldID)
	require.ErrorIs(t, err, store.ErrNotFound, "previous session cleared")

	got, err := e.Store().GetSession(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, "Lions", got.HomeTeamName)
	assert.True(t, got.Active)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestSessionEndedAckDeactivates(t *testing.T) {
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})
	sessionID, _ := seedCompanionSession(t, e)

	deliver(t, e, wire.SessionEndedAck{SessionID: sessionID})

	got, err := e.Store().GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestEndFromPrimaryClearsCompanion(t *testing.T) {
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})
	sessionID, _ := seedCompanionSession(t, e)

	deliver(t, e, wire.EndFromPrimary{SessionID: sessionID, HomeScore: 2, AwayScore: 1})

	_, err := e.Store().GetSession(context.Background(), sessionID)
	require.ErrorIs(t, err, store.ErrNotFound, "companion keeps no history")
}

func TestScoreSyncRefreshesCompanionScore(t *testing.T) {
	e := newTestEngine(t, model.RoleCompanion, &captureTransport{})
	sessionID, _ := seedCompanionSession(t, e)

	deliver(t, e, wire.ScoreSync{SessionID: sessionID, HomeScore: 3, AwayScore: 2})
	deliver(t, e, wire.ScoreSync{SessionID: sessionID, HomeScore: 3, AwayScore: 3})

	got, err := e.Store().GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.HomeScore)
	assert.Equal(t, 3, got.AwayScore, "last write wins")
}
