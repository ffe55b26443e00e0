package cli

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/store"
)

func TestReplayCleanLog(t *testing.T) {
	db, _ := runFixtureMatch(t)

	out, err := executeCommand(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "replayed 2 events")
	assert.Contains(t, out, "counters match the event log")
}

func TestReplayDetectsDrift(t *testing.T) {
	db, res := runFixtureMatch(t)
	skewCounters(t, db, res.SessionID.String(), res.Players["ana"].String())

	out, err := executeCommand(t, "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "drift in 1 counter(s)")
	assert.Contains(t, out, "goals: stored=2 replayed=1")
}

func TestReplayWriteRepairsDrift(t *testing.T) {
	db, res := runFixtureMatch(t)
	skewCounters(t, db, res.SessionID.String(), res.Players["ana"].String())

	out, err := executeCommand(t, "replay", "--db", db, "--write")
	require.NoError(t, err, "repairing replay must exit zero")
	assert.Contains(t, out, "recomputed aggregates written")

	out, err = executeCommand(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "counters match the event log")
}

// skewCounters bumps one stored counter past what the event log
// supports, simulating live-path drift.
func skewCounters(t *testing.T, db, sessionID, playerID string) {
	t.Helper()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.BumpStats(context.Background(), model.PlayerStats{
		SessionID: uuid.MustParse(sessionID),
		PlayerID:  uuid.MustParse(playerID),
		IsHome:    true,
		Goals:     1,
	}))
}
