package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchlink/internal/harness"
)

// runFixtureMatch plays a full scripted match and returns the primary
// device's database path and the run result.
func runFixtureMatch(t *testing.T) (string, *harness.Result) {
	t.Helper()
	sc, err := harness.Load(writeFixture(t, "match.yaml", passingScenario))
	require.NoError(t, err)

	dir := t.TempDir()
	res, err := harness.Run(sc, dir)
	require.NoError(t, err)
	return filepath.Join(dir, "primary.db"), res
}

func TestStatsPrintsFinishedSession(t *testing.T) {
	db, _ := runFixtureMatch(t)

	out, err := executeCommand(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Rovers 1 - 1 Wanderers  [finished]")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Bo")
	assert.Contains(t, out, "score=6.40")
}

func TestStatsBySessionID(t *testing.T) {
	db, res := runFixtureMatch(t)

	out, err := executeCommand(t, "stats", "--db", db, "--session", res.SessionID.String())
	require.NoError(t, err)
	assert.Contains(t, out, res.SessionID.String())
}

func TestStatsJSONOutput(t *testing.T) {
	db, res := runFixtureMatch(t)

	out, err := executeCommand(t, "--format", "json", "stats", "--db", db)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, res.SessionID.String(), data["session_id"])
	assert.Equal(t, "finished", data["status"])
	assert.Len(t, data["players"], 2)
}

func TestStatsUnknownSession(t *testing.T) {
	db, _ := runFixtureMatch(t)

	_, err := executeCommand(t, "stats", "--db", db, "--session", "00000000-0000-4000-8000-00000000beef")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStatsMissingDatabaseDirectory(t *testing.T) {
	_, err := executeCommand(t, "stats", "--db", filepath.Join(t.TempDir(), "missing", "x.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
