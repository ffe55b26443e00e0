package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: cli-pass
description: one goal each way, primary ends
home_team: Rovers
away_team: Wanderers
roster:
  - ref: ana
    name: Ana
    home: true
  - ref: bo
    name: Bo
    home: false
steps:
  - device: companion
    record: {kind: goal, player: ana}
  - device: primary
    record: {kind: goal, player: bo}
  - device: primary
    end: true
expect:
  primary:
    status: finished
    home_score: 1
    away_score: 1
  companion:
    cleared: true
`

const failingScenario = `
name: cli-fail
description: expectation does not match the run
home_team: Rovers
away_team: Wanderers
roster:
  - ref: ana
    name: Ana
    home: true
steps:
  - device: primary
    record: {kind: goal, player: ana}
expect:
  primary:
    home_score: 5
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSimulatePassingScenario(t *testing.T) {
	path := writeFixture(t, "pass.yaml", passingScenario)

	out, err := executeCommand(t, "simulate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "result: PASS")
	assert.Contains(t, out, "primary: finished 1-1")
}

func TestSimulateFailingScenarioExitsNonzero(t *testing.T) {
	path := writeFixture(t, "fail.yaml", failingScenario)

	out, err := executeCommand(t, "simulate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "result: FAIL")
	assert.Contains(t, out, "home score")
}

func TestSimulateJSONOutput(t *testing.T) {
	path := writeFixture(t, "pass.yaml", passingScenario)

	out, err := executeCommand(t, "--format", "json", "simulate", path)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	reports, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, reports, 1)
	report := reports[0].(map[string]any)
	assert.Equal(t, "cli-pass", report["scenario"])
	assert.Equal(t, true, report["passed"])
}

func TestSimulateMissingFile(t *testing.T) {
	_, err := executeCommand(t, "simulate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
