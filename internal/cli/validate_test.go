package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brokenScenario = `
name: broken
description: references a player that is not on the roster
home_team: A
away_team: B
roster:
  - ref: p
    name: P
    home: true
steps:
  - device: primary
    record: {kind: goal, player: ghost}
`

func TestValidateAcceptsGoodFile(t *testing.T) {
	path := writeFixture(t, "good.yaml", passingScenario)

	out, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestValidateRejectsBrokenFile(t *testing.T) {
	good := writeFixture(t, "good.yaml", passingScenario)
	bad := writeFixture(t, "bad.yaml", brokenScenario)

	out, err := executeCommand(t, "validate", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 files invalid")
	assert.Contains(t, out, "unknown player ref")
}

func TestValidateJSONOutput(t *testing.T) {
	bad := writeFixture(t, "bad.yaml", brokenScenario)

	out, err := executeCommand(t, "--format", "json", "validate", bad)
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	reports := resp.Data.([]any)
	require.Len(t, reports, 1)
	report := reports[0].(map[string]any)
	assert.Equal(t, false, report["valid"])
}
