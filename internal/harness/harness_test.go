package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no scenario files found")

	for _, path := range files {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := Load(path)
			require.NoError(t, err)
			RunWithGolden(t, sc, t.TempDir())
		})
	}
}

func TestRunPopulatesResult(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "scenarios", "live_goal.yaml"))
	require.NoError(t, err)

	res, err := Run(sc, t.TempDir())
	require.NoError(t, err)

	assert.Len(t, res.Players, 3)
	require.NotNil(t, res.Primary)
	assert.Len(t, res.Primary.Events, 2)
	assert.Equal(t, 3, res.Primary.Session.PlayerCount)
	assert.Nil(t, res.Companion, "companion clears its store on session end")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: misspelled key
home_team: A
away_team: B
roster:
  - ref: p
    name: P
    home: true
steps: []
expects: {}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario")
}

func TestValidateCatchesBrokenScenarios(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown player ref",
			yaml: `
name: bad-ref
description: step references nobody
home_team: A
away_team: B
roster:
  - ref: p
    name: P
    home: true
steps:
  - device: companion
    record: {kind: goal, player: ghost}
`,
			want: "unknown player ref",
		},
		{
			name: "two actions in one step",
			yaml: `
name: double-step
description: record and end together
home_team: A
away_team: B
roster:
  - ref: p
    name: P
    home: true
steps:
  - device: primary
    record: {kind: goal, player: p}
    end: true
`,
			want: "exactly one action",
		},
		{
			name: "bad event kind",
			yaml: `
name: bad-kind
description: unsupported event kind
home_team: A
away_team: B
roster:
  - ref: p
    name: P
    home: true
steps:
  - device: primary
    record: {kind: throwIn, player: p}
`,
			want: "unknown event kind",
		},
		{
			name: "duplicate ref",
			yaml: `
name: dup-ref
description: two roster entries share a ref
home_team: A
away_team: B
roster:
  - ref: p
    name: P
    home: true
  - ref: p
    name: Q
    home: false
steps: []
`,
			want: "duplicate roster ref",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeScenario(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestVerifyReportsMismatches(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "scenarios", "live_goal.yaml"))
	require.NoError(t, err)

	res, err := Run(sc, t.TempDir())
	require.NoError(t, err)
	require.Empty(t, Verify(sc, res))

	// Skew the expectations; Verify must notice every divergence.
	two := 2
	sc.Expect.Primary.HomeScore = &two
	sc.Expect.Primary.MVP = "carlos"
	errs := Verify(sc, res)
	assert.Len(t, errs, 2)
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
