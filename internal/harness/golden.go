package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file shape: the command sequence each
// device received. Per-device order is deterministic (each device's
// deliveries are serialized by the sender's actor loop); interleaving
// across devices is not, so the two sequences are kept separate.
type TraceSnapshot struct {
	ScenarioName string   `json:"scenario_name"`
	ToPrimary    []string `json:"to_primary"`
	ToCompanion  []string `json:"to_companion"`
}

// RunWithGolden executes a scenario, verifies its expectations, and
// compares the delivery trace against testdata/golden/{name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario, dir string) *Result {
	t.Helper()

	res, err := Run(sc, dir)
	if err != nil {
		t.Fatalf("run scenario %s: %v", sc.Name, err)
	}
	for _, err := range Verify(sc, res) {
		t.Error(err)
	}

	snapshot := TraceSnapshot{
		ScenarioName: sc.Name,
		ToPrimary:    res.ToPrimary,
		ToCompanion:  res.ToCompanion,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return res
}

// FormatResult renders a run result for human consumption; the
// simulate command uses it.
func FormatResult(sc *Scenario, res *Result) string {
	out := fmt.Sprintf("scenario: %s\nsession:  %s\n", sc.Name, res.SessionID)
	out += formatDevice("primary", res.Primary)
	out += formatDevice("companion", res.Companion)
	out += fmt.Sprintf("delivered to primary:   %v\n", res.ToPrimary)
	out += fmt.Sprintf("delivered to companion: %v\n", res.ToCompanion)
	return out
}

func formatDevice(name string, st *DeviceState) string {
	if st == nil {
		return fmt.Sprintf("%s: cleared\n", name)
	}
	out := fmt.Sprintf("%s: %s %d-%d (%d events, %d players)\n",
		name, st.Session.Status, st.Session.HomeScore, st.Session.AwayScore,
		len(st.Events), st.Session.PlayerCount)
	for _, s := range st.Stats {
		out += fmt.Sprintf("  %s  goals=%d assists=%d saves=%d score=%.2f\n",
			s.PlayerID, s.Goals, s.Assists, s.Saves, s.Score())
	}
	return out
}
