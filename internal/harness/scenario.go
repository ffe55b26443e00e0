package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/matchlink/internal/model"
)

// Scenario scripts one match across both devices.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files use it.
	Name string `yaml:"name"`

	// Description explains what this scenario pins down.
	Description string `yaml:"description"`

	// HomeTeam and AwayTeam name the two sides.
	HomeTeam string `yaml:"home_team"`
	AwayTeam string `yaml:"away_team"`

	// Roster lists the participants present at kickoff. Refs are
	// scenario-local handles used by steps and expectations; real ids
	// are minted at run time.
	Roster []RosterEntry `yaml:"roster"`

	// Steps run in order after the primary starts the session.
	Steps []Step `yaml:"steps"`

	// Expect describes the final state of each device.
	Expect Expect `yaml:"expect"`
}

// RosterEntry declares one participant.
type RosterEntry struct {
	Ref  string `yaml:"ref"`
	Name string `yaml:"name"`
	Home bool   `yaml:"home"`
}

// Step is one scripted action. Exactly one of the action fields must
// be set.
type Step struct {
	// Device selects where the action happens: "primary" or
	// "companion". Required for record, add_player, and end.
	Device string `yaml:"device,omitempty"`

	// Record appends a match event on the device.
	Record *RecordStep `yaml:"record,omitempty"`

	// AddPlayer joins a participant mid-session.
	AddPlayer *RosterEntry `yaml:"add_player,omitempty"`

	// End terminates the session from the device's point of view.
	End bool `yaml:"end,omitempty"`

	// Reachable flips link connectivity. Flipping to true drains the
	// guaranteed backlogs in order.
	Reachable *bool `yaml:"reachable,omitempty"`
}

// RecordStep describes one event recording.
type RecordStep struct {
	Kind      string `yaml:"kind"`
	Player    string `yaml:"player"`
	Assistant string `yaml:"assistant,omitempty"`
}

// Expect holds the per-device final-state expectations.
type Expect struct {
	Primary   *ExpectDevice `yaml:"primary,omitempty"`
	Companion *ExpectDevice `yaml:"companion,omitempty"`
}

// ExpectDevice describes the final state of one device's store.
type ExpectDevice struct {
	// Cleared asserts the device retains no session at all.
	Cleared bool `yaml:"cleared,omitempty"`

	Status    string `yaml:"status,omitempty"`
	HomeScore *int   `yaml:"home_score,omitempty"`
	AwayScore *int   `yaml:"away_score,omitempty"`

	// Stats maps roster refs to expected counters. Refs absent from
	// the map are not checked.
	Stats map[string]ExpectStats `yaml:"stats,omitempty"`

	// Leaderboard picks by roster ref; "" means not checked, "none"
	// asserts the pick is empty.
	MVP           string `yaml:"mvp,omitempty"`
	TopScorer     string `yaml:"top_scorer,omitempty"`
	TopGoalkeeper string `yaml:"top_goalkeeper,omitempty"`
	TopPlaymaker  string `yaml:"top_playmaker,omitempty"`
}

// ExpectStats pins one player's counters and, optionally, the derived
// performance score.
type ExpectStats struct {
	Goals   int      `yaml:"goals,omitempty"`
	Assists int      `yaml:"assists,omitempty"`
	Saves   int      `yaml:"saves,omitempty"`
	Score   *float64 `yaml:"score,omitempty"`
}

// NoPick asserts that a leaderboard slot is empty.
const NoPick = "none"

// Load reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping steps.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks structural soundness: required fields, unique refs,
// one action per step, and that every player reference resolves.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.HomeTeam == "" || sc.AwayTeam == "" {
		return fmt.Errorf("home_team and away_team are required")
	}
	if len(sc.Roster) == 0 {
		return fmt.Errorf("roster must not be empty")
	}

	refs := make(map[string]bool, len(sc.Roster))
	names := make(map[string]bool, len(sc.Roster))
	addRef := func(e RosterEntry) error {
		if e.Ref == "" || e.Name == "" {
			return fmt.Errorf("roster entries need ref and name")
		}
		if refs[e.Ref] {
			return fmt.Errorf("duplicate roster ref %q", e.Ref)
		}
		if names[e.Name] {
			return fmt.Errorf("duplicate roster name %q", e.Name)
		}
		refs[e.Ref] = true
		names[e.Name] = true
		return nil
	}
	for _, e := range sc.Roster {
		if err := addRef(e); err != nil {
			return err
		}
	}

	for i, st := range sc.Steps {
		actions := 0
		if st.Record != nil {
			actions++
		}
		if st.AddPlayer != nil {
			actions++
		}
		if st.End {
			actions++
		}
		if st.Reachable != nil {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("steps[%d]: exactly one action per step", i)
		}

		if st.Reachable != nil {
			if st.Device != "" {
				return fmt.Errorf("steps[%d]: reachable is a link step, drop device", i)
			}
			continue
		}
		if st.Device != "primary" && st.Device != "companion" {
			return fmt.Errorf("steps[%d]: device must be primary or companion", i)
		}

		switch {
		case st.Record != nil:
			if !model.EventKind(st.Record.Kind).Valid() {
				return fmt.Errorf("steps[%d]: unknown event kind %q", i, st.Record.Kind)
			}
			if !refs[st.Record.Player] {
				return fmt.Errorf("steps[%d]: unknown player ref %q", i, st.Record.Player)
			}
			if st.Record.Assistant != "" && !refs[st.Record.Assistant] {
				return fmt.Errorf("steps[%d]: unknown assistant ref %q", i, st.Record.Assistant)
			}
		case st.AddPlayer != nil:
			if err := addRef(*st.AddPlayer); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
	}

	for _, dev := range []*ExpectDevice{sc.Expect.Primary, sc.Expect.Companion} {
		if dev == nil {
			continue
		}
		for ref := range dev.Stats {
			if !refs[ref] {
				return fmt.Errorf("expect: unknown stats ref %q", ref)
			}
		}
		for _, pick := range []string{dev.MVP, dev.TopScorer, dev.TopGoalkeeper, dev.TopPlaymaker} {
			if pick != "" && pick != NoPick && !refs[pick] {
				return fmt.Errorf("expect: unknown leaderboard ref %q", pick)
			}
		}
	}

	return nil
}
