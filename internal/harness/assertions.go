package harness

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/model"
)

// scoreTolerance absorbs float64 rounding in the performance formula.
const scoreTolerance = 1e-9

// Verify checks a run result against the scenario's expectations and
// returns every mismatch. An empty slice means the scenario passed.
// Kept assertion-style rather than fail-fast so one run reports all
// divergences at once.
func Verify(sc *Scenario, res *Result) []error {
	var errs []error
	if sc.Expect.Primary != nil {
		errs = append(errs, verifyDevice("primary", sc.Expect.Primary, res.Primary, res)...)
	}
	if sc.Expect.Companion != nil {
		errs = append(errs, verifyDevice("companion", sc.Expect.Companion, res.Companion, res)...)
	}
	return errs
}

func verifyDevice(device string, want *ExpectDevice, got *DeviceState, res *Result) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", device, fmt.Sprintf(format, args...)))
	}

	if want.Cleared {
		if got != nil {
			fail("expected no session, found %s in status %s", got.Session.ID, got.Session.Status)
		}
		return errs
	}
	if got == nil {
		fail("expected a session, store is empty")
		return errs
	}

	if want.Status != "" && string(got.Session.Status) != want.Status {
		fail("status = %s, want %s", got.Session.Status, want.Status)
	}
	if want.HomeScore != nil && got.Session.HomeScore != *want.HomeScore {
		fail("home score = %d, want %d", got.Session.HomeScore, *want.HomeScore)
	}
	if want.AwayScore != nil && got.Session.AwayScore != *want.AwayScore {
		fail("away score = %d, want %d", got.Session.AwayScore, *want.AwayScore)
	}

	byPlayer := make(map[uuid.UUID]model.PlayerStats, len(got.Stats))
	for _, st := range got.Stats {
		byPlayer[st.PlayerID] = st
	}
	for ref, wantStats := range want.Stats {
		st := byPlayer[res.Players[ref]]
		if st.Goals != wantStats.Goals {
			fail("%s goals = %d, want %d", ref, st.Goals, wantStats.Goals)
		}
		if st.Assists != wantStats.Assists {
			fail("%s assists = %d, want %d", ref, st.Assists, wantStats.Assists)
		}
		if st.Saves != wantStats.Saves {
			fail("%s saves = %d, want %d", ref, st.Saves, wantStats.Saves)
		}
		if wantStats.Score != nil {
			if score := st.Score(); math.Abs(score-*wantStats.Score) > scoreTolerance {
				fail("%s score = %.4f, want %.4f", ref, score, *wantStats.Score)
			}
		}
	}

	checkPick := func(slot, ref string, got uuid.UUID) {
		switch ref {
		case "":
		case NoPick:
			if got != uuid.Nil {
				fail("%s = %s, want none", slot, got)
			}
		default:
			if id := res.Players[ref]; got != id {
				fail("%s = %s, want %s (%s)", slot, got, id, ref)
			}
		}
	}
	checkPick("mvp", want.MVP, got.Session.MVP)
	checkPick("top scorer", want.TopScorer, got.Session.TopScorer)
	checkPick("top goalkeeper", want.TopGoalkeeper, got.Session.TopGoalkeeper)
	checkPick("top playmaker", want.TopPlaymaker, got.Session.TopPlaymaker)

	return errs
}
