package model

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScoreBaseline(t *testing.T) {
	assert.Equal(t, 4.0, PlayerStats{}.Score(), "no contributions scores the base")
}

func TestScoreFirstContributionBonuses(t *testing.T) {
	assert.InDelta(t, 6.4, PlayerStats{Goals: 1}.Score(), 1e-12)
	assert.InDelta(t, 5.5, PlayerStats{Assists: 1}.Score(), 1e-12)
	assert.InDelta(t, 5.3, PlayerStats{Saves: 1}.Score(), 1e-12)
}

func TestScoreDiminishingReturns(t *testing.T) {
	// Each extra contribution is worth less than the previous one but
	// always worth something.
	prev := PlayerStats{Goals: 1}.Score()
	prevGain := math.Inf(1)
	for g := 2; g <= 6; g++ {
		cur := PlayerStats{Goals: g}.Score()
		gain := cur - prev
		assert.Greater(t, gain, 0.0, "goal %d must still add value", g)
		assert.Less(t, gain, prevGain, "goal %d must add less than goal %d", g, g-1)
		prev, prevGain = cur, gain
	}
}

func TestScoreExactExtraGoalFormula(t *testing.T) {
	// 4.0 base + 2.4 first goal + 1.9*(1-e^(-0.95*(g-1))) for the rest.
	got := PlayerStats{Goals: 3}.Score()
	want := 4.0 + 2.4 + 1.9*(1-math.Exp(-0.95*2))
	assert.InDelta(t, want, got, 1e-12)
}

func TestScoreCapsAtTen(t *testing.T) {
	s := PlayerStats{Goals: 50, Assists: 50, Saves: 50}
	assert.Equal(t, 10.0, s.Score())
}

func TestMVPWeight(t *testing.T) {
	s := PlayerStats{Goals: 2, Assists: 3, Saves: 4}
	assert.Equal(t, 2*3+3*2+4, s.MVPWeight())
	assert.Equal(t, 0, PlayerStats{}.MVPWeight())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RolePrimary.Valid())
	assert.True(t, RoleCompanion.Valid())
	assert.False(t, Role("watch").Valid())
	assert.False(t, Role("").Valid())
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, StatusNotStarted.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusFinished.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestEventKindCrossesSync(t *testing.T) {
	assert.True(t, EventGoal.CrossesSync())
	assert.True(t, EventSave.CrossesSync())
	assert.False(t, EventFoul.CrossesSync())
	assert.False(t, EventYellowCard.CrossesSync())
	assert.False(t, EventRedCard.CrossesSync())
}

func TestEventKindValid(t *testing.T) {
	for _, k := range []EventKind{EventGoal, EventSave, EventFoul, EventYellowCard, EventRedCard} {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, EventKind("throwIn").Valid())
}

func TestEventActor(t *testing.T) {
	scorer := uuid.New()
	keeper := uuid.New()

	goal := Event{Kind: EventGoal, ScorerID: scorer, GoalkeeperID: keeper}
	assert.Equal(t, scorer, goal.Actor())

	save := Event{Kind: EventSave, ScorerID: scorer, GoalkeeperID: keeper}
	assert.Equal(t, keeper, save.Actor())
}
