package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which side of the pair a device plays.
type Role string

const (
	// RolePrimary owns the authoritative event log and final statistics.
	RolePrimary Role = "primary"
	// RoleCompanion may originate events but is never authoritative
	// for history; it holds at most one session at a time.
	RoleCompanion Role = "companion"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePrimary || r == RoleCompanion
}

// SessionStatus is the lifecycle state of a session.
// Transitions are one-directional: NotStarted -> InProgress -> Finished
// or Cancelled. No command revives a terminal session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "notStarted"
	StatusInProgress SessionStatus = "inProgress"
	StatusFinished   SessionStatus = "finished"
	StatusCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// EventKind is the discrete event type recorded during a match.
type EventKind string

const (
	EventGoal       EventKind = "goal"
	EventSave       EventKind = "save"
	EventFoul       EventKind = "foul"
	EventYellowCard EventKind = "yellowCard"
	EventRedCard    EventKind = "redCard"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventGoal, EventSave, EventFoul, EventYellowCard, EventRedCard:
		return true
	}
	return false
}

// CrossesSync reports whether events of this kind are replicated to the
// peer device. Only goals and saves cross the boundary in the current
// protocol; cards and fouls stay local.
func (k EventKind) CrossesSync() bool {
	return k == EventGoal || k == EventSave
}

// Session is one live scoring match tracked jointly by two devices.
//
// HomeScore and AwayScore are derived, never directly authoritative: the
// live path bumps them incrementally, and every Finished transition
// recomputes them from the event log.
type Session struct {
	ID           uuid.UUID
	HomeTeamName string
	AwayTeamName string
	StartTime    time.Time
	Status       SessionStatus
	HomeScore    int
	AwayScore    int

	// Active is meaningful on the companion only: it marks the session
	// whose UI is currently shown. Exactly one session is active per
	// device at a time.
	Active bool

	// Derived leaderboard fields, populated on the Finished transition.
	// uuid.Nil means "not determined" (e.g. no events).
	MVP             uuid.UUID
	TopScorer       uuid.UUID
	TopGoalkeeper   uuid.UUID
	TopPlaymaker    uuid.UUID
	PlayerCount     int
	DurationMinutes int
}

// Player is a roster entry for one session. The ID is minted once and
// propagated unchanged across both devices.
type Player struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Name      string
	IsHome    bool
	Number    *int
}

// Event is one immutable entry in the session's event log.
//
// Role references are by player UUID, resolved against the local roster
// at application time. An unresolved reference is stored as uuid.Nil,
// never treated as fatal.
type Event struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Kind      EventKind
	Timestamp time.Time
	IsHome    bool

	ScorerID     uuid.UUID // goal events
	AssistantID  uuid.UUID // goal events, optional
	GoalkeeperID uuid.UUID // save events
}

// Actor returns the primary participant of the event: the goalkeeper for
// saves, the scorer for everything else.
func (e Event) Actor() uuid.UUID {
	if e.Kind == EventSave {
		return e.GoalkeeperID
	}
	return e.ScorerID
}
