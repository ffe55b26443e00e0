package wire

import (
	"time"

	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/model"
)

// Kind is the command discriminator carried in every payload under the
// "command" key.
type Kind string

const (
	KindStartSession     Kind = "startSession"
	KindNewParticipant   Kind = "newParticipant"
	KindRecordEvent      Kind = "recordEvent"
	KindScoreSync        Kind = "scoreSync"
	KindEndFromCompanion Kind = "endSessionFromCompanion"
	KindEndFromPrimary   Kind = "endSessionFromPrimary"
	KindSessionEndedAck  Kind = "sessionEndedAck"
)

// Payload is the flat transport representation of one command.
type Payload map[string]any

// Command is one discriminated message describing a state change to
// replicate on the peer device.
type Command interface {
	Kind() Kind
	Session() uuid.UUID
}

// Participant is a roster entry as it appears on the wire.
type Participant struct {
	ID     uuid.UUID
	Name   string
	IsHome bool
}

// EventRecord is one event as it appears on the wire.
//
// PlayerID is the event's primary actor: the scorer for goals, the
// goalkeeper for saves. AssistantID is optional and only meaningful for
// goals; uuid.Nil means absent.
type EventRecord struct {
	ID          uuid.UUID
	Kind        model.EventKind
	Timestamp   time.Time
	IsHome      bool
	PlayerID    uuid.UUID
	AssistantID uuid.UUID
}

// StartSession is sent primary -> companion to begin a new session,
// replacing any prior companion-side session.
type StartSession struct {
	SessionID    uuid.UUID
	HomeTeamName string
	AwayTeamName string
	Participants []Participant
}

func (c StartSession) Kind() Kind         { return KindStartSession }
func (c StartSession) Session() uuid.UUID { return c.SessionID }

// NewParticipant is a mid-session roster addition; either direction.
type NewParticipant struct {
	SessionID uuid.UUID
	PlayerID  uuid.UUID
	Name      string
	IsHome    bool
}

func (c NewParticipant) Kind() Kind         { return KindNewParticipant }
func (c NewParticipant) Session() uuid.UUID { return c.SessionID }

// RecordEvent carries one discrete match event.
type RecordEvent struct {
	SessionID uuid.UUID
	Event     EventRecord
}

func (c RecordEvent) Kind() Kind         { return KindRecordEvent }
func (c RecordEvent) Session() uuid.UUID { return c.SessionID }

// ScoreSync is a lightweight, best-effort score refresh sent
// primary -> companion. Never authoritative.
type ScoreSync struct {
	SessionID uuid.UUID
	HomeScore int
	AwayScore int
}

func (c ScoreSync) Kind() Kind         { return KindScoreSync }
func (c ScoreSync) Session() uuid.UUID { return c.SessionID }

// EndFromCompanion carries the companion's full event-log snapshot at
// termination. The primary computes the diff; the sender cannot know
// what the peer is missing.
type EndFromCompanion struct {
	SessionID uuid.UUID
	Events    []EventRecord
}

func (c EndFromCompanion) Kind() Kind         { return KindEndFromCompanion }
func (c EndFromCompanion) Session() uuid.UUID { return c.SessionID }

// EndFromPrimary is the authoritative final snapshot sent to the
// companion.
type EndFromPrimary struct {
	SessionID uuid.UUID
	HomeScore int
	AwayScore int
	Events    []EventRecord
}

func (c EndFromPrimary) Kind() Kind         { return KindEndFromPrimary }
func (c EndFromPrimary) Session() uuid.UUID { return c.SessionID }

// SessionEndedAck tells the companion to mark its session inactive.
type SessionEndedAck struct {
	SessionID uuid.UUID
}

func (c SessionEndedAck) Kind() Kind         { return KindSessionEndedAck }
func (c SessionEndedAck) Session() uuid.UUID { return c.SessionID }
