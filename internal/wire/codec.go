package wire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/matchlink/internal/model"
)

// ErrMalformedPayload marks decode failures caused by missing or
// mistyped required fields. Callers drop the message and log; decoding
// never panics.
var ErrMalformedPayload = errors.New("malformed payload")

// ErrUnknownCommand marks payloads whose "command" discriminator is not
// recognised. Distinguished from ErrMalformedPayload so dispatch can
// drop unknown kinds quietly for forward compatibility.
var ErrUnknownCommand = errors.New("unknown command")

// Encode converts a command to its flat payload representation.
// The inverse of Decode.
func Encode(c Command) Payload {
	p := Payload{
		"command":   string(c.Kind()),
		"sessionId": c.Session().String(),
	}

	switch cmd := c.(type) {
	case StartSession:
		p["homeTeamName"] = cmd.HomeTeamName
		p["awayTeamName"] = cmd.AwayTeamName
		participants := make([]any, len(cmd.Participants))
		for i, pl := range cmd.Participants {
			participants[i] = map[string]any{
				"playerId": pl.ID.String(),
				"name":     pl.Name,
				"isHome":   pl.IsHome,
			}
		}
		p["participants"] = participants

	case NewParticipant:
		p["playerId"] = cmd.PlayerID.String()
		p["name"] = cmd.Name
		p["isHome"] = cmd.IsHome

	case RecordEvent:
		for k, v := range encodeEvent(cmd.Event) {
			p[k] = v
		}

	case ScoreSync:
		p["homeScore"] = int64(cmd.HomeScore)
		p["awayScore"] = int64(cmd.AwayScore)

	case EndFromCompanion:
		p["events"] = encodeEvents(cmd.Events)

	case EndFromPrimary:
		p["homeScore"] = int64(cmd.HomeScore)
		p["awayScore"] = int64(cmd.AwayScore)
		p["events"] = encodeEvents(cmd.Events)

	case SessionEndedAck:
		// Discriminator and session id only.
	}

	return p
}

func encodeEvents(events []EventRecord) []any {
	out := make([]any, len(events))
	for i, ev := range events {
		out[i] = encodeEvent(ev)
	}
	return out
}

func encodeEvent(ev EventRecord) map[string]any {
	m := map[string]any{
		"eventId":   ev.ID.String(),
		"eventKind": string(ev.Kind),
		"timestamp": ev.Timestamp.UnixMilli(),
		"isHome":    ev.IsHome,
		"playerId":  ev.PlayerID.String(),
	}
	if ev.Kind == model.EventSave {
		// Saves historically carried the actor under a dedicated key;
		// both keys are written so either reader works.
		m["goalkeeperId"] = ev.PlayerID.String()
	}
	if ev.AssistantID != uuid.Nil {
		m["assistantId"] = ev.AssistantID.String()
	}
	return m
}

// Decode converts a payload back into a typed command.
//
// Decode is total: any structural problem yields an error wrapping
// ErrMalformedPayload, and an unrecognised discriminator yields
// ErrUnknownCommand. Free-text names are NFC-normalised so that roster
// strings entered by voice on either device compare equal.
func Decode(p Payload) (Command, error) {
	kind, err := stringField(p, "command")
	if err != nil {
		return nil, err
	}

	sessionID, err := uuidField(p, "sessionId")
	if err != nil {
		return nil, err
	}

	switch Kind(kind) {
	case KindStartSession:
		return decodeStartSession(p, sessionID)
	case KindNewParticipant:
		return decodeNewParticipant(p, sessionID)
	case KindRecordEvent:
		ev, err := decodeEvent(p)
		if err != nil {
			return nil, err
		}
		return RecordEvent{SessionID: sessionID, Event: ev}, nil
	case KindScoreSync:
		home, away, err := scoreFields(p)
		if err != nil {
			return nil, err
		}
		return ScoreSync{SessionID: sessionID, HomeScore: home, AwayScore: away}, nil
	case KindEndFromCompanion:
		events, err := eventListField(p)
		if err != nil {
			return nil, err
		}
		return EndFromCompanion{SessionID: sessionID, Events: events}, nil
	case KindEndFromPrimary:
		home, away, err := scoreFields(p)
		if err != nil {
			return nil, err
		}
		events, err := eventListField(p)
		if err != nil {
			return nil, err
		}
		return EndFromPrimary{SessionID: sessionID, HomeScore: home, AwayScore: away, Events: events}, nil
	case KindSessionEndedAck:
		return SessionEndedAck{SessionID: sessionID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, kind)
	}
}

func decodeStartSession(p Payload, sessionID uuid.UUID) (Command, error) {
	home, err := stringField(p, "homeTeamName")
	if err != nil {
		return nil, err
	}
	away, err := stringField(p, "awayTeamName")
	if err != nil {
		return nil, err
	}

	raw, ok := p["participants"]
	if !ok {
		return nil, fmt.Errorf("%w: missing key %q", ErrMalformedPayload, "participants")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: key %q is not a list", ErrMalformedPayload, "participants")
	}

	participants := make([]Participant, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: participant %d is not a map", ErrMalformedPayload, i)
		}
		pl, err := decodeParticipant(Payload(entry))
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}
		participants = append(participants, pl)
	}

	return StartSession{
		SessionID:    sessionID,
		HomeTeamName: norm.NFC.String(home),
		AwayTeamName: norm.NFC.String(away),
		Participants: participants,
	}, nil
}

func decodeParticipant(p Payload) (Participant, error) {
	id, err := uuidField(p, "playerId")
	if err != nil {
		return Participant{}, err
	}
	name, err := stringField(p, "name")
	if err != nil {
		return Participant{}, err
	}
	isHome, err := boolField(p, "isHome")
	if err != nil {
		return Participant{}, err
	}
	return Participant{ID: id, Name: norm.NFC.String(name), IsHome: isHome}, nil
}

func decodeNewParticipant(p Payload, sessionID uuid.UUID) (Command, error) {
	pl, err := decodeParticipant(p)
	if err != nil {
		return nil, err
	}
	return NewParticipant{
		SessionID: sessionID,
		PlayerID:  pl.ID,
		Name:      pl.Name,
		IsHome:    pl.IsHome,
	}, nil
}

func decodeEvent(p Payload) (EventRecord, error) {
	id, err := uuidField(p, "eventId")
	if err != nil {
		return EventRecord{}, err
	}
	kindStr, err := stringField(p, "eventKind")
	if err != nil {
		return EventRecord{}, err
	}
	kind := model.EventKind(kindStr)
	if !kind.Valid() {
		return EventRecord{}, fmt.Errorf("%w: unknown event kind %q", ErrMalformedPayload, kindStr)
	}
	ts, err := timeField(p, "timestamp")
	if err != nil {
		return EventRecord{}, err
	}
	isHome, err := boolField(p, "isHome")
	if err != nil {
		return EventRecord{}, err
	}

	// Saves prefer the dedicated goalkeeper key; playerId is the
	// fallback written by older senders.
	var playerID uuid.UUID
	if kind == model.EventSave {
		playerID, err = uuidField(p, "goalkeeperId")
		if err != nil {
			playerID, err = uuidField(p, "playerId")
		}
	} else {
		playerID, err = uuidField(p, "playerId")
	}
	if err != nil {
		return EventRecord{}, err
	}

	assistantID, err := optionalUUIDField(p, "assistantId")
	if err != nil {
		return EventRecord{}, err
	}

	return EventRecord{
		ID:          id,
		Kind:        kind,
		Timestamp:   ts,
		IsHome:      isHome,
		PlayerID:    playerID,
		AssistantID: assistantID,
	}, nil
}

func eventListField(p Payload) ([]EventRecord, error) {
	raw, ok := p["events"]
	if !ok {
		return nil, fmt.Errorf("%w: missing key %q", ErrMalformedPayload, "events")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: key %q is not a list", ErrMalformedPayload, "events")
	}

	events := make([]EventRecord, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: event %d is not a map", ErrMalformedPayload, i)
		}
		ev, err := decodeEvent(Payload(entry))
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func scoreFields(p Payload) (home, away int, err error) {
	home, err = intField(p, "homeScore")
	if err != nil {
		return 0, 0, err
	}
	away, err = intField(p, "awayScore")
	if err != nil {
		return 0, 0, err
	}
	return home, away, nil
}
