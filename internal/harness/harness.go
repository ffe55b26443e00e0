package harness

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/matchlink/internal/engine"
	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/store"
	"github.com/roach88/matchlink/internal/testutil"
	"github.com/roach88/matchlink/internal/transport"
	"github.com/roach88/matchlink/internal/wire"
)

// kickoff anchors every scenario clock. Both engines share one
// stepping clock so event timestamps are globally ordered.
var kickoff = time.Date(2025, time.June, 24, 18, 0, 0, 0, time.UTC)

// Id ranges per device. Distinct ranges keep cross-device minting
// collision-free without coordination.
const (
	primaryIDBase   = 0x0100
	companionIDBase = 0x8000
)

// DeviceState is one device's store at the end of a run. Nil means the
// device cleared its data.
type DeviceState struct {
	Session model.Session
	Stats   []model.PlayerStats
	Events  []model.Event
}

// Result is everything observable from one scenario run.
type Result struct {
	SessionID uuid.UUID

	// Players maps roster refs to the ids minted during the run.
	Players map[string]uuid.UUID

	Primary   *DeviceState
	Companion *DeviceState

	// ToPrimary and ToCompanion list the commands actually delivered
	// to each device, in delivery order. Failed best-effort sends and
	// backlogged payloads do not appear until they reach a handler.
	ToPrimary   []string
	ToCompanion []string
}

// Run executes a scenario with deterministic clocks and ids. Device
// databases are created under dir.
func Run(sc *Scenario, dir string) (*Result, error) {
	ctx := context.Background()

	primaryStore, err := store.Open(filepath.Join(dir, "primary.db"))
	if err != nil {
		return nil, fmt.Errorf("open primary store: %w", err)
	}
	defer primaryStore.Close()

	companionStore, err := store.Open(filepath.Join(dir, "companion.db"))
	if err != nil {
		return nil, fmt.Errorf("open companion store: %w", err)
	}
	defer companionStore.Close()

	link := transport.NewLink()
	clock := testutil.NewSteppingClock(kickoff, time.Minute)

	primary := engine.New(model.RolePrimary, primaryStore, link.Primary(),
		engine.WithClock(clock.Now),
		engine.WithIDGenerator(testutil.NewSequentialIDs(primaryIDBase)),
	)
	companion := engine.New(model.RoleCompanion, companionStore, link.Companion(),
		engine.WithClock(clock.Now),
		engine.WithIDGenerator(testutil.NewSequentialIDs(companionIDBase)),
	)

	res := &Result{Players: make(map[string]uuid.UUID)}
	var traceMu sync.Mutex
	link.Primary().OnReceive(func(p wire.Payload) {
		traceMu.Lock()
		res.ToPrimary = append(res.ToPrimary, commandName(p))
		traceMu.Unlock()
		primary.HandlePayload(p)
	})
	link.Companion().OnReceive(func(p wire.Payload) {
		traceMu.Lock()
		res.ToCompanion = append(res.ToCompanion, commandName(p))
		traceMu.Unlock()
		companion.HandlePayload(p)
	})

	primaryDone := make(chan error, 1)
	companionDone := make(chan error, 1)
	go func() { primaryDone <- primary.Run(ctx) }()
	go func() { companionDone <- companion.Run(ctx) }()

	runErr := drive(ctx, sc, primary, companion, link, res)

	primary.Stop()
	companion.Stop()
	<-primaryDone
	<-companionDone
	if runErr != nil {
		return nil, runErr
	}

	if res.Primary, err = snapshot(ctx, primaryStore, res.SessionID); err != nil {
		return nil, fmt.Errorf("primary state: %w", err)
	}
	if res.Companion, err = snapshot(ctx, companionStore, res.SessionID); err != nil {
		return nil, fmt.Errorf("companion state: %w", err)
	}
	return res, nil
}

// drive starts the session and walks the scripted steps.
func drive(ctx context.Context, sc *Scenario, primary, companion *engine.Engine, link *transport.Link, res *Result) error {
	entries := make([]engine.RosterEntry, len(sc.Roster))
	for i, e := range sc.Roster {
		entries[i] = engine.RosterEntry{Name: e.Name, IsHome: e.Home}
	}

	sess, err := primary.StartSession(ctx, sc.HomeTeam, sc.AwayTeam, entries)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	res.SessionID = sess.ID

	// Ids are minted inside the engine; recover the ref mapping from
	// the roster rows by name.
	players, err := primary.Store().ListPlayers(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	byName := make(map[string]uuid.UUID, len(players))
	for _, p := range players {
		byName[p.Name] = p.ID
	}
	for _, e := range sc.Roster {
		id, ok := byName[e.Name]
		if !ok {
			return fmt.Errorf("roster entry %q missing after start", e.Ref)
		}
		res.Players[e.Ref] = id
	}

	if err := settle(ctx, primary, companion); err != nil {
		return err
	}

	for i, st := range sc.Steps {
		if err := step(ctx, st, primary, companion, link, res); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if err := settle(ctx, primary, companion); err != nil {
			return err
		}
	}
	return nil
}

func step(ctx context.Context, st Step, primary, companion *engine.Engine, link *transport.Link, res *Result) error {
	if st.Reachable != nil {
		link.SetReachable(*st.Reachable)
		return nil
	}

	dev := primary
	if st.Device == "companion" {
		dev = companion
	}

	switch {
	case st.Record != nil:
		assistant := uuid.Nil
		if st.Record.Assistant != "" {
			assistant = res.Players[st.Record.Assistant]
		}
		_, err := dev.RecordEvent(ctx, res.SessionID,
			model.EventKind(st.Record.Kind), res.Players[st.Record.Player], assistant)
		return err

	case st.AddPlayer != nil:
		p, err := dev.AddParticipant(ctx, res.SessionID, st.AddPlayer.Name, st.AddPlayer.Home)
		if err != nil {
			return err
		}
		res.Players[st.AddPlayer.Ref] = p.ID
		return nil

	case st.End:
		return dev.EndSession(ctx, res.SessionID)

	default:
		return fmt.Errorf("empty step")
	}
}

// settle waits until both actors have drained everything enqueued so
// far, including the cascades a step can trigger (an event delivered
// to the primary makes it send a score refresh back). Each barrier
// round flushes one hop; the protocol never cascades deeper than the
// round count here.
func settle(ctx context.Context, primary, companion *engine.Engine) error {
	for i := 0; i < 4; i++ {
		if err := primary.Barrier(ctx); err != nil {
			return fmt.Errorf("settle primary: %w", err)
		}
		if err := companion.Barrier(ctx); err != nil {
			return fmt.Errorf("settle companion: %w", err)
		}
	}
	return nil
}

func snapshot(ctx context.Context, s *store.Store, sessionID uuid.UUID) (*DeviceState, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stats, err := s.ListStats(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events, err := s.ListEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &DeviceState{Session: sess, Stats: stats, Events: events}, nil
}

func commandName(p wire.Payload) string {
	if name, ok := p["command"].(string); ok {
		return name
	}
	return "<missing command>"
}
