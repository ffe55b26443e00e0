package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/matchlink/internal/model"
	"github.com/roach88/matchlink/internal/store"
	"github.com/roach88/matchlink/internal/transport"
	"github.com/roach88/matchlink/internal/wire"
)

// Engine is the single-writer reconciler for one device.
//
// Thread-safety model:
//   - HandlePayload(): safe from any goroutine (transport callbacks)
//   - Run(): must be called from exactly one goroutine
//   - local mutation methods (StartSession, RecordEvent, ...): safe
//     from any goroutine; they enqueue onto the Run loop and wait
//
// ERROR HANDLING: inbound command failures are logged with full context
// and processing continues - drop-and-log applies to every fault class
// at this boundary (malformed payloads, unknown sessions, store
// errors). Nothing propagates to the transport.
type Engine struct {
	role      model.Role
	store     *store.Store
	transport transport.Transport
	queue     *taskQueue
	ids       IDGenerator
	notifier  Notifier
	now       func() time.Time
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithIDGenerator overrides id minting (tests use FixedIDs).
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithNotifier overrides the session-start notification hook.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the wall clock (tests use a stepping clock).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine for the given role over its local store and
// transport. The engine registers nothing itself: wire inbound delivery
// by passing Engine.HandlePayload to the transport's receive hook.
func New(role model.Role, s *store.Store, t transport.Transport, opts ...Option) *Engine {
	e := &Engine{
		role:      role,
		store:     s,
		transport: t,
		queue:     newTaskQueue(),
		ids:       RandomIDs{},
		notifier:  LogNotifier{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Role returns the device role this engine reconciles for.
func (e *Engine) Role() model.Role { return e.role }

// Store exposes the engine's entity store for read-only inspection.
func (e *Engine) Store() *store.Store { return e.store }

// HandlePayload enqueues an inbound transport payload for processing by
// the Run loop. Safe from any goroutine; this is the marshaling step
// that keeps delivery callbacks off the actor's state.
//
// Returns false if the engine has been stopped.
func (e *Engine) HandlePayload(p wire.Payload) bool {
	return e.queue.Enqueue(task{payload: p})
}

// Run starts the single-writer loop. Blocks until the context is
// cancelled or Stop is called.
//
// Must be called from exactly one goroutine. All command application
// and store writes happen here.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("reconciler starting", "role", e.role)

	for {
		t, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("reconciler stopping: context cancelled", "role", e.role)
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// Signal received, or queue closed (channel closed fires
			// immediately). Loop back to TryDequeue.
			if e.queue.Len() == 0 {
				slog.Info("reconciler stopping: queue closed", "role", e.role)
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine; Run returns after draining.
func (e *Engine) Stop() {
	e.queue.Close()
}

// QueueLen returns the number of pending tasks. Monitoring/tests.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Barrier enqueues a no-op task and waits for it. Because the loop is
// FIFO, returning means every task enqueued before the call has been
// fully processed. Simulation and tests use this to settle the actor
// between steps.
func (e *Engine) Barrier(ctx context.Context) error {
	return e.do(ctx, func(context.Context) error { return nil })
}

func (e *Engine) process(ctx context.Context, t task) {
	var err error
	switch {
	case t.payload != nil:
		err = e.dispatch(ctx, t.payload)
	case t.local != nil:
		err = t.local(ctx)
	}

	if t.done != nil {
		t.done <- err
	} else if err != nil {
		slog.Error("task failed", "role", e.role, "error", err)
	}
}

// do runs fn on the actor goroutine and waits for its result. This is
// how local mutations share the serialization that makes dedup checks
// race-free.
func (e *Engine) do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	if !e.queue.Enqueue(task{local: fn, done: done}) {
		return errors.New("engine stopped")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch decodes and routes one inbound payload.
//
// Routing is pure: effects and their idempotence live in the apply
// methods. Unknown commands, wrong-direction commands, and unknown
// sessions are all dropped with a warning - the correct behavior for
// messages that race session teardown, and the mechanism that keeps
// the protocol forward compatible.
func (e *Engine) dispatch(ctx context.Context, p wire.Payload) error {
	cmd, err := wire.Decode(p)
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrUnknownCommand):
			slog.Warn("dropping unknown command", "role", e.role, "error", err)
		case errors.Is(err, wire.ErrMalformedPayload):
			slog.Warn("dropping malformed payload", "role", e.role, "error", err)
		default:
			slog.Warn("dropping undecodable payload", "role", e.role, "error", err)
		}
		return nil
	}

	slog.Debug("dispatching command",
		"role", e.role,
		"command", cmd.Kind(),
		"session_id", cmd.Session(),
	)

	switch c := cmd.(type) {
	case wire.StartSession:
		if e.role != model.RoleCompanion {
			return e.dropWrongDirection(c)
		}
		return e.applyStart(ctx, c)

	case wire.NewParticipant:
		return e.applyNewParticipant(ctx, c)

	case wire.RecordEvent:
		return e.applyRecordEvent(ctx, c.Session(), c.Event)

	case wire.ScoreSync:
		if e.role != model.RoleCompanion {
			return e.dropWrongDirection(c)
		}
		return e.applyScoreSync(ctx, c)

	case wire.EndFromCompanion:
		if e.role != model.RolePrimary {
			return e.dropWrongDirection(c)
		}
		return e.applyEndFromCompanion(ctx, c)

	case wire.EndFromPrimary:
		if e.role != model.RoleCompanion {
			return e.dropWrongDirection(c)
		}
		return e.applyEndFromPrimary(ctx, c)

	case wire.SessionEndedAck:
		if e.role != model.RoleCompanion {
			return e.dropWrongDirection(c)
		}
		return e.applySessionEndedAck(ctx, c)

	default:
		slog.Warn("dropping unrouted command", "role", e.role, "command", cmd.Kind())
		return nil
	}
}

func (e *Engine) dropWrongDirection(c wire.Command) error {
	slog.Warn("dropping command sent to wrong role",
		"role", e.role,
		"command", c.Kind(),
		"session_id", c.Session(),
	)
	return nil
}

// lookupSession resolves a command's session, distinguishing "unknown
// here, drop quietly" from real store failures.
func (e *Engine) lookupSession(ctx context.Context, cmd wire.Command) (model.Session, bool, error) {
	sess, err := e.store.GetSession(ctx, cmd.Session())
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("dropping command for unknown session",
			"role", e.role,
			"command", cmd.Kind(),
			"session_id", cmd.Session(),
		)
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, fmt.Errorf("lookup session: %w", err)
	}
	return sess, true, nil
}
