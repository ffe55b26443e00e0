// Package transport defines the message-delivery contract between the
// two devices and provides an in-memory link implementation used by
// tests and the scenario simulator.
//
// Two primitives exist, matching the store-and-forward layer the
// devices really ride on:
//
//   - best-effort immediate: delivered only while both peers are
//     connected; the caller learns about failure, nothing is queued.
//   - guaranteed eventual: enqueued durably, delivered at-least-once
//     in per-sender order, possibly much later (including after the
//     receiving process restarted). No delivery confirmation.
//
// A payload sent via both primitives reaches the receiver twice; the
// reconciler's id-based dedup is what makes that harmless.
package transport

import (
	"errors"

	"github.com/roach88/matchlink/internal/wire"
)

// ErrUnreachable is returned by SendBestEffort when the peer is not
// currently connected.
var ErrUnreachable = errors.New("peer unreachable")

// Handler receives one inbound payload. Invoked once per delivered
// payload per primitive, possibly from a background goroutine; the
// handler must marshal onto its own serialization context before
// touching state.
type Handler func(p wire.Payload)

// Transport is the sender-side delivery contract consumed by the sync
// engine.
type Transport interface {
	// SendBestEffort delivers p only if the peer is reachable right
	// now. Returns ErrUnreachable otherwise; no queuing.
	SendBestEffort(p wire.Payload) error

	// SendGuaranteed enqueues p for eventual at-least-once delivery in
	// send order. Fire-and-forget.
	SendGuaranteed(p wire.Payload)

	// Reachable is an advisory liveness signal.
	Reachable() bool
}
