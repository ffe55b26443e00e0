// Package engine is the session reconciler: the single-writer actor
// that owns one device's entity store and applies sync commands to it.
//
// All mutations - inbound commands from the transport and locally
// originated ones - execute serialized on the Run loop goroutine.
// That serialization is what makes the id-based dedup checks atomic:
// check-and-insert for an event or roster entry can never interleave
// with another apply on the same device.
//
// Convergence between the two devices comes from idempotent merge, not
// mutual exclusion: every effect is keyed by an entity UUID, duplicate
// deliveries are no-ops, and the Finished transition recomputes every
// derived counter from the full event log.
package engine
