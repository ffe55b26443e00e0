// Package store is the durable entity store for one device.
//
// Each device owns exactly one store; all writes go through the single
// reconciler goroutine, so the store is tuned for a single writer.
// SQLite provides the crash safety the sync protocol assumes: an insert
// either commits or it doesn't, and id-keyed inserts are idempotent via
// ON CONFLICT DO NOTHING, which is what makes redelivered commands
// harmless.
package store
