// Package model defines the domain entities shared by both devices:
// sessions, players, events, and per-player match statistics.
//
// Identity rules:
//   - Session, Player, and Event IDs are UUIDs minted once by whichever
//     device creates the entity and propagated verbatim to the peer.
//     They are the join keys for reconciliation; local row identity is
//     never used across the sync boundary.
//   - Scores and per-player counters are derived state. The event log is
//     the only authoritative record; counters can always be rebuilt from
//     it (see engine recompute).
package model
