// Package harness runs two-device scenarios end to end: a primary and
// a companion reconciler wired over an in-process link, driven by a
// YAML script of recordings, connectivity flips, and session ends.
//
// Scenarios pin down the protocol's observable behavior - final
// scores, per-player counters, leaderboard picks, and the exact
// sequence of commands delivered to each device - with deterministic
// clocks and id generators so runs are byte-for-byte repeatable.
package harness
