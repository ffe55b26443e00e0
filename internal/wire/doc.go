// Package wire defines the command set exchanged between the two devices
// and the codec that maps each command to a flat key-value payload.
//
// The wire format is intentionally schema-less: a payload is a plain
// map of string keys to primitive values (plus nested maps for roster
// and event lists), so either side can add fields without breaking the
// other. Decoding is total - malformed or unknown payloads yield typed
// errors, never panics - and the round-trip law holds for every
// constructible command:
//
//	Decode(Encode(c)) == c
//
// Timestamps cross the wire as unix milliseconds; sub-millisecond
// precision does not survive encoding.
package wire
