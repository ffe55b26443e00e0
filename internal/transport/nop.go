package transport

import "github.com/roach88/matchlink/internal/wire"

// Nop is a transport with no peer: best-effort sends fail, guaranteed
// sends vanish. Used by offline tooling that only reads or rebuilds the
// local store.
type Nop struct{}

func (Nop) SendBestEffort(wire.Payload) error { return ErrUnreachable }
func (Nop) SendGuaranteed(wire.Payload)       {}
func (Nop) Reachable() bool                   { return false }
