package transport

import (
	"sync"

	"github.com/roach88/matchlink/internal/wire"
)

// Link is an in-memory pair of endpoints implementing both delivery
// primitives. Reachability is a single switch for the whole link, like
// a phone and a watch walking out of range of each other.
//
// Guaranteed sends accumulate in a per-sender FIFO backlog while the
// link is down and drain in order when it comes back. The backlog also
// supports explicit redelivery so tests can reproduce the at-least-once
// behavior of the real layer.
type Link struct {
	mu        sync.Mutex
	reachable bool
	primary   *Endpoint
	companion *Endpoint
}

// NewLink creates a connected link between two endpoints.
func NewLink() *Link {
	l := &Link{reachable: true}
	l.primary = &Endpoint{link: l}
	l.companion = &Endpoint{link: l}
	l.primary.peer = l.companion
	l.companion.peer = l.primary
	return l
}

// Primary returns the endpoint the primary device sends from.
func (l *Link) Primary() *Endpoint { return l.primary }

// Companion returns the endpoint the companion device sends from.
func (l *Link) Companion() *Endpoint { return l.companion }

// SetReachable flips the link state. Transitioning to reachable drains
// both backlogs in send order.
func (l *Link) SetReachable(reachable bool) {
	l.mu.Lock()
	l.reachable = reachable
	var drained [][]delivery
	if reachable {
		drained = append(drained, l.primary.takeBacklog(), l.companion.takeBacklog())
	}
	l.mu.Unlock()

	// Deliver outside the lock; handlers may send replies.
	for _, batch := range drained {
		for _, d := range batch {
			d.to.deliver(d.payload)
		}
	}
}

type delivery struct {
	to      *Endpoint
	payload wire.Payload
}

// Endpoint is one side of a Link. It implements Transport for the
// device that owns it; inbound payloads go to the registered handler.
type Endpoint struct {
	link    *Link
	peer    *Endpoint
	mu      sync.Mutex
	handler Handler
	backlog []wire.Payload
}

// OnReceive registers the inbound payload handler.
func (e *Endpoint) OnReceive(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

// SendBestEffort delivers to the peer only while the link is up.
func (e *Endpoint) SendBestEffort(p wire.Payload) error {
	e.link.mu.Lock()
	up := e.link.reachable
	e.link.mu.Unlock()

	if !up {
		return ErrUnreachable
	}
	e.peer.deliver(clonePayload(p))
	return nil
}

// SendGuaranteed delivers immediately when the link is up, otherwise
// appends to this endpoint's backlog for drain on reconnect.
func (e *Endpoint) SendGuaranteed(p wire.Payload) {
	p = clonePayload(p)

	e.link.mu.Lock()
	up := e.link.reachable
	if !up {
		e.mu.Lock()
		e.backlog = append(e.backlog, p)
		e.mu.Unlock()
	}
	e.link.mu.Unlock()

	if up {
		e.peer.deliver(p)
	}
}

// Reachable reports the link state.
func (e *Endpoint) Reachable() bool {
	e.link.mu.Lock()
	defer e.link.mu.Unlock()
	return e.link.reachable
}

// Redeliver hands p to this endpoint's handler as if the guaranteed
// channel delivered it (again). Test hook for at-least-once semantics.
func (e *Endpoint) Redeliver(p wire.Payload) {
	e.deliver(clonePayload(p))
}

func (e *Endpoint) deliver(p wire.Payload) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h(p)
	}
}

// takeBacklog returns queued deliveries addressed to the peer and
// clears the queue. Caller holds the link lock.
func (e *Endpoint) takeBacklog() []delivery {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]delivery, len(e.backlog))
	for i, p := range e.backlog {
		out[i] = delivery{to: e.peer, payload: p}
	}
	e.backlog = nil
	return out
}

// clonePayload shallow-copies a payload, deep-copying the nested maps
// used for roster and event lists. Senders keep mutating their maps;
// the receiver must see a stable snapshot.
func clonePayload(p wire.Payload) wire.Payload {
	out := make(wire.Payload, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case []any:
			list := make([]any, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]any); ok {
					mc := make(map[string]any, len(m))
					for mk, mv := range m {
						mc[mk] = mv
					}
					list[i] = mc
				} else {
					list[i] = item
				}
			}
			out[k] = list
		case map[string]any:
			mc := make(map[string]any, len(val))
			for mk, mv := range val {
				mc[mk] = mv
			}
			out[k] = mc
		default:
			out[k] = v
		}
	}
	return out
}
