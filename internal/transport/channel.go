// Package transport provides the point-to-point link between two execution
// contexts. Each direction is a bounded single-producer single-consumer
// queue; payloads are delivered to a single registered handler on the
// receiving side's own goroutine, in the order they were sent.
package transport

import (
	"errors"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// DefaultCapacity is the per-direction queue capacity used by Pair when the
// caller passes a non-positive value.
const DefaultCapacity = 64

// MinCapacity is the smallest ring the SPSC queue supports. Smaller positive
// capacities are raised to it.
const MinCapacity = 2

var (
	// ErrClosed is returned by Send after either endpoint has been closed.
	ErrClosed = errors.New("transport: channel closed")
	// ErrHandlerSet is returned when OnReceive is called a second time.
	ErrHandlerSet = errors.New("transport: receive handler already registered")
)

// Handler is invoked once per delivered payload.
type Handler func(payload []byte)

// link is one direction of a pair.
type link struct {
	q    queue
	wake chan struct{}
}

func (l *link) init(capacity int) {
	l.q.init(capacity)
	l.wake = make(chan struct{}, 1)
}

// pair holds both endpoints and both directions in one allocation.
type pair struct {
	a, b     Endpoint
	ab, ba   link
	closed   atomix.Uint32
	stop     chan struct{}
	stopOnce sync.Once
}

// Endpoint is one side of a bidirectional channel.
type Endpoint struct {
	id     uint32
	p      *pair
	out    *link
	in     *link
	sendMu sync.Mutex

	once    sync.Once
	handler Handler
	done    chan struct{}
}

// counter assigns monotonically increasing pair identifiers.
var counter atomix.Uint32

// Pair creates two connected endpoints. Payloads sent on one are delivered to
// the handler registered on the other. A non-positive capacity means
// DefaultCapacity; capacities below MinCapacity are raised to it.
func Pair(capacity int) (*Endpoint, *Endpoint) {
	switch {
	case capacity <= 0:
		capacity = DefaultCapacity
	case capacity < MinCapacity:
		capacity = MinCapacity
	}
	id := counter.Add(1)
	p := &pair{stop: make(chan struct{})}
	p.ab.init(capacity)
	p.ba.init(capacity)
	p.a = Endpoint{id: id, p: p, out: &p.ab, in: &p.ba, done: make(chan struct{})}
	p.b = Endpoint{id: id, p: p, out: &p.ba, in: &p.ab, done: make(chan struct{})}
	return &p.a, &p.b
}

// ID returns the identifier shared by both endpoints of the pair.
func (e *Endpoint) ID() uint32 { return e.id }

// Send enqueues payload for the peer and returns without waiting for
// delivery. It only blocks, with adaptive backoff, while the bounded queue is
// full.
func (e *Endpoint) Send(payload []byte) error {
	if e.p.closed.Load() != 0 {
		return ErrClosed
	}
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	var bo iox.Backoff
	for {
		err := e.out.q.enqueue(&payload)
		if err == nil {
			break
		}
		if !errors.Is(err, iox.ErrWouldBlock) {
			return err
		}
		if e.p.closed.Load() != 0 {
			return ErrClosed
		}
		bo.Wait()
	}
	select {
	case e.out.wake <- struct{}{}:
	default:
	}
	return nil
}

// OnReceive registers the handler for inbound payloads and starts delivery.
// Only one handler may be registered per endpoint.
func (e *Endpoint) OnReceive(h Handler) error {
	if h == nil {
		return errors.New("transport: nil handler")
	}
	started := false
	e.once.Do(func() {
		e.handler = h
		started = true
		go e.pump()
	})
	if !started {
		return ErrHandlerSet
	}
	return nil
}

// pump delivers queued payloads to the handler until the pair is closed.
func (e *Endpoint) pump() {
	defer close(e.done)
	for {
		for {
			payload, err := e.in.q.dequeue()
			if err != nil {
				break
			}
			e.handler(payload)
		}
		select {
		case <-e.in.wake:
		case <-e.p.stop:
			return
		}
	}
}

// Close shuts down both directions of the pair. Payloads still queued are
// dropped. Close is safe to call from either side and more than once.
func (e *Endpoint) Close() error {
	e.p.closed.Add(1)
	e.p.stopOnce.Do(func() { close(e.p.stop) })
	return nil
}

// Done is closed once this endpoint's delivery goroutine has exited. It never
// closes if OnReceive was not called.
func (e *Endpoint) Done() <-chan struct{} { return e.done }
