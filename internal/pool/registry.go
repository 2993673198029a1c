package pool

import (
	"context"
	"errors"
	"sync"
)

// errSlotFull is returned by Registry.Register when the previous reply has
// not been taken yet.
var errSlotFull = errors.New("previous reply not consumed")

// Registry is a single-slot buffer holding a worker's most recent reply until
// the call waiting for it takes it. Registering into a full slot is refused.
type Registry struct {
	mu      sync.Mutex
	full    bool
	payload []byte
	ready   chan struct{}
}

func newRegistry() *Registry {
	return &Registry{ready: make(chan struct{}, 1)}
}

// Register stores payload. It fails if the slot already holds an unconsumed
// reply; the stored reply is left untouched.
func (r *Registry) Register(payload []byte) error {
	r.mu.Lock()
	if r.full {
		r.mu.Unlock()
		return errSlotFull
	}
	r.full = true
	r.payload = payload
	r.mu.Unlock()
	select {
	case r.ready <- struct{}{}:
	default:
	}
	return nil
}

// Take waits for a reply and empties the slot.
func (r *Registry) Take(ctx context.Context) ([]byte, error) {
	for {
		if b, ok := r.tryTake(); ok {
			return b, nil
		}
		select {
		case <-r.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Registry) tryTake() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return nil, false
	}
	b := r.payload
	r.full = false
	r.payload = nil
	return b, true
}
