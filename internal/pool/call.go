package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"poolchat/internal/rpc"
)

// Call is a request issued to one worker whose reply has not been consumed.
type Call struct {
	w     *worker
	kind  rpc.Kind
	start time.Time

	consumed   atomic.Bool
	abandoned  bool // guarded by w.mu
	settled    chan struct{}
	settleOnce sync.Once
}

// Worker returns the index of the worker the call was sent to.
func (c *Call) Worker() int { return c.w.index }

// Dispatch sends req to worker i and returns the pending call. It fails with
// a protocol violation if worker i already has a call that nobody has
// consumed. If the previous call was abandoned, Dispatch first waits for its
// reply to drain.
func (p *Pool) Dispatch(ctx context.Context, i int, req rpc.Request) (*Call, error) {
	if p.ctx.Err() != nil {
		return nil, ErrPoolClosed
	}
	if i < 0 || i >= len(p.workers) {
		return nil, fmt.Errorf("worker index %d out of range [0,%d)", i, len(p.workers))
	}
	w := p.workers[i]
	for {
		w.mu.Lock()
		if w.fault != nil {
			err := w.fault
			w.mu.Unlock()
			return nil, err
		}
		prev := w.inflight
		if prev == nil {
			break
		}
		if !prev.abandoned {
			w.mu.Unlock()
			return nil, w.violate("dispatch while a call is outstanding")
		}
		w.mu.Unlock()
		select {
		case <-prev.settled:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, ErrPoolClosed
		}
	}
	c := &Call{w: w, kind: req.Kind, start: time.Now(), settled: make(chan struct{})}
	w.inflight = c
	w.calls++
	w.mu.Unlock()
	inflightGauge.Inc()

	payload, err := rpc.EncodeRequest(req)
	if err != nil {
		w.settle(c)
		return nil, err
	}
	if err := w.ep.Send(payload); err != nil {
		w.settle(c)
		dispatchTotal.WithLabelValues("send_error").Inc()
		return nil, fmt.Errorf("send to worker %d: %w", i, err)
	}
	return c, nil
}

// Await waits for the reply and decodes it. A call can be awaited once. If
// ctx ends first the call is abandoned: the worker stays reserved until its
// reply arrives and is discarded.
func (c *Call) Await(ctx context.Context) (rpc.Response, error) {
	if !c.consumed.CompareAndSwap(false, true) {
		return rpc.Response{}, errAlreadyAwaited
	}
	w := c.w
	payload, err := w.slot.Take(ctx)
	if err != nil {
		c.abandon()
		dispatchTotal.WithLabelValues("abandoned").Inc()
		return rpc.Response{}, err
	}
	w.settle(c)
	dispatchDuration.WithLabelValues(c.kind.String()).Observe(time.Since(c.start).Seconds())
	if err := w.faultErr(); err != nil {
		dispatchTotal.WithLabelValues("violation").Inc()
		return rpc.Response{}, err
	}
	resp, err := rpc.DecodeResponse(payload)
	if err != nil {
		dispatchTotal.WithLabelValues("decode_error").Inc()
		return rpc.Response{}, decodeError{worker: w.index, err: err}
	}
	if err := resp.Err(); err != nil {
		dispatchTotal.WithLabelValues("remote_error").Inc()
		return rpc.Response{}, fmt.Errorf("worker %d: %w", w.index, err)
	}
	dispatchTotal.WithLabelValues("ok").Inc()
	return resp, nil
}

// Abandon gives up on a call that will not be awaited. Its reply is drained
// in the background.
func (c *Call) Abandon() {
	if !c.consumed.CompareAndSwap(false, true) {
		return
	}
	c.abandon()
	dispatchTotal.WithLabelValues("abandoned").Inc()
}

func (c *Call) abandon() {
	w := c.w
	w.mu.Lock()
	c.abandoned = true
	w.mu.Unlock()
	w.log.Debug().Str("kind", c.kind.String()).Msg("call abandoned, draining reply")
	go func() {
		if _, err := w.slot.Take(w.pool.ctx); err == nil {
			w.settle(c)
		}
	}()
}
