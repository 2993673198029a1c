package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"poolchat/internal/rpc"
	"poolchat/internal/transport"
	"poolchat/pkg/types"
)

// MaxWorkers caps the pool size. Beyond eight workers the per-step fan-out
// cost outweighs the smaller shards.
const MaxWorkers = 8

// SpawnFunc starts a worker on the worker side of a transport pair. The
// worker must reply to every request with exactly one payload.
type SpawnFunc func(index int, ep *transport.Endpoint, log zerolog.Logger) error

// Config encapsulates Pool construction tunables.
type Config struct {
	// Size is the requested number of workers. Zero or negative means
	// runtime.NumCPU(). The result is capped at MaxWorkers.
	Size int
	// QueueCapacity is the per-direction transport capacity.
	QueueCapacity int
	// Strict makes protocol violations panic instead of returning an error.
	Strict bool
	// Spawn starts each worker. Defaults to the rpc linear-algebra service.
	Spawn  SpawnFunc
	Logger zerolog.Logger
}

// Pool owns the worker handles and their reply registries.
type Pool struct {
	workers []*worker
	strict  bool
	log     zerolog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// worker is the host-side handle of one execution unit.
type worker struct {
	index int
	pool  *Pool
	ep    *transport.Endpoint
	slot  *Registry
	log   zerolog.Logger

	mu       sync.Mutex
	inflight *Call
	fault    error
	calls    uint64
}

func defaultSpawn(_ int, ep *transport.Endpoint, log zerolog.Logger) error {
	_, err := rpc.StartWorker(ep, log)
	return err
}

// CreatePool starts the workers and wires each reply channel to its
// registry. The pool is ready for Dispatch when CreatePool returns.
func CreatePool(cfg Config) (*Pool, error) {
	size := cfg.Size
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if size > MaxWorkers {
		size = MaxWorkers
	}
	spawn := cfg.Spawn
	if spawn == nil {
		spawn = defaultSpawn
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		strict: cfg.Strict,
		log:    cfg.Logger.With().Str("component", "pool").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < size; i++ {
		host, peer := transport.Pair(cfg.QueueCapacity)
		w := &worker{
			index: i,
			pool:  p,
			ep:    host,
			slot:  newRegistry(),
			log:   p.log.With().Int("worker", i).Logger(),
		}
		if err := host.OnReceive(w.onReply); err != nil {
			_ = host.Close()
			p.Close()
			return nil, fmt.Errorf("wire worker %d: %w", i, err)
		}
		if err := spawn(i, peer, cfg.Logger.With().Str("component", "worker").Int("worker", i).Logger()); err != nil {
			_ = host.Close()
			p.Close()
			return nil, fmt.Errorf("spawn worker %d: %w", i, err)
		}
		p.workers = append(p.workers, w)
	}
	workersGauge.Set(float64(size))
	p.log.Info().Int("size", size).Msg("pool created")
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Close shuts down every transport and waits until no reply handler is
// running. Outstanding calls fail with their caller's context or never
// resolve; Close does not wait for them.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		for _, w := range p.workers {
			_ = w.ep.Close()
		}
		for _, w := range p.workers {
			<-w.ep.Done()
		}
		p.log.Info().Msg("pool closed")
	})
}

// Status returns a snapshot of every worker handle.
func (p *Pool) Status() []types.WorkerStatus {
	out := make([]types.WorkerStatus, 0, len(p.workers))
	for _, w := range p.workers {
		w.mu.Lock()
		st := types.WorkerStatus{Index: w.index, Calls: w.calls}
		if w.inflight != nil {
			st.Inflight = true
			st.Draining = w.inflight.abandoned
		}
		w.mu.Unlock()
		out = append(out, st)
	}
	return out
}

// onReply runs on the worker's reply delivery goroutine.
func (w *worker) onReply(payload []byte) {
	w.mu.Lock()
	if w.inflight == nil {
		w.mu.Unlock()
		w.violate("reply received with no outstanding call")
		return
	}
	w.mu.Unlock()
	if err := w.slot.Register(payload); err != nil {
		w.violate(err.Error())
	}
}

// violate records a protocol violation. The worker stays faulted: every later
// dispatch and the call currently waiting fail with the same error.
func (w *worker) violate(reason string) error {
	err := protocolViolationError{worker: w.index, reason: reason}
	violationsTotal.Inc()
	w.log.Error().Err(err).Msg("protocol violation")
	w.mu.Lock()
	if w.fault == nil {
		w.fault = err
	}
	w.mu.Unlock()
	if w.pool.strict {
		panic(err)
	}
	return err
}

func (w *worker) faultErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fault
}

// settle releases the worker from call c.
func (w *worker) settle(c *Call) {
	w.mu.Lock()
	if w.inflight == c {
		w.inflight = nil
	}
	w.mu.Unlock()
	c.settleOnce.Do(func() {
		inflightGauge.Dec()
		close(c.settled)
	})
}
