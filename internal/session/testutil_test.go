package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"poolchat/internal/engine"
	"poolchat/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// fakeModel returns the scripted increments in order; the last one is
// finished.
type fakeModel struct {
	mu       sync.Mutex
	script   [][]types.Message
	pos      int
	prefixes [][]string
	clears   int
	closed   bool
	nextErr  error
	// block makes Next wait for ctx cancellation; entered is signaled first.
	block   bool
	entered chan struct{}
}

func (m *fakeModel) SetPrefix(_ context.Context, msgs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes = append(m.prefixes, msgs)
	m.pos = 0
	return nil
}

func (m *fakeModel) Next(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	block, entered := m.block, m.entered
	m.mu.Unlock()
	if block {
		if entered != nil {
			entered <- struct{}{}
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextErr != nil {
		return nil, m.nextErr
	}
	inc := m.script[m.pos]
	m.pos++
	out := make([]string, len(inc))
	for i, msg := range inc {
		s, err := msg.Encode()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (m *fakeModel) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos >= len(m.script)
}

func (m *fakeModel) Clear() {
	m.mu.Lock()
	m.clears++
	m.mu.Unlock()
}

func (m *fakeModel) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *fakeModel) setBlock(b bool) {
	m.mu.Lock()
	m.block = b
	m.mu.Unlock()
}

// fakeLoader reports statuses, then returns model or err.
type fakeLoader struct {
	statuses []string
	model    engine.Model
	err      error
	loads    atomic.Int32
}

func (l *fakeLoader) Load(ctx context.Context, status *engine.StatusChannel) (engine.Model, error) {
	l.loads.Add(1)
	for _, s := range l.statuses {
		if err := status.Report(ctx, s); err != nil {
			return nil, err
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.model, nil
}

func newTestSession(l engine.Loader, pub EventPublisher) *Session {
	return New(Config{Loader: l, Publisher: pub, Logger: zerolog.Nop()})
}

// recorder collects emitted updates.
type recorder struct {
	mu      sync.Mutex
	updates []types.Update
}

func (r *recorder) emit(u types.Update) error {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
	return nil
}

func (r *recorder) all() []types.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Update(nil), r.updates...)
}

func user(s string) types.Message      { return types.Message{Role: types.RoleUser, Content: s} }
func assistant(s string) types.Message { return types.Message{Role: types.RoleAssistant, Content: s} }
func system(s string) types.Message    { return types.Message{Role: types.RoleSystem, Content: s} }
