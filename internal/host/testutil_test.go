package host

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"poolchat/internal/engine"
	"poolchat/internal/session"
	"poolchat/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// echoModel answers with a fixed reply in one increment. If hold is set,
// Next waits for ctx cancellation instead.
type echoModel struct {
	mu       sync.Mutex
	reply    string
	prefix   []types.Message
	done     bool
	hold     bool
	entered  chan struct{}
	prefixes int
}

func (m *echoModel) SetPrefix(_ context.Context, msgs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefix = nil
	for _, s := range msgs {
		msg, err := types.DecodeMessage(s)
		if err != nil {
			return err
		}
		m.prefix = append(m.prefix, msg)
	}
	m.done = false
	m.prefixes++
	return nil
}

func (m *echoModel) Next(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	hold := m.hold
	m.mu.Unlock()
	if hold {
		m.entered <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	var out []string
	for _, msg := range append(m.prefix, types.Message{Role: types.RoleAssistant, Content: m.reply}) {
		s, _ := msg.Encode()
		out = append(out, s)
	}
	return out, nil
}

func (m *echoModel) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

func (m *echoModel) Clear()       {}
func (m *echoModel) Close() error { return nil }

func (m *echoModel) setHold(h bool) {
	m.mu.Lock()
	m.hold = h
	m.mu.Unlock()
}

func (m *echoModel) lastPrefix() []types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefix
}

type staticLoader struct {
	statuses []string
	model    engine.Model
}

func (l staticLoader) Load(ctx context.Context, status *engine.StatusChannel) (engine.Model, error) {
	for _, s := range l.statuses {
		if err := status.Report(ctx, s); err != nil {
			return nil, err
		}
	}
	return l.model, nil
}

// blockingLoader reports one status and then never finishes loading.
type blockingLoader struct{ status string }

func (l blockingLoader) Load(ctx context.Context, status *engine.StatusChannel) (engine.Model, error) {
	if err := status.Report(ctx, l.status); err != nil {
		return nil, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestDriver(t *testing.T, l engine.Loader, probe bool) (*Driver, *session.Session) {
	t.Helper()
	s := session.New(session.Config{Loader: l, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = s.Close() })
	d := New(Config{Session: s, Probe: func() bool { return probe }, Logger: zerolog.Nop()})
	return d, s
}

func collect(ch <-chan types.Update) []types.Update {
	var out []types.Update
	for u := range ch {
		out = append(out, u)
	}
	return out
}

func user(s string) types.Message      { return types.Message{Role: types.RoleUser, Content: s} }
func assistant(s string) types.Message { return types.Message{Role: types.RoleAssistant, Content: s} }
