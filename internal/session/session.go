package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"poolchat/internal/engine"
	"poolchat/internal/pool"
	"poolchat/pkg/types"
)

// DefaultSystemPrompt is prepended to every conversation unless configured
// otherwise.
const DefaultSystemPrompt = "You are a helpful chat assistant."

// Emit receives every update of a submission. Returning an error aborts it.
type Emit func(types.Update) error

// Config encapsulates Session construction parameters.
type Config struct {
	Loader       engine.Loader
	SystemPrompt string
	Publisher    EventPublisher
	Logger       zerolog.Logger
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	State     State
	Loaded    bool
	Busy      bool
	LastError string
	Workers   []types.WorkerStatus
}

// Session owns the model and the conversation lifecycle. At most one
// submission runs at a time.
type Session struct {
	loader engine.Loader
	pub    EventPublisher
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	systemPrompt string
	loading      *engine.Loading
	model        engine.Model
	loadErr      error
	lastErr      string
	active       *submission
	closed       bool
}

type submission struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// emitError marks a failure of the caller's Emit. No terminal message is
// sent for it.
type emitError struct{ err error }

func (e emitError) Error() string { return "emit update: " + e.err.Error() }

func (e emitError) Unwrap() error { return e.err }

// New returns an idle session. Nothing is loaded until the first Submit.
func New(cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		loader:       cfg.Loader,
		pub:          cfg.Publisher,
		log:          cfg.Logger.With().Str("component", "session").Logger(),
		ctx:          ctx,
		cancel:       cancel,
		systemPrompt: cfg.SystemPrompt,
	}
	if s.pub == nil {
		s.pub = noopPublisher{}
	}
	if s.systemPrompt == "" {
		s.systemPrompt = DefaultSystemPrompt
	}
	return s
}

// SetSystemPrompt changes the preamble used by later submissions.
func (s *Session) SetSystemPrompt(p string) {
	if p == "" {
		p = DefaultSystemPrompt
	}
	s.mu.Lock()
	s.systemPrompt = p
	s.mu.Unlock()
}

// Submit runs one conversation turn and calls emit for every update: load
// progress while the model loads, then one update per generation step, the
// last one with IsFinished set. An empty conversation resets the session.
//
// Failures other than cancellation and emit errors are reported to emit as
// a final Assistant message before being returned.
func (s *Session) Submit(ctx context.Context, msgs []types.Message, emit Emit) error {
	if len(msgs) == 0 {
		u, err := s.Reset(ctx)
		if err != nil {
			return err
		}
		return emit(u)
	}
	sub, ctx, err := s.begin(ctx)
	if err != nil {
		if IsBusy(err) {
			submissionsTotal.WithLabelValues("busy").Inc()
		}
		return err
	}
	defer s.end(sub)
	log := s.log.With().Str("submission", sub.id).Logger()

	model, err := s.ensureModel(ctx, sub, msgs, emit)
	if err == nil {
		err = s.generate(ctx, sub, model, msgs, emit)
	}
	if err != nil {
		return s.fail(ctx, log, sub, msgs, emit, err)
	}
	submissionsTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Session) begin(parent context.Context) (*submission, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrClosed
	}
	if s.active != nil {
		return nil, nil, busyError{}
	}
	ctx, cancel := context.WithCancel(parent)
	sub := &submission{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	s.active = sub
	return sub, ctx, nil
}

func (s *Session) end(sub *submission) {
	s.mu.Lock()
	if s.active == sub {
		s.active = nil
	}
	s.mu.Unlock()
	sub.cancel()
	close(sub.done)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) ensureModel(ctx context.Context, sub *submission, msgs []types.Message, emit Emit) (engine.Model, error) {
	s.mu.Lock()
	if s.model != nil {
		m := s.model
		s.mu.Unlock()
		return m, nil
	}
	if s.loadErr != nil {
		err := s.loadErr
		s.mu.Unlock()
		return nil, err
	}
	ld := s.loading
	if ld == nil {
		ld = engine.StartLoad(s.ctx, s.loader)
		s.loading = ld
		s.pub.Publish(Event{Name: EventLoadStart, SubmissionID: sub.id})
		s.log.Info().Msg("loading model")
	}
	s.state = Loading
	s.mu.Unlock()

	for {
		st, err := ld.Status().Next(ctx)
		if err != nil {
			return nil, err
		}
		if st.IsDone() {
			break
		}
		s.pub.Publish(Event{Name: EventLoadStatus, SubmissionID: sub.id, Fields: map[string]any{"text": st.Text}})
		snap := append(slices.Clone(msgs), types.Message{Role: types.RoleAssistant, Content: st.Text})
		if err := emit(types.Update{Messages: snap, IsFinished: false}); err != nil {
			return nil, emitError{err}
		}
	}

	m, err := ld.Wait(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.loadErr == nil {
			s.loadErr = loadFailedError{err: err}
		}
		return nil, s.loadErr
	}
	if s.model == nil {
		s.model = m
		s.pub.Publish(Event{Name: EventLoadDone, SubmissionID: sub.id})
		s.log.Info().Msg("model loaded")
	}
	return s.model, nil
}

func (s *Session) generate(ctx context.Context, sub *submission, model engine.Model, msgs []types.Message, emit Emit) error {
	s.mu.Lock()
	s.state = Generating
	system := s.systemPrompt
	s.mu.Unlock()

	all := append([]types.Message{{Role: types.RoleSystem, Content: system}}, msgs...)
	prefix := make([]string, 0, len(all))
	for _, m := range all {
		enc, err := m.Encode()
		if err != nil {
			return err
		}
		prefix = append(prefix, enc)
	}
	s.pub.Publish(Event{Name: EventGenerateStart, SubmissionID: sub.id, Fields: map[string]any{"messages": len(msgs)}})
	if err := model.SetPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("set prefix: %w", err)
	}

	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := model.Next(ctx)
		if err != nil {
			return fmt.Errorf("next increment: %w", err)
		}
		visible, err := decodeVisible(out)
		if err != nil {
			return err
		}
		finished := model.IsFinished()
		steps++
		incrementsTotal.Inc()
		if err := emit(types.Update{Messages: visible, IsFinished: finished}); err != nil {
			return emitError{err}
		}
		if finished {
			break
		}
	}
	s.setState(Finished)
	s.pub.Publish(Event{Name: EventGenerateDone, SubmissionID: sub.id, Fields: map[string]any{"steps": steps}})
	return nil
}

// decodeVisible decodes serialized messages and drops the System ones.
func decodeVisible(out []string) ([]types.Message, error) {
	msgs := make([]types.Message, 0, len(out))
	for _, enc := range out {
		m, err := types.DecodeMessage(enc)
		if err != nil {
			return nil, fmt.Errorf("decode increment: %w", err)
		}
		if m.Role == types.RoleSystem {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *Session) fail(ctx context.Context, log zerolog.Logger, sub *submission, msgs []types.Message, emit Emit, err error) error {
	var ee emitError
	if ctx.Err() != nil || errors.As(err, &ee) {
		submissionsTotal.WithLabelValues("canceled").Inc()
		log.Debug().Err(err).Msg("submission canceled")
		return err
	}
	submissionsTotal.WithLabelValues("failed").Inc()
	s.mu.Lock()
	s.lastErr = err.Error()
	s.state = Finished
	s.mu.Unlock()

	name := EventGenerateFailed
	if IsLoadFailed(err) {
		name = EventLoadFailed
	}
	s.pub.Publish(Event{Name: name, SubmissionID: sub.id, Fields: map[string]any{"error": err.Error()}})
	if pool.IsProtocolViolation(err) {
		log.Error().Err(err).Msg("submission aborted by protocol violation")
	} else {
		log.Warn().Err(err).Msg("submission failed")
	}
	final := append(slices.Clone(msgs), types.Message{Role: types.RoleAssistant, Content: "Error: " + err.Error()})
	if eerr := emit(types.Update{Messages: final, IsFinished: true}); eerr != nil {
		log.Debug().Err(eerr).Msg("final error update not delivered")
	}
	return err
}

// Reset cancels the active submission, waits for it to stop and clears the
// model's cached context. The model stays loaded. It returns the update that
// clears the conversation.
func (s *Session) Reset(ctx context.Context) (types.Update, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return types.Update{}, ErrClosed
		}
		sub := s.active
		if sub == nil {
			break
		}
		s.mu.Unlock()
		sub.cancel()
		select {
		case <-sub.done:
		case <-ctx.Done():
			return types.Update{}, ctx.Err()
		}
	}
	if s.model != nil {
		s.model.Clear()
	}
	s.state = Idle
	s.lastErr = ""
	s.mu.Unlock()

	resetsTotal.Inc()
	s.pub.Publish(Event{Name: EventReset})
	s.log.Debug().Msg("session reset")
	return types.Update{Messages: []types.Message{}, IsFinished: true}, nil
}

// workerReporter is implemented by models backed by the worker pool.
type workerReporter interface {
	Workers() []types.WorkerStatus
}

// Status returns a snapshot of the session.
func (s *Session) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:     s.state,
		Loaded:    s.model != nil,
		Busy:      s.active != nil,
		LastError: s.lastErr,
	}
	if s.loadErr != nil {
		snap.LastError = s.loadErr.Error()
	}
	if wr, ok := s.model.(workerReporter); ok {
		snap.Workers = wr.Workers()
	}
	return snap
}

// Close cancels the active submission and releases the model.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.active
	s.mu.Unlock()
	if sub != nil {
		sub.cancel()
		<-sub.done
	}
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		return s.model.Close()
	}
	if ld := s.loading; ld != nil {
		go func() {
			if m, err := ld.Wait(context.Background()); err == nil {
				_ = m.Close()
			}
		}()
	}
	return nil
}
