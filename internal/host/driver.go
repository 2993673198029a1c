// Package host is the outermost driver of a chat: it keeps the conversation
// the presentation layer shows, gates the feature on a resource check made
// once at start and allows one submission at a time.
package host

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"poolchat/internal/session"
	"poolchat/pkg/types"
)

// NotEnoughRAM is shown when the resource check fails.
const NotEnoughRAM = "Not enough RAM. Only devices with available 4Gb of RAM are supported."

// Backend is the session the driver forwards to.
type Backend interface {
	Submit(ctx context.Context, msgs []types.Message, emit session.Emit) error
	Reset(ctx context.Context) (types.Update, error)
	Status() session.Snapshot
}

// Config encapsulates Driver construction parameters.
type Config struct {
	Session Backend
	// Probe reports whether the feature may run. Defaults to NewProbe with
	// MinWorkingSet.
	Probe         func() bool
	MinWorkingSet int
	Logger        zerolog.Logger
}

// Driver owns one session and the conversation snapshot shown to the user.
type Driver struct {
	sess        Backend
	resourcesOK bool
	log         zerolog.Logger
	started     time.Time

	mu       sync.Mutex
	messages []types.Message
	busy     bool
	current  string
	cancel   context.CancelFunc
	locked   bool
}

// New returns a driver. The resource check runs here, once; a failing host
// reports not ready from the start and answers its first submission with
// NotEnoughRAM.
func New(cfg Config) *Driver {
	log := cfg.Logger.With().Str("component", "host").Logger()
	probe := cfg.Probe
	if probe == nil {
		probe = NewProbe(cfg.MinWorkingSet, log)
	}
	ok := probe()
	if !ok {
		log.Warn().Msg("not enough memory, chat disabled")
	}
	return &Driver{sess: cfg.Session, resourcesOK: ok, log: log, started: time.Now()}
}

// Submit appends text as a User message to the current conversation and
// submits it. Empty text is sent as a single space.
func (d *Driver) Submit(ctx context.Context, text string) (<-chan types.Update, error) {
	d.mu.Lock()
	msgs := append(slices.Clone(d.messages), types.Message{Role: types.RoleUser, Content: text})
	d.mu.Unlock()
	return d.SubmitConversation(ctx, msgs)
}

// SubmitConversation submits msgs as the whole conversation. The returned
// channel carries every update and is closed after the last one. Only one
// submission may be outstanding; input re-enables when it finishes.
//
// If the resource check failed the session is never contacted: a single
// finished update explains the shortfall and input stays locked for good.
func (d *Driver) SubmitConversation(ctx context.Context, msgs []types.Message) (<-chan types.Update, error) {
	msgs = normalize(msgs)

	d.mu.Lock()
	if d.locked {
		d.mu.Unlock()
		return nil, inputLockedError{reason: "not enough memory"}
	}
	if d.busy {
		d.mu.Unlock()
		return nil, inputLockedError{reason: "a submission is in progress"}
	}
	if !d.resourcesOK {
		d.locked = true
		d.messages = append(msgs, types.Message{Role: types.RoleAssistant, Content: NotEnoughRAM})
		out := make(chan types.Update, 1)
		out <- types.Update{Messages: slices.Clone(d.messages), IsFinished: true}
		close(out)
		d.mu.Unlock()
		d.log.Warn().Msg("input locked")
		return out, nil
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	d.busy = true
	d.current = id
	d.cancel = cancel
	d.messages = msgs
	d.mu.Unlock()

	log := d.log.With().Str("request_id", id).Logger()
	out := make(chan types.Update)
	go func() {
		defer close(out)
		defer cancel()
		begin := time.Now()
		// The finished update is held back until the session has returned,
		// so whoever reads it can submit again straight away.
		var final *types.Update
		err := d.sess.Submit(ctx, slices.Clone(msgs), func(u types.Update) error {
			if u.IsFinished {
				final = &u
				return nil
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return ctx.Err()
			}
			d.mu.Lock()
			if d.current == id {
				d.messages = u.Messages
			}
			d.mu.Unlock()
			return nil
		})
		d.mu.Lock()
		if d.current == id {
			if final != nil {
				d.messages = final.Messages
			} else {
				// Interim updates such as load status never outlive the
				// submission that produced them.
				d.messages = msgs
			}
			d.busy = false
			d.current = ""
			d.cancel = nil
		}
		d.mu.Unlock()
		if final != nil {
			select {
			case out <- *final:
			case <-ctx.Done():
			}
		}
		if err != nil {
			log.Debug().Err(err).Dur("elapsed", time.Since(begin)).Msg("submission ended with error")
			return
		}
		log.Debug().Dur("elapsed", time.Since(begin)).Msg("submission finished")
	}()
	return out, nil
}

// normalize replaces empty User contents with a single space.
func normalize(msgs []types.Message) []types.Message {
	out := slices.Clone(msgs)
	for i, m := range out {
		if m.Role == types.RoleUser && m.Content == "" {
			out[i].Content = " "
		}
	}
	return out
}

// Reset clears the conversation and the session's context. A submission in
// progress is abandoned even if nobody is reading its updates.
func (d *Driver) Reset(ctx context.Context) (types.Update, error) {
	d.mu.Lock()
	locked := d.locked
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	u := types.Update{Messages: []types.Message{}, IsFinished: true}
	if !locked {
		var err error
		if u, err = d.sess.Reset(ctx); err != nil {
			return types.Update{}, err
		}
	}
	d.mu.Lock()
	d.messages = nil
	d.busy = false
	d.current = ""
	d.cancel = nil
	d.mu.Unlock()
	return u, nil
}

// Messages returns the conversation as last delivered.
func (d *Driver) Messages() []types.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.messages)
}

// InputEnabled reports whether a submission would be accepted.
func (d *Driver) InputEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.busy && !d.locked
}

// Status summarizes the driver and its session.
func (d *Driver) Status() types.StatusResponse {
	snap := d.sess.Status()
	d.mu.Lock()
	defer d.mu.Unlock()
	return types.StatusResponse{
		State:         snap.State.String(),
		Loaded:        snap.Loaded,
		InputEnabled:  !d.busy && !d.locked,
		ResourcesOK:   d.resourcesOK,
		Messages:      len(d.messages),
		Workers:       snap.Workers,
		LastError:     snap.LastError,
		UptimeSeconds: int64(time.Since(d.started).Seconds()),
	}
}

// Ready reports whether the host passed its resource check.
func (d *Driver) Ready() bool { return d.resourcesOK }
