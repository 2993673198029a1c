package engine

import (
	"context"
	"fmt"
)

// Model produces a conversation one increment at a time. Messages cross this
// boundary in their serialized JSON form.
type Model interface {
	// SetPrefix replaces the conversation the next increment continues.
	SetPrefix(ctx context.Context, messages []string) error
	// Next advances generation by one step and returns the whole
	// conversation so far, the partial reply included.
	Next(ctx context.Context) ([]string, error)
	// IsFinished reports whether the last increment reached the stop
	// condition.
	IsFinished() bool
	// Clear discards cached context.
	Clear()
	// Close releases the model's resources.
	Close() error
}

// Loader builds a Model, reporting progress on status as it goes. Load must
// not call status.Finish; StartLoad does.
type Loader interface {
	Load(ctx context.Context, status *StatusChannel) (Model, error)
}

// Loading is a model load running in the background.
type Loading struct {
	status *StatusChannel
	done   chan struct{}
	model  Model
	err    error
}

// StartLoad runs l on its own goroutine. The status stream carries l's
// progress, then the error text if the load failed, then Done.
func StartLoad(ctx context.Context, l Loader) *Loading {
	ld := &Loading{status: NewStatusChannel(), done: make(chan struct{})}
	go func() {
		defer close(ld.done)
		defer ld.status.Finish()
		m, err := l.Load(ctx, ld.status)
		if err != nil {
			ld.err = fmt.Errorf("load model: %w", err)
			_ = ld.status.Report(ctx, err.Error())
			return
		}
		ld.model = m
	}()
	return ld
}

// Status returns the progress stream.
func (ld *Loading) Status() StatusSource { return ld.status }

// Wait blocks until the load completes.
func (ld *Loading) Wait(ctx context.Context) (Model, error) {
	select {
	case <-ld.done:
		return ld.model, ld.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
