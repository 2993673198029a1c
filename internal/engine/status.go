package engine

import (
	"context"
	"sync"
)

// StatusSentinel is the string GetStatus returns once the stream has ended.
const StatusSentinel = "\x00status:done"

// Status is one load progress signal. The zero value is not Done.
type Status struct {
	Text string
	done bool
}

// Done terminates a status stream.
var Done = Status{done: true}

// Progress wraps a progress text.
func Progress(text string) Status { return Status{Text: text} }

// IsDone reports whether s is the terminal signal.
func (s Status) IsDone() bool { return s.done }

// StatusSource yields status signals until Done.
type StatusSource interface {
	Next(ctx context.Context) (Status, error)
}

// StatusChannel is a StatusSource fed by a single producer. Report blocks
// until the previous signal has been read.
type StatusChannel struct {
	ch   chan string
	once sync.Once
}

// NewStatusChannel returns an empty stream.
func NewStatusChannel() *StatusChannel {
	return &StatusChannel{ch: make(chan string, 1)}
}

// Report queues a progress text. It must not be called after Finish.
func (c *StatusChannel) Report(ctx context.Context, text string) error {
	select {
	case c.ch <- text:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish ends the stream. Signals already queued are still delivered.
func (c *StatusChannel) Finish() {
	c.once.Do(func() { close(c.ch) })
}

// GetStatus returns the next progress text, or StatusSentinel once the
// stream has ended.
func (c *StatusChannel) GetStatus(ctx context.Context) (string, error) {
	select {
	case text, ok := <-c.ch:
		if !ok {
			return StatusSentinel, nil
		}
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Next implements StatusSource.
func (c *StatusChannel) Next(ctx context.Context) (Status, error) {
	text, err := c.GetStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	if text == StatusSentinel {
		return Done, nil
	}
	return Progress(text), nil
}
