package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"poolchat/pkg/types"
)

// predictFunc runs one completion of prompt, calling onToken for each piece
// of text until it returns false or the completion ends.
type predictFunc func(ctx context.Context, prompt string, onToken func(string) bool) error

// streamModel adapts a callback-driven completion engine to Model. The
// completion runs on its own goroutine and each Next takes one piece from it.
type streamModel struct {
	predict predictFunc
	closeFn func() error

	mu       sync.Mutex
	prefix   []types.Message
	reply    strings.Builder
	pieces   chan string
	result   chan error
	cancel   context.CancelFunc
	finished bool
}

func newStreamModel(predict predictFunc, closeFn func() error) *streamModel {
	return &streamModel{predict: predict, closeFn: closeFn}
}

func (m *streamModel) SetPrefix(_ context.Context, messages []string) error {
	msgs := make([]types.Message, 0, len(messages))
	for _, s := range messages {
		msg, err := types.DecodeMessage(s)
		if err != nil {
			return fmt.Errorf("set prefix: %w", err)
		}
		msgs = append(msgs, msg)
	}
	m.Clear()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefix = msgs
	m.finished = false
	return nil
}

// renderPrompt renders msgs with the llama3 chat template and opens an
// assistant turn.
func renderPrompt(msgs []types.Message) string {
	var tk Tokenizer
	return tk.Decode(tk.EncodeDialogPrompt(msgs))
}

func (m *streamModel) start() {
	ctx, cancel := context.WithCancel(context.Background())
	pieces := make(chan string)
	result := make(chan error, 1)
	m.pieces, m.result, m.cancel = pieces, result, cancel
	prompt := renderPrompt(m.prefix)
	go func() {
		defer close(pieces)
		result <- m.predict(ctx, prompt, func(piece string) bool {
			select {
			case pieces <- piece:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
}

func (m *streamModel) Next(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefix == nil {
		return nil, errors.New("next: no prefix set")
	}
	if m.finished {
		return nil, errors.New("next: generation finished")
	}
	if m.pieces == nil {
		m.start()
	}
	select {
	case piece, ok := <-m.pieces:
		if ok {
			m.reply.WriteString(piece)
		} else {
			m.finished = true
			if err := <-m.result; err != nil {
				return nil, err
			}
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := make([]string, 0, len(m.prefix)+1)
	msgs := append(slices.Clone(m.prefix), types.Message{Role: types.RoleAssistant, Content: strings.TrimSpace(m.reply.String())})
	for _, msg := range msgs {
		s, err := msg.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *streamModel) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

func (m *streamModel) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		for range m.pieces {
		}
	}
	m.pieces, m.result, m.cancel = nil, nil, nil
	m.prefix = nil
	m.reply.Reset()
	m.finished = false
}

func (m *streamModel) Close() error {
	m.Clear()
	if m.closeFn == nil {
		return nil
	}
	return m.closeFn()
}
