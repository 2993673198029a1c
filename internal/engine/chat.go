package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"poolchat/pkg/types"
)

// Chat is the Model over a Generator and the chat-template Tokenizer.
type Chat struct {
	gen     *Generator
	tok     Tokenizer
	log     zerolog.Logger
	closeFn func() error
	workers func() []types.WorkerStatus
}

// NewChat wraps gen. closeFn, if set, runs on Close.
func NewChat(gen *Generator, log zerolog.Logger, closeFn func() error) *Chat {
	return &Chat{gen: gen, log: log, closeFn: closeFn}
}

func (c *Chat) SetPrefix(ctx context.Context, messages []string) error {
	msgs := make([]types.Message, 0, len(messages))
	for _, s := range messages {
		m, err := types.DecodeMessage(s)
		if err != nil {
			return fmt.Errorf("set prefix: %w", err)
		}
		msgs = append(msgs, m)
	}
	return c.gen.SetTokens(ctx, c.tok.EncodeDialogPrompt(msgs))
}

func (c *Chat) Next(ctx context.Context) ([]string, error) {
	begin := time.Now()
	if _, err := c.gen.NextToken(ctx); err != nil {
		return nil, err
	}
	msgs, err := c.tok.DecodeDialog(c.gen.Tokens())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		s, err := m.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	c.log.Debug().Float64("seconds_per_token", time.Since(begin).Seconds()).Int("tokens", len(c.gen.Tokens())).Msg("token generated")
	return out, nil
}

func (c *Chat) IsFinished() bool {
	t := c.gen.Tokens()
	return len(t) > 0 && c.tok.IsEOT(t[len(t)-1])
}

func (c *Chat) Clear() { c.gen.Clear() }

func (c *Chat) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

// Workers reports the pool behind the model, if any.
func (c *Chat) Workers() []types.WorkerStatus {
	if c.workers == nil {
		return nil
	}
	return c.workers()
}
