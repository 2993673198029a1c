package engine

import (
	"context"
	"errors"
	"slices"
)

// Forwarder maps the latest token to next-token logits, keeping whatever
// context it needs between calls.
type Forwarder interface {
	Forward(ctx context.Context, token int) ([]float32, error)
	ClearCache()
}

// Generator owns the token history of one conversation.
type Generator struct {
	net       Forwarder
	sampler   *Sampler
	maxNew    int
	tokens    []int
	generated int
}

// NewGenerator returns a generator. maxNew <= 0 disables the length limit.
func NewGenerator(net Forwarder, sampler *Sampler, maxNew int) *Generator {
	return &Generator{net: net, sampler: sampler, maxNew: maxNew}
}

// Tokens returns the history. The slice must not be modified.
func (g *Generator) Tokens() []int { return g.tokens }

// SetTokens makes tokens the history. When tokens extends the current
// history only the new suffix is fed through the network; otherwise the
// cache is cleared and the whole sequence is fed again.
func (g *Generator) SetTokens(ctx context.Context, tokens []int) error {
	if len(tokens) < len(g.tokens) || !slices.Equal(tokens[:len(g.tokens)], g.tokens) {
		g.Clear()
	}
	g.generated = 0
	for _, t := range tokens[len(g.tokens):] {
		if n := len(g.tokens); n > 0 {
			if _, err := g.net.Forward(ctx, g.tokens[n-1]); err != nil {
				return err
			}
		}
		g.tokens = append(g.tokens, t)
	}
	return nil
}

// NextToken samples one token and appends it to the history. Once maxNew
// tokens have been generated it appends <|eot_id|> without running the
// network.
func (g *Generator) NextToken(ctx context.Context) (int, error) {
	n := len(g.tokens)
	if n == 0 {
		return 0, errors.New("generator: empty prefix")
	}
	var tok int
	if g.maxNew > 0 && g.generated >= g.maxNew-1 {
		tok = TokenEOT
	} else {
		logits, err := g.net.Forward(ctx, g.tokens[n-1])
		if err != nil {
			return 0, err
		}
		tok = g.sampler.Sample(logits)
	}
	g.tokens = append(g.tokens, tok)
	g.generated++
	return tok, nil
}

// Clear drops the history and the network cache.
func (g *Generator) Clear() {
	g.tokens = g.tokens[:0]
	g.generated = 0
	g.net.ClearCache()
}
