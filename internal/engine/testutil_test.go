package engine

import (
	"context"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// scriptedNet returns logits that force the tokens in script, in order,
// then <|eot_id|>.
type scriptedNet struct {
	script  []int
	pos     int
	fed     []int
	cleared int
	err     error
}

func (n *scriptedNet) Forward(_ context.Context, token int) ([]float32, error) {
	if n.err != nil {
		return nil, n.err
	}
	n.fed = append(n.fed, token)
	logits := make([]float32, VocabSize)
	next := TokenEOT
	if n.pos < len(n.script) {
		next = n.script[n.pos]
	}
	n.pos++
	logits[next] = 100
	return logits, nil
}

func (n *scriptedNet) ClearCache() {
	n.cleared++
	n.fed = nil
}

func scriptOf(s string) []int {
	out := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = int(s[i])
	}
	return out
}
