package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"poolchat/internal/linalg"
	"poolchat/internal/pool"
)

// NetworkConfig sizes the reference network.
type NetworkConfig struct {
	Hidden int
	Layers int
	Seed   int64
}

// Network is a small recurrent network: an embedding table held locally,
// Layers recurrent layers and an output head, the latter two partitioned by
// rows across the pool. Each step costs Layers+1 DispatchAll round trips.
type Network struct {
	embed  linalg.Matrix
	layers []*pool.ParallelLinear
	head   *pool.ParallelLinear
	state  [][]float32
	mask   []bool
}

// networkWeights generates deterministic weights for cfg.
type networkWeights struct {
	embed  linalg.Matrix
	layers []linalg.Matrix
	head   linalg.Matrix
}

func generateWeights(cfg NetworkConfig) networkWeights {
	r := rand.New(rand.NewSource(cfg.Seed))
	scale := float32(1 / math.Sqrt(float64(cfg.Hidden)))
	fill := func(m linalg.Matrix, s float32) linalg.Matrix {
		for i := range m.Data {
			m.Data[i] = (r.Float32()*2 - 1) * s
		}
		return m
	}
	w := networkWeights{
		embed: fill(linalg.Zeros(VocabSize, cfg.Hidden), 1),
		head:  fill(linalg.Zeros(VocabSize, cfg.Hidden), 4*scale),
	}
	for range cfg.Layers {
		w.layers = append(w.layers, fill(linalg.Zeros(cfg.Hidden, cfg.Hidden), scale))
	}
	return w
}

// generationMask allows printable ASCII, newline and <|eot_id|>.
func generationMask() []bool {
	m := make([]bool, VocabSize)
	for b := 32; b < 127; b++ {
		m[b] = true
	}
	m['\n'] = true
	m[TokenEOT] = true
	return m
}

// Forward feeds token through the network and returns next-token logits.
// Tokens the network never generates get -Inf.
func (n *Network) Forward(ctx context.Context, token int) ([]float32, error) {
	if token < 0 || token >= VocabSize {
		return nil, fmt.Errorf("token %d out of vocabulary", token)
	}
	x := append([]float32(nil), n.embed.Row(token)...)
	for i, l := range n.layers {
		h, err := l.Forward(ctx, x)
		if err != nil {
			return nil, err
		}
		for j := range h {
			h[j] += 0.5 * n.state[i][j]
		}
		n.state[i] = linalg.Tanh(h)
		x = n.state[i]
	}
	logits, err := n.head.Forward(ctx, x)
	if err != nil {
		return nil, err
	}
	neg := float32(math.Inf(-1))
	for i, ok := range n.mask {
		if !ok {
			logits[i] = neg
		}
	}
	return logits, nil
}

// ClearCache resets the recurrent state.
func (n *Network) ClearCache() {
	for i := range n.state {
		clear(n.state[i])
	}
}

// Release removes every shard of the network from the pool.
func (n *Network) Release(ctx context.Context) error {
	var errs []error
	for _, l := range n.layers {
		errs = append(errs, l.Release(ctx))
	}
	if n.head != nil {
		errs = append(errs, n.head.Release(ctx))
	}
	return errors.Join(errs...)
}
