package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"poolchat/internal/pool"
)

// releaseTimeout bounds how long Close waits for workers to drop their
// shards before the pool is torn down anyway.
const releaseTimeout = 2 * time.Second

// RNNLoader creates the worker pool and uploads the reference network into
// it, one layer at a time.
type RNNLoader struct {
	Pool         pool.Config
	Network      NetworkConfig
	Temperature  float32
	TopP         float32
	MaxNewTokens int
	Logger       zerolog.Logger
}

func (l RNNLoader) Load(ctx context.Context, status *StatusChannel) (Model, error) {
	if l.Network.Hidden <= 0 || l.Network.Layers <= 0 {
		return nil, fmt.Errorf("network needs positive hidden size and layer count, got %d and %d", l.Network.Hidden, l.Network.Layers)
	}
	p, err := pool.CreatePool(l.Pool)
	if err != nil {
		return nil, err
	}
	net, err := l.upload(ctx, p, status)
	if err != nil {
		p.Close()
		return nil, err
	}
	sampler := NewSampler(l.Temperature, l.TopP, l.Network.Seed)
	gen := NewGenerator(net, sampler, l.MaxNewTokens)
	var (
		closeOnce sync.Once
		closeErr  error
	)
	closeFn := func() error {
		closeOnce.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if closeErr = net.Release(rctx); closeErr != nil {
				l.Logger.Warn().Err(closeErr).Msg("release network shards")
			}
			p.Close()
		})
		return closeErr
	}
	chat := NewChat(gen, l.Logger.With().Str("component", "model").Logger(), closeFn)
	chat.workers = p.Status
	return chat, nil
}

func (l RNNLoader) upload(ctx context.Context, p *pool.Pool, status *StatusChannel) (*Network, error) {
	w := generateWeights(l.Network)
	total := len(w.layers) + 1
	report := func(i int) error {
		return status.Report(ctx, fmt.Sprintf("Loading model: %d/%d", i+1, total))
	}
	net := &Network{embed: w.embed, mask: generationMask()}
	for i, m := range w.layers {
		if err := report(i); err != nil {
			return nil, err
		}
		pl, err := pool.NewParallelLinear(ctx, p, fmt.Sprintf("layers.%d", i), m)
		if err != nil {
			return nil, err
		}
		net.layers = append(net.layers, pl)
		net.state = append(net.state, make([]float32, l.Network.Hidden))
	}
	if err := report(len(w.layers)); err != nil {
		return nil, err
	}
	head, err := pool.NewParallelLinear(ctx, p, "head", w.head)
	if err != nil {
		return nil, err
	}
	net.head = head
	return net, nil
}
