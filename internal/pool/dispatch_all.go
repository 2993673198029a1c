package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"poolchat/internal/rpc"
)

// DispatchAll sends reqs[i] to worker i, in index order, then waits for every
// reply. The result keeps worker order regardless of completion order. If any
// call fails the whole operation fails and no partial results are returned;
// the remaining calls are abandoned and drained.
func (p *Pool) DispatchAll(ctx context.Context, reqs []rpc.Request) ([]rpc.Response, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("dispatch all: no requests")
	}
	if len(reqs) > len(p.workers) {
		return nil, fmt.Errorf("dispatch all: %d requests for %d workers", len(reqs), len(p.workers))
	}
	calls := make([]*Call, len(reqs))
	for i, req := range reqs {
		c, err := p.Dispatch(ctx, i, req)
		if err != nil {
			for _, prev := range calls[:i] {
				prev.Abandon()
			}
			return nil, fmt.Errorf("dispatch all: %w", err)
		}
		calls[i] = c
	}

	out := make([]rpc.Response, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range calls {
		g.Go(func() error {
			resp, err := c.Await(gctx)
			if err != nil {
				return err
			}
			out[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dispatch all: %w", err)
	}
	return out, nil
}
