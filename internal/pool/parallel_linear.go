package pool

import (
	"context"
	"fmt"

	"poolchat/internal/linalg"
	"poolchat/internal/rpc"
)

// ParallelLinear is a weight matrix whose rows are split into contiguous
// chunks, one per worker. The last worker takes the remainder rows.
type ParallelLinear struct {
	pool  *Pool
	name  string
	rows  int
	cols  int
	parts int
}

// NewParallelLinear uploads w to the pool under name. It uses at most one
// worker per row.
func NewParallelLinear(ctx context.Context, p *Pool, name string, w linalg.Matrix) (*ParallelLinear, error) {
	if w.Rows == 0 || w.Cols == 0 {
		return nil, fmt.Errorf("linear %q: empty matrix", name)
	}
	parts := p.Size()
	if w.Rows < parts {
		parts = w.Rows
	}
	reqs := make([]rpc.Request, parts)
	for i := range reqs {
		begin, end := linalg.ChunkBounds(w.Rows, parts, i)
		reqs[i] = rpc.AddLinearRequest(name, w.SliceRows(begin, end))
	}
	if _, err := p.DispatchAll(ctx, reqs); err != nil {
		return nil, fmt.Errorf("upload linear %q: %w", name, err)
	}
	return &ParallelLinear{pool: p, name: name, rows: w.Rows, cols: w.Cols, parts: parts}, nil
}

// Shape returns the full (rows, cols) of the matrix.
func (l *ParallelLinear) Shape() (rows, cols int) { return l.rows, l.cols }

// Forward computes W·x by broadcasting x to every shard and concatenating the
// partial outputs in worker order.
func (l *ParallelLinear) Forward(ctx context.Context, x []float32) ([]float32, error) {
	if len(x) != l.cols {
		return nil, fmt.Errorf("linear %q: input length %d, want %d", l.name, len(x), l.cols)
	}
	reqs := make([]rpc.Request, l.parts)
	for i := range reqs {
		reqs[i] = rpc.ForwardRequest(l.name, x)
	}
	resps, err := l.pool.DispatchAll(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("forward %q: %w", l.name, err)
	}
	parts := make([][]float32, len(resps))
	for i, r := range resps {
		parts[i] = r.Output
	}
	out := linalg.Concat(parts)
	if len(out) != l.rows {
		return nil, fmt.Errorf("forward %q: got %d outputs, want %d", l.name, len(out), l.rows)
	}
	return out, nil
}

// Release removes the shards from their workers.
func (l *ParallelLinear) Release(ctx context.Context) error {
	reqs := make([]rpc.Request, l.parts)
	for i := range reqs {
		reqs[i] = rpc.RemoveLinearRequest(l.name)
	}
	if _, err := l.pool.DispatchAll(ctx, reqs); err != nil {
		return fmt.Errorf("release %q: %w", l.name, err)
	}
	return nil
}
