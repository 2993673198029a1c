//go:build !llama

package engine

import (
	"context"
	"errors"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = false

var errLlamaUnavailable = errors.New("llama support not built (missing 'llama' build tag)")

func (l LlamaLoader) Load(ctx context.Context, _ *StatusChannel) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errLlamaUnavailable
}
