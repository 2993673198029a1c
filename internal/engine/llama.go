//go:build llama

package engine

import (
	"context"
	"runtime"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

func (l LlamaLoader) Load(ctx context.Context, status *StatusChannel) (Model, error) {
	if err := status.Report(ctx, "Loading model: 1/2"); err != nil {
		return nil, err
	}
	m, err := llama.New(l.ModelPath, llama.SetContext(l.ContextSize))
	if err != nil {
		return nil, err
	}
	if err := status.Report(ctx, "Loading model: 2/2"); err != nil {
		m.Free()
		return nil, err
	}
	threads := l.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	opts := []llama.PredictOption{
		llama.SetTokens(l.MaxTokens),
		llama.SetThreads(threads),
		llama.SetTopP(l.TopP),
		llama.SetTemperature(l.Temperature),
		llama.SetStopWords(specialNames[TokenEOT]),
	}
	if l.Seed != 0 {
		opts = append(opts, llama.SetSeed(l.Seed))
	}
	predict := func(ctx context.Context, prompt string, onToken func(string) bool) error {
		m.SetTokenCallback(onToken)
		_, err := m.Predict(prompt, opts...)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return newStreamModel(predict, func() error {
		m.Free()
		return nil
	}), nil
}
