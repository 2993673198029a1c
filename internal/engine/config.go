package engine

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"poolchat/internal/pool"
)

// Backends.
const (
	BackendRNN   = "rnn"
	BackendLlama = "llama"
)

// Defaults for Config fields left zero.
const (
	DefaultTemperature  float32 = 0.6
	DefaultTopP         float32 = 0.9
	DefaultHidden               = 64
	DefaultLayers               = 2
	DefaultMaxNewTokens         = 256
	DefaultContextSize          = 4096
)

// Config selects and tunes a backend.
type Config struct {
	Backend      string
	Workers      int
	ModelPath    string
	Seed         int64
	Hidden       int
	Layers       int
	MaxNewTokens int
	Temperature  float32
	TopP         float32
	ContextSize  int
	Logger       zerolog.Logger
}

// LlamaLoader loads a GGUF model through go-llama.cpp. Binaries built without
// the llama tag refuse to load.
type LlamaLoader struct {
	ModelPath   string
	ContextSize int
	Threads     int
	Temperature float32
	TopP        float32
	MaxTokens   int
	Seed        int
}

// NewLoader returns the Loader for cfg.Backend.
func NewLoader(cfg Config) (Loader, error) {
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.TopP <= 0 {
		cfg.TopP = DefaultTopP
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = DefaultMaxNewTokens
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendRNN:
		if cfg.Hidden <= 0 {
			cfg.Hidden = DefaultHidden
		}
		if cfg.Layers <= 0 {
			cfg.Layers = DefaultLayers
		}
		return RNNLoader{
			Pool:         pool.Config{Size: cfg.Workers, Logger: cfg.Logger},
			Network:      NetworkConfig{Hidden: cfg.Hidden, Layers: cfg.Layers, Seed: cfg.Seed},
			Temperature:  cfg.Temperature,
			TopP:         cfg.TopP,
			MaxNewTokens: cfg.MaxNewTokens,
			Logger:       cfg.Logger,
		}, nil
	case BackendLlama:
		if strings.TrimSpace(cfg.ModelPath) == "" {
			return nil, fmt.Errorf("backend %q needs a model path", BackendLlama)
		}
		if cfg.ContextSize <= 0 {
			cfg.ContextSize = DefaultContextSize
		}
		return LlamaLoader{
			ModelPath:   cfg.ModelPath,
			ContextSize: cfg.ContextSize,
			Threads:     cfg.Workers,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxNewTokens,
			Seed:        int(cfg.Seed),
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// LlamaAvailable reports whether the llama backend was compiled in.
func LlamaAvailable() bool { return llamaBuilt }
