package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"poolchat/internal/config"
	"poolchat/internal/engine"
	"poolchat/internal/host"
	"poolchat/internal/registry"
	"poolchat/internal/session"
)

const defaultAddr = ":8080"

// options collects the effective configuration: file values, then
// environment, then flags.
type options struct {
	configPath  string
	watch       bool
	corsOrigins string
	flags       config.Config
	cfg         config.Config
	log         zerolog.Logger
}

func buildRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "poolchat",
		Short:         "Chat with a model sharded across a pool of workers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv("POOLCHAT_CONFIG"), "Config file (.yaml, .json, .toml); defaults to POOLCHAT_CONFIG")
	pf.StringVar(&opts.flags.Backend, "backend", "", "Model backend: rnn|llama")
	pf.IntVar(&opts.flags.Workers, "workers", 0, "Worker pool size (0=CPU count, capped at 8)")
	pf.StringVar(&opts.flags.ModelPath, "model", "", "GGUF model file for the llama backend")
	pf.StringVar(&opts.flags.ModelsDir, "models-dir", "", "Directory to scan for *.gguf model files")
	pf.Int64Var(&opts.flags.Seed, "seed", 0, "Seed for weights and sampling")
	pf.IntVar(&opts.flags.HiddenDim, "hidden-dim", 0, "Hidden size of the reference network")
	pf.IntVar(&opts.flags.Layers, "layers", 0, "Layer count of the reference network")
	pf.IntVar(&opts.flags.MaxNewTokens, "max-new-tokens", 0, "Tokens generated per reply before forcing end of turn")
	pf.Float64Var(&opts.flags.Temperature, "temperature", 0, "Sampling temperature")
	pf.Float64Var(&opts.flags.TopP, "top-p", 0, "Nucleus sampling threshold")
	pf.StringVar(&opts.flags.SystemPrompt, "system-prompt", "", "System preamble for every conversation")
	pf.IntVar(&opts.flags.MinWorkingSetMB, "min-working-set-mb", 0, "Address space to reserve before enabling chat (0=4096)")
	pf.StringVar(&opts.flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.resolve()
	}

	root.AddCommand(newServeCmd(opts), newChatCmd(opts))
	return root
}

// resolve merges file, environment and flag values and installs the logger.
func (o *options) resolve() error {
	var cfg config.Config
	if o.configPath != "" {
		fileCfg, err := config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		cfg = fileCfg
	}
	cfg = cfg.Merge(config.Config{Addr: os.Getenv("POOLCHAT_ADDR")})
	flags := o.flags
	if o.corsOrigins != "" {
		flags.CORSOrigins = splitCSV(o.corsOrigins)
	}
	cfg = cfg.Merge(flags)
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	setLogLevel(cfg.LogLevel)
	o.log = newLogger(os.Stderr)
	return nil
}

// buildDriver wires loader, session and host driver from the effective
// configuration.
func (o *options) buildDriver() (*host.Driver, *session.Session, error) {
	cfg := o.cfg
	modelPath := cfg.ModelPath
	if cfg.Backend == engine.BackendLlama {
		m, err := registry.Resolve(cfg.ModelPath, cfg.ModelsDir)
		if err != nil {
			return nil, nil, err
		}
		modelPath = m.Path
		if !engine.LlamaAvailable() {
			o.log.Warn().Msg("llama backend requested but binary built without -tags=llama; loading will fail")
		}
		o.log.Info().Str("model", m.ID).Msg("selected model")
	}
	loader, err := engine.NewLoader(engine.Config{
		Backend:      cfg.Backend,
		Workers:      cfg.Workers,
		ModelPath:    modelPath,
		Seed:         cfg.Seed,
		Hidden:       cfg.HiddenDim,
		Layers:       cfg.Layers,
		MaxNewTokens: cfg.MaxNewTokens,
		Temperature:  float32(cfg.Temperature),
		TopP:         float32(cfg.TopP),
		Logger:       o.log,
	})
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(session.Config{
		Loader:       loader,
		SystemPrompt: cfg.SystemPrompt,
		Logger:       o.log,
	})
	drv := host.New(host.Config{
		Session:       sess,
		MinWorkingSet: cfg.MinWorkingSetMB << 20,
		Logger:        o.log,
	})
	return drv, sess, nil
}
