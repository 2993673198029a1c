package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr              string   `json:"addr" yaml:"addr" toml:"addr"`
	Workers           int      `json:"workers" yaml:"workers" toml:"workers"`
	Backend           string   `json:"backend" yaml:"backend" toml:"backend"`
	ModelPath         string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelsDir         string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Seed              int64    `json:"seed" yaml:"seed" toml:"seed"`
	HiddenDim         int      `json:"hidden_dim" yaml:"hidden_dim" toml:"hidden_dim"`
	Layers            int      `json:"layers" yaml:"layers" toml:"layers"`
	MaxNewTokens      int      `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
	Temperature       float64  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP              float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	SystemPrompt      string   `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	MinWorkingSetMB   int      `json:"min_working_set_mb" yaml:"min_working_set_mb" toml:"min_working_set_mb"`
	LogLevel          string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	RequestsPerMinute int      `json:"requests_per_minute" yaml:"requests_per_minute" toml:"requests_per_minute"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no default could repair.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case "", "rnn", "llama":
	default:
		errs = append(errs, fmt.Errorf("backend %q: want rnn or llama", c.Backend))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative: %d", c.Workers))
	}
	if c.TopP < 0 || c.TopP > 1 {
		errs = append(errs, fmt.Errorf("top_p out of range [0,1]: %v", c.TopP))
	}
	if c.Temperature < 0 {
		errs = append(errs, fmt.Errorf("temperature must not be negative: %v", c.Temperature))
	}
	if c.HiddenDim < 0 || c.Layers < 0 || c.MaxNewTokens < 0 || c.MinWorkingSetMB < 0 {
		errs = append(errs, errors.New("hidden_dim, layers, max_new_tokens and min_working_set_mb must not be negative"))
	}
	return errors.Join(errs...)
}

// Merge returns c with every non-zero field of o applied on top.
func (c Config) Merge(o Config) Config {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.Workers != 0 {
		c.Workers = o.Workers
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.ModelPath != "" {
		c.ModelPath = o.ModelPath
	}
	if o.ModelsDir != "" {
		c.ModelsDir = o.ModelsDir
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.HiddenDim != 0 {
		c.HiddenDim = o.HiddenDim
	}
	if o.Layers != 0 {
		c.Layers = o.Layers
	}
	if o.MaxNewTokens != 0 {
		c.MaxNewTokens = o.MaxNewTokens
	}
	if o.Temperature != 0 {
		c.Temperature = o.Temperature
	}
	if o.TopP != 0 {
		c.TopP = o.TopP
	}
	if o.SystemPrompt != "" {
		c.SystemPrompt = o.SystemPrompt
	}
	if o.MinWorkingSetMB != 0 {
		c.MinWorkingSetMB = o.MinWorkingSetMB
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.RequestsPerMinute != 0 {
		c.RequestsPerMinute = o.RequestsPerMinute
	}
	if len(o.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), o.CORSOrigins...)
	}
	return c
}
