package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nworkers: 4\nbackend: rnn\ntop_p: 0.8\nsystem_prompt: be brief\ncors_origins: [\"http://a\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Workers != 4 || cfg.Backend != "rnn" || cfg.TopP != 0.8 || cfg.SystemPrompt != "be brief" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://a" {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","models_dir":"/m","backend":"llama","max_new_tokens":42,"min_working_set_mb":512}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.Backend != "llama" || cfg.MaxNewTokens != 42 || cfg.MinWorkingSetMB != 512 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nseed=7\nhidden_dim=32\nlayers=3\ntemperature=0.5\nlog_level=\"debug\"\nrequests_per_minute=30\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Seed != 7 || cfg.HiddenDim != 32 || cfg.Layers != 3 || cfg.Temperature != 0.5 || cfg.LogLevel != "debug" || cfg.RequestsPerMinute != 30 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "bad.json", `{ "addr": ":8080", "models_dir": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "bad.toml", "addr=:8080\nmodels_dir\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"zero", Config{}, true},
		{"bad backend", Config{Backend: "gpt"}, false},
		{"negative workers", Config{Workers: -1}, false},
		{"top_p above one", Config{TopP: 1.5}, false},
		{"negative temperature", Config{Temperature: -0.1}, false},
		{"negative layers", Config{Layers: -2}, false},
	}
	for _, c := range cases {
		if err := c.cfg.Validate(); (err == nil) != c.ok {
			t.Fatalf("%s: err=%v", c.name, err)
		}
	}
}

func TestLoad_ValidatesValues(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.yaml", "backend: gpt\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMerge(t *testing.T) {
	base := Config{Addr: ":1", Workers: 2, SystemPrompt: "a", CORSOrigins: []string{"x"}}
	got := base.Merge(Config{Workers: 5, LogLevel: "debug"})
	if got.Addr != ":1" || got.Workers != 5 || got.SystemPrompt != "a" || got.LogLevel != "debug" || len(got.CORSOrigins) != 1 {
		t.Fatalf("unexpected merge: %+v", got)
	}
}
