package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"poolchat/internal/config"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	if got := setLogLevel("DEBUG"); got != zerolog.DebugLevel {
		t.Fatalf("level=%v", got)
	}
	if got := setLogLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("fallback level=%v", got)
	}
	if got := setLogLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("empty level=%v", got)
	}
}

func TestResolve_Precedence(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(p, []byte("addr: :7000\nworkers: 2\nsystem_prompt: from file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("POOLCHAT_ADDR", ":7001")

	o := &options{configPath: p}
	o.flags.Workers = 3
	o.corsOrigins = "http://a, http://b"
	if err := o.resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if o.cfg.Addr != ":7001" {
		t.Fatalf("env should override file addr, got %q", o.cfg.Addr)
	}
	if o.cfg.Workers != 3 || o.cfg.SystemPrompt != "from file" {
		t.Fatalf("unexpected cfg: %+v", o.cfg)
	}
	if len(o.cfg.CORSOrigins) != 2 {
		t.Fatalf("cors=%v", o.cfg.CORSOrigins)
	}
}

func TestReloaded_FlagsWinOverFile(t *testing.T) {
	t.Setenv("POOLCHAT_ADDR", "")
	o := &options{}
	o.flags.SystemPrompt = "from flag"
	o.flags.LogLevel = "debug"

	got := o.reloaded(config.Config{SystemPrompt: "from file", LogLevel: "error", Workers: 2})
	if got.SystemPrompt != "from flag" || got.LogLevel != "debug" {
		t.Fatalf("flags lost on reload: %+v", got)
	}
	if got.Workers != 2 {
		t.Fatalf("file value lost on reload: %+v", got)
	}

	o.flags = config.Config{}
	if got := o.reloaded(config.Config{SystemPrompt: "edited"}); got.SystemPrompt != "edited" {
		t.Fatalf("file edit ignored: %+v", got)
	}
}

func TestResolve_DefaultsAndErrors(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	t.Setenv("POOLCHAT_ADDR", "")
	o := &options{}
	if err := o.resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if o.cfg.Addr != defaultAddr {
		t.Fatalf("addr=%q", o.cfg.Addr)
	}

	bad := &options{}
	bad.flags.Backend = "gpt"
	if err := bad.resolve(); err == nil {
		t.Fatalf("expected invalid backend error")
	}
	missing := &options{configPath: filepath.Join(t.TempDir(), "nope.yaml")}
	if err := missing.resolve(); err == nil {
		t.Fatalf("expected missing config error")
	}
}

func TestBuildDriver_RNN(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	t.Setenv("POOLCHAT_ADDR", "")
	o := &options{}
	o.flags.Workers = 2
	o.flags.MinWorkingSetMB = 1
	if err := o.resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	drv, sess, err := o.buildDriver()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer sess.Close()
	if !drv.Ready() {
		t.Fatalf("fresh driver not ready")
	}
	if st := drv.Status(); st.Loaded || st.Messages != 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestBuildDriver_LlamaNeedsModel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	t.Setenv("POOLCHAT_ADDR", "")
	o := &options{}
	o.flags.Backend = "llama"
	if err := o.resolve(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, _, err := o.buildDriver(); err == nil {
		t.Fatalf("expected error without model")
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := buildRootCmd()
	for _, name := range []string{"serve", "chat"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}
