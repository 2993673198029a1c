package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"poolchat/internal/engine"
	"poolchat/internal/host"
	"poolchat/internal/httpapi"
	"poolchat/internal/session"
	"poolchat/pkg/types"
)

// newServer starts the HTTP surface over a real session with a small
// reference network sharded across two workers.
func newServer(t *testing.T, probe func() bool) (*httptest.Server, *host.Driver) {
	t.Helper()
	loader, err := engine.NewLoader(engine.Config{
		Backend:      engine.BackendRNN,
		Workers:      2,
		Seed:         1,
		Hidden:       16,
		Layers:       2,
		MaxNewTokens: 8,
		Logger:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	sess := session.New(session.Config{Loader: loader, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = sess.Close() })
	drv := host.New(host.Config{Session: sess, Probe: probe, Logger: zerolog.Nop()})
	srv := httptest.NewServer(httpapi.NewMux(drv))
	t.Cleanup(srv.Close)
	return srv, drv
}

func always(ok bool) func() bool { return func() bool { return ok } }

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func chat(t *testing.T, url string, content string) (*http.Response, []types.Update) {
	t.Helper()
	payload, _ := json.Marshal(types.ChatRequest{Content: &content})
	resp, body := httpPostJSON(t, url+"/chat", payload)
	var ups []types.Update
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var u types.Update
		if err := json.Unmarshal(sc.Bytes(), &u); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", sc.Text(), err)
		}
		ups = append(ups, u)
	}
	return resp, ups
}
