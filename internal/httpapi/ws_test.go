package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"poolchat/pkg/types"
)

func dialWS(t *testing.T, svc Service) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewMux(svc))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWS_StreamsUpdates(t *testing.T) {
	svc := &mockService{updates: replyUpdates()}
	conn := dialWS(t, svc)

	content := "hi"
	if err := conn.WriteJSON(types.ChatRequest{Content: &content}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []types.Update
	for {
		var u types.Update
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatalf("read: %v", err)
		}
		got = append(got, u)
		if u.IsFinished {
			break
		}
	}
	if len(got) != 3 || got[2].Messages[1].Content != "hello" {
		t.Fatalf("updates=%+v", got)
	}
}

func TestWS_EmptyRequestResets(t *testing.T) {
	svc := &mockService{}
	conn := dialWS(t, svc)
	if err := conn.WriteJSON(types.ChatRequest{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var u types.Update
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !u.IsFinished || len(u.Messages) != 0 {
		t.Fatalf("update=%+v", u)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.resets != 1 {
		t.Fatalf("resets=%d", svc.resets)
	}
}

func TestWS_SubmitErrorIsReported(t *testing.T) {
	conn := dialWS(t, &mockService{submitErr: mockHTTPError{"busy", http.StatusTooManyRequests}})
	content := "x"
	if err := conn.WriteJSON(types.ChatRequest{Content: &content}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var er types.ErrorResponse
	if err := conn.ReadJSON(&er); err != nil {
		t.Fatalf("read: %v", err)
	}
	if er.Code != http.StatusTooManyRequests || er.Error != "busy" {
		t.Fatalf("error=%+v", er)
	}
}

// stallingService streams one update per submission and then holds the
// stream open until Reset.
type stallingService struct {
	mockService
	once  sync.Once
	reset chan struct{}
}

func (s *stallingService) Submit(ctx context.Context, text string) (<-chan types.Update, error) {
	ch := make(chan types.Update)
	go func() {
		defer close(ch)
		select {
		case ch <- types.Update{Messages: []types.Message{{Role: types.RoleUser, Content: text}}}:
		case <-ctx.Done():
			return
		}
		select {
		case <-s.reset:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

func (s *stallingService) Reset(ctx context.Context) (types.Update, error) {
	s.once.Do(func() { close(s.reset) })
	return s.mockService.Reset(ctx)
}

func TestWS_ResetWhileStreaming(t *testing.T) {
	svc := &stallingService{reset: make(chan struct{})}
	conn := dialWS(t, svc)

	content := "hi"
	if err := conn.WriteJSON(types.ChatRequest{Content: &content}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var u types.Update
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read: %v", err)
	}
	if u.IsFinished || len(u.Messages) != 1 {
		t.Fatalf("first update=%+v", u)
	}

	// The reply is still open; the empty frame must be acted on now.
	if err := conn.WriteJSON(types.ChatRequest{}); err != nil {
		t.Fatalf("write reset: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	u = types.Update{}
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read reset: %v", err)
	}
	if !u.IsFinished || len(u.Messages) != 0 {
		t.Fatalf("reset update=%+v", u)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.resets != 1 {
		t.Fatalf("resets=%d", svc.resets)
	}
}

func TestCheckWSOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://host.example/ws", nil)
	r.Header.Set("Origin", "http://host.example")
	if !checkWSOrigin(r) {
		t.Fatalf("same origin rejected")
	}
	r.Header.Set("Origin", "http://evil.example")
	if checkWSOrigin(r) {
		t.Fatalf("foreign origin accepted")
	}
}
