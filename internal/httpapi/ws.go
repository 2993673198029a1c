package httpapi

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"poolchat/pkg/types"
)

const wsWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkWSOrigin,
}

// checkWSOrigin accepts same-origin requests, and any configured CORS origin.
func checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if corsEnabled && (slices.Contains(corsAllowedOrigins, "*") || slices.Contains(corsAllowedOrigins, origin)) {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

// wsHandler carries the same ChatRequest as /chat, one per text frame, and
// answers with one Update per frame. A request with neither messages nor
// content resets the conversation, also while a reply is still streaming.
func wsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			logRequest(r, requestLogLevel(r), http.StatusBadRequest, "websocket upgrade failed", err)
			return
		}
		wsConnections.Inc()
		defer wsConnections.Dec()
		defer raw.Close()
		conn := &wsConn{conn: raw}

		ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
		defer cancel()
		raw.SetReadLimit(maxBodyBytes)

		frames := make(chan types.ChatRequest)
		readErr := make(chan error, 1)
		go func() {
			for {
				var req types.ChatRequest
				if err := raw.ReadJSON(&req); err != nil {
					readErr <- err
					return
				}
				select {
				case frames <- req:
				case <-ctx.Done():
					return
				}
			}
		}()

		// updates is nil while no reply is streaming.
		var updates <-chan types.Update
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-readErr:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
					logRequest(r, requestLogLevel(r), http.StatusBadRequest, "websocket read", err)
				}
				return
			case u, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				if err := conn.writeJSON(u); err != nil {
					return
				}
			case req := <-frames:
				if submitLimiter != nil && !submitLimiter.Allow() {
					IncrementBackpressure("rate_limit")
					_ = conn.writeJSON(types.ErrorResponse{Error: "rate limit exceeded", Code: http.StatusTooManyRequests})
					continue
				}
				if req.Content == nil && len(req.Messages) == 0 {
					u, err := svc.Reset(ctx)
					if err != nil {
						_ = conn.writeJSON(types.ErrorResponse{Error: err.Error(), Code: statusFor(err)})
						continue
					}
					// The abandoned stream closes without a finished update.
					updates = nil
					if err := conn.writeJSON(u); err != nil {
						return
					}
					continue
				}

				var next <-chan types.Update
				if req.Content != nil {
					next, err = svc.Submit(ctx, *req.Content)
				} else {
					next, err = svc.SubmitConversation(ctx, req.Messages)
				}
				if err != nil {
					status := statusFor(err)
					if status == http.StatusTooManyRequests {
						IncrementBackpressure("input_locked")
					}
					_ = conn.writeJSON(types.ErrorResponse{Error: err.Error(), Code: status})
					continue
				}
				updates = next
			}
		}
	}
}
