package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poolchat/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	// SubmitConversation submits a full conversation snapshot.
	SubmitConversation(ctx context.Context, msgs []types.Message) (<-chan types.Update, error)
	// Submit appends one user turn to the current conversation.
	Submit(ctx context.Context, text string) (<-chan types.Update, error)
	Reset(ctx context.Context) (types.Update, error)
	Status() types.StatusResponse
	Ready() bool
}

func requestID(r *http.Request) string { return middleware.GetReqID(r.Context()) }

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer, metrics
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(inflightMiddleware)

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.With(rateLimitMiddleware).Post("/chat", chatHandler(svc))

	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Reset(r.Context())
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	})

	r.With(rateLimitMiddleware).Get("/ws", wsHandler(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// chatHandler streams the updates of one submission as NDJSON.
//
// @Summary      Submit a conversation turn
// @Description  Streams {messages, is_finished} updates as NDJSON until the reply is finished.
// @Tags         chat
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request  body      types.ChatRequest  true  "Conversation or single user turn"
// @Success      200      {object}  types.Update
// @Failure      400      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /chat [post]
func chatHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Content == nil && len(req.Messages) == 0 {
			writeJSONError(w, http.StatusBadRequest, "messages or content is required")
			return
		}
		for _, m := range req.Messages {
			if !m.Role.Valid() {
				writeJSONError(w, http.StatusBadRequest, "invalid role "+string(m.Role))
				return
			}
		}

		lvl := requestLogLevel(r)
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
		defer cancel()

		var (
			updates <-chan types.Update
			err     error
		)
		if req.Content != nil {
			updates, err = svc.Submit(ctx, *req.Content)
		} else {
			updates, err = svc.SubmitConversation(ctx, req.Messages)
		}
		if err != nil {
			status := statusFor(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("input_locked")
			}
			writeJSONError(w, status, err.Error())
			logRequest(r, lvl, status, "chat rejected", err)
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		writer := io.Writer(w)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(w, &loggingLineWriter{})
		}
		enc := json.NewEncoder(writer)
		n := 0
		for u := range updates {
			if err := enc.Encode(u); err != nil {
				cancel()
				continue
			}
			n++
			if flush != nil {
				flush()
			}
		}
		logRequest(r, lvl, http.StatusOK, "chat end", nil)
		if zlog != nil && lvl >= LevelDebug {
			zlog.Debug().Int("updates", n).Str("request_id", requestID(r)).Msg("chat stream closed")
		}
	}
}
