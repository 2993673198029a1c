package httpapi

import (
	"encoding/json"
	"net/http"

	"poolchat/internal/host"
	"poolchat/internal/pool"
	"poolchat/internal/session"
	"poolchat/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case host.IsInputLocked(err), session.IsBusy(err):
		return http.StatusTooManyRequests
	case session.IsLoadFailed(err):
		return http.StatusServiceUnavailable
	case pool.IsProtocolViolation(err):
		return http.StatusInternalServerError
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
