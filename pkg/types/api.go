package types

// ChatRequest is the body of POST /chat. Either Messages (a full
// conversation snapshot) or Content (one user turn appended to the current
// conversation) must be set.
type ChatRequest struct {
	// Full conversation snapshot; replaces the server-side conversation.
	Messages []Message `json:"messages,omitempty"`
	// Single user turn appended to the current conversation.
	// example: Write a haiku about the ocean.
	Content *string `json:"content,omitempty" example:"Write a haiku about the ocean."`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// WorkerStatus summarizes one worker handle for /status.
type WorkerStatus struct {
	// Index of the worker in the pool.
	// example: 0
	Index int `json:"index" example:"0"`
	// Whether a call to this worker is currently outstanding.
	// example: false
	Inflight bool `json:"inflight" example:"false"`
	// Whether the outstanding call was abandoned by its caller and is draining.
	// example: false
	Draining bool `json:"draining" example:"false"`
	// Total calls dispatched to this worker.
	// example: 1024
	Calls uint64 `json:"calls" example:"1024"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Session state: idle, loading, generating, finished.
	// example: generating
	State string `json:"state" example:"generating"`
	// Whether the worker pool and weights are loaded.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Whether the host accepts a new submission right now.
	// example: true
	InputEnabled bool `json:"input_enabled" example:"true"`
	// Result of the cached resource probe.
	// example: true
	ResourcesOK bool `json:"resources_ok" example:"true"`
	// Number of messages in the current conversation.
	// example: 4
	Messages int `json:"messages" example:"4"`
	// Workers in the pool (empty until loaded).
	Workers []WorkerStatus `json:"workers"`
	// Last error observed by the session, if any.
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}
