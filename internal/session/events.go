package session

// Event represents a session lifecycle event.
// Minimal and stable: name + submission ID and optional fields.
type Event struct {
	Name         string
	SubmissionID string
	Fields       map[string]any
}

// Event names.
const (
	EventLoadStart      = "load_start"
	EventLoadStatus     = "load_status"
	EventLoadDone       = "load_done"
	EventLoadFailed     = "load_failed"
	EventGenerateStart  = "generate_start"
	EventGenerateDone   = "generate_done"
	EventGenerateFailed = "generate_failed"
	EventReset          = "reset"
)

// EventPublisher receives events from the session. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
