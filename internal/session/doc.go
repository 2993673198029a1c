// Package session drives one chat conversation over an engine.Model.
//
// The model is loaded lazily by the first submission; load progress is
// streamed to the caller as a synthetic Assistant message. Each submission
// then prepends the system prompt, sets the prefix and emits one update per
// generation step until the model reports it is finished. Reset cancels the
// active submission and clears the model's cached context without reloading.
//
// Files:
//   - session.go: Session, Config, Submit, Reset, Status.
//   - state.go: State.
//   - errors.go: error types and predicates (IsBusy, IsLoadFailed).
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
package session
