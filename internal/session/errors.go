package session

import "errors"

// busyError signals a submission while another one is running.
type busyError struct{}

func (busyError) Error() string { return "session busy: a submission is in progress" }

// IsBusy reports whether err indicates a concurrent submission (429).
func IsBusy(err error) bool {
	var be busyError
	return errors.As(err, &be)
}

// loadFailedError wraps the error that made the model load fail. It is
// sticky: every later submission returns it.
type loadFailedError struct{ err error }

func (e loadFailedError) Error() string { return "model unavailable: " + e.err.Error() }

func (e loadFailedError) Unwrap() error { return e.err }

// IsLoadFailed reports whether err indicates the model could not be loaded
// (503).
func IsLoadFailed(err error) bool {
	var le loadFailedError
	return errors.As(err, &le)
}

// ErrClosed is returned by a closed session.
var ErrClosed = errors.New("session closed")
