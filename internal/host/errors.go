package host

import "errors"

// inputLockedError signals a submission while input is disabled.
type inputLockedError struct{ reason string }

func (e inputLockedError) Error() string { return "input locked: " + e.reason }

// IsInputLocked reports whether err indicates input is disabled (429).
func IsInputLocked(err error) bool {
	var le inputLockedError
	return errors.As(err, &le)
}
