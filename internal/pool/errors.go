package pool

import (
	"errors"
	"fmt"
)

// protocolViolationError signals a broken single-outstanding-call discipline:
// a dispatch while a call is outstanding, a reply overwriting an unconsumed
// reply, or a reply nobody asked for.
type protocolViolationError struct {
	worker int
	reason string
}

func (e protocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation on worker %d: %s", e.worker, e.reason)
}

// IsProtocolViolation reports whether err indicates a programming error in
// how the pool was driven.
func IsProtocolViolation(err error) bool {
	var pv protocolViolationError
	return errors.As(err, &pv)
}

// decodeError signals a reply that could not be decoded.
type decodeError struct {
	worker int
	err    error
}

func (e decodeError) Error() string {
	return fmt.Sprintf("worker %d: malformed reply: %v", e.worker, e.err)
}

func (e decodeError) Unwrap() error { return e.err }

// IsDecode reports whether err was caused by a malformed worker reply.
func IsDecode(err error) bool {
	var de decodeError
	return errors.As(err, &de)
}

// ErrPoolClosed is returned by operations on a closed pool.
var ErrPoolClosed = errors.New("pool closed")

// IsPoolClosed reports whether err indicates the pool was closed.
func IsPoolClosed(err error) bool { return errors.Is(err, ErrPoolClosed) }

// errAlreadyAwaited is returned when a Call is awaited or abandoned twice.
var errAlreadyAwaited = errors.New("call already consumed")
