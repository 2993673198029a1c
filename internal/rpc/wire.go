// Package rpc defines the linear-algebra service that runs inside each pool
// worker: the request/response wire types, their msgpack encoding, the
// per-worker weight store and the serving loop bound to a transport
// endpoint.
package rpc

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"poolchat/internal/linalg"
)

// Kind discriminates request and response payloads.
type Kind uint8

const (
	KindEcho Kind = iota + 1
	KindAddLinear
	KindRemoveLinear
	KindForward
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEcho:
		return "echo"
	case KindAddLinear:
		return "add_linear"
	case KindRemoveLinear:
		return "remove_linear"
	case KindForward:
		return "forward"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Request is one call to a worker.
type Request struct {
	Kind Kind   `msgpack:"k"`
	Name string `msgpack:"n,omitempty"`
	// AddLinear: weight shard, Rows×Cols row-major.
	Rows int       `msgpack:"r,omitempty"`
	Cols int       `msgpack:"c,omitempty"`
	Data []float32 `msgpack:"d,omitempty"`
	// Forward: input row vector.
	X []float32 `msgpack:"x,omitempty"`
	// Echo: opaque bytes returned as-is.
	Echo []byte `msgpack:"e,omitempty"`
}

// Response is a worker's reply to exactly one Request.
type Response struct {
	Kind   Kind      `msgpack:"k"`
	Output []float32 `msgpack:"o,omitempty"`
	Echo   []byte    `msgpack:"e,omitempty"`
	Error  string    `msgpack:"err,omitempty"`
}

// Err converts an error response into a Go error.
func (r Response) Err() error {
	if r.Kind == KindError {
		return remoteError{msg: r.Error}
	}
	return nil
}

// remoteError is a failure reported by the worker itself.
type remoteError struct{ msg string }

func (e remoteError) Error() string { return "worker: " + e.msg }

// IsRemote reports whether err was produced by a worker error response.
func IsRemote(err error) bool {
	var re remoteError
	return errors.As(err, &re)
}

// EchoRequest builds an echo call.
func EchoRequest(data []byte) Request { return Request{Kind: KindEcho, Echo: data} }

// AddLinearRequest uploads m under name.
func AddLinearRequest(name string, m linalg.Matrix) Request {
	return Request{Kind: KindAddLinear, Name: name, Rows: m.Rows, Cols: m.Cols, Data: m.Data}
}

// RemoveLinearRequest drops the shard stored under name.
func RemoveLinearRequest(name string) Request {
	return Request{Kind: KindRemoveLinear, Name: name}
}

// ForwardRequest multiplies the shard stored under name by x.
func ForwardRequest(name string, x []float32) Request {
	return Request{Kind: KindForward, Name: name, X: x}
}

// EncodeRequest serializes r for the transport.
func EncodeRequest(r Request) ([]byte, error) {
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", r.Kind, err)
	}
	return b, nil
}

// DecodeRequest parses a payload produced by EncodeRequest.
func DecodeRequest(b []byte) (Request, error) {
	var r Request
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if r.Kind < KindEcho || r.Kind > KindForward {
		return Request{}, fmt.Errorf("decode request: unknown kind %s", r.Kind)
	}
	return r, nil
}

// EncodeResponse serializes r for the transport.
func EncodeResponse(r Response) ([]byte, error) {
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", r.Kind, err)
	}
	return b, nil
}

// DecodeResponse parses a payload produced by EncodeResponse.
func DecodeResponse(b []byte) (Response, error) {
	var r Response
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if r.Kind < KindEcho || r.Kind > KindError {
		return Response{}, fmt.Errorf("decode response: unknown kind %s", r.Kind)
	}
	return r, nil
}
