package rpc

import (
	"github.com/rs/zerolog"

	"poolchat/internal/linalg"
	"poolchat/internal/transport"
)

// Server answers requests against a LinearStore.
type Server struct {
	store *LinearStore
}

func NewServer() *Server { return &Server{store: NewLinearStore()} }

// Store exposes the underlying store.
func (s *Server) Store() *LinearStore { return s.store }

// ServeSerialized decodes one request, serves it and returns the encoded
// response. Malformed requests and failures are answered with an error
// response so the caller's pending call always resolves.
func (s *Server) ServeSerialized(payload []byte) []byte {
	req, err := DecodeRequest(payload)
	var resp Response
	if err != nil {
		resp = Response{Kind: KindError, Error: err.Error()}
	} else {
		resp = s.Serve(req)
	}
	out, err := EncodeResponse(resp)
	if err != nil {
		out, _ = EncodeResponse(Response{Kind: KindError, Error: err.Error()})
	}
	return out
}

// Serve executes req.
func (s *Server) Serve(req Request) Response {
	switch req.Kind {
	case KindEcho:
		return Response{Kind: KindEcho, Echo: req.Echo}
	case KindAddLinear:
		m, err := linalg.New(req.Rows, req.Cols, req.Data)
		if err != nil {
			return errorResponse(err)
		}
		s.store.Add(req.Name, m)
		return Response{Kind: KindAddLinear}
	case KindRemoveLinear:
		if err := s.store.Remove(req.Name); err != nil {
			return errorResponse(err)
		}
		return Response{Kind: KindRemoveLinear}
	case KindForward:
		out, err := s.store.Forward(req.Name, req.X)
		if err != nil {
			return errorResponse(err)
		}
		return Response{Kind: KindForward, Output: out}
	}
	return Response{Kind: KindError, Error: "unsupported request " + req.Kind.String()}
}

func errorResponse(err error) Response {
	return Response{Kind: KindError, Error: err.Error()}
}

// Worker binds a Server to the worker side of a transport pair. Requests are
// served one at a time on the endpoint's delivery goroutine, which is the
// worker's only execution context.
type Worker struct {
	ep     *transport.Endpoint
	server *Server
	log    zerolog.Logger
}

// StartWorker registers the serving handler on ep and returns immediately.
func StartWorker(ep *transport.Endpoint, log zerolog.Logger) (*Worker, error) {
	w := &Worker{ep: ep, server: NewServer(), log: log}
	if err := ep.OnReceive(w.handle); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Worker) handle(payload []byte) {
	out := w.server.ServeSerialized(payload)
	if err := w.ep.Send(out); err != nil {
		w.log.Debug().Err(err).Msg("worker reply dropped")
	}
}

// Stop closes the worker's endpoint.
func (w *Worker) Stop() error { return w.ep.Close() }
