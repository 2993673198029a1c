package pool

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"poolchat/internal/rpc"
	"poolchat/internal/transport"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// fakeWorker replies through a rpc.Server unless a hook for its index says
// otherwise.
type fakeWorker struct {
	// delay sleeps before serving.
	delay map[int]time.Duration
	// gate blocks serving until closed.
	gate map[int]chan struct{}
	// garbage replies with an undecodable payload.
	garbage map[int]bool
	// twice replies to every request two times.
	twice map[int]bool
}

func (f fakeWorker) spawn(i int, ep *transport.Endpoint, _ zerolog.Logger) error {
	srv := rpc.NewServer()
	return ep.OnReceive(func(payload []byte) {
		if d := f.delay[i]; d > 0 {
			time.Sleep(d)
		}
		if g := f.gate[i]; g != nil {
			<-g
		}
		out := srv.ServeSerialized(payload)
		if f.garbage[i] {
			out = []byte{0xc1}
		}
		_ = ep.Send(out)
		if f.twice[i] {
			_ = ep.Send(out)
		}
	})
}

func newTestPool(t *testing.T, size int, f fakeWorker) *Pool {
	t.Helper()
	p, err := CreatePool(Config{Size: size, Spawn: f.spawn, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func echoAll(n int) []rpc.Request {
	reqs := make([]rpc.Request, n)
	for i := range reqs {
		reqs[i] = rpc.EchoRequest([]byte{byte(i)})
	}
	return reqs
}
