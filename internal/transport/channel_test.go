package transport

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairDeliversInSendOrder(t *testing.T) {
	ctx := testCtx(t)
	a, b := Pair(4)
	defer a.Close()

	const n = 500
	got := make(chan uint32, n)
	require.NoError(t, b.OnReceive(func(p []byte) {
		got <- binary.LittleEndian.Uint32(p)
	}))

	go func() {
		for i := uint32(0); i < n; i++ {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, i)
			if err := a.Send(buf); err != nil {
				return
			}
		}
	}()

	for i := uint32(0); i < n; i++ {
		select {
		case v := <-got:
			require.Equal(t, i, v, "payload %d delivered out of order", i)
		case <-ctx.Done():
			t.Fatalf("timed out after %d payloads", i)
		}
	}
}

func TestPairIsBidirectional(t *testing.T) {
	ctx := testCtx(t)
	host, worker := Pair(0)
	defer host.Close()

	require.NoError(t, worker.OnReceive(func(p []byte) {
		_ = worker.Send(append([]byte("echo:"), p...))
	}))
	replies := make(chan string, 1)
	require.NoError(t, host.OnReceive(func(p []byte) { replies <- string(p) }))

	require.NoError(t, host.Send([]byte("ping")))
	select {
	case r := <-replies:
		require.Equal(t, "echo:ping", r)
	case <-ctx.Done():
		t.Fatal("no reply")
	}
	require.Equal(t, host.ID(), worker.ID())
}

func TestHandlerNeverRunsOnSenderGoroutine(t *testing.T) {
	ctx := testCtx(t)
	a, b := Pair(1)
	defer a.Close()

	var mu sync.Mutex
	mu.Lock()
	delivered := make(chan struct{})
	require.NoError(t, b.OnReceive(func([]byte) {
		// Blocks until the sender has returned from Send, which would
		// deadlock if delivery were synchronous.
		mu.Lock()
		mu.Unlock()
		close(delivered)
	}))
	require.NoError(t, a.Send([]byte("x")))
	mu.Unlock()
	select {
	case <-delivered:
	case <-ctx.Done():
		t.Fatal("payload not delivered")
	}
}

func TestOnReceiveOnlyOnce(t *testing.T) {
	a, b := Pair(1)
	defer a.Close()
	require.NoError(t, b.OnReceive(func([]byte) {}))
	require.ErrorIs(t, b.OnReceive(func([]byte) {}), ErrHandlerSet)
	require.Error(t, a.OnReceive(nil))
}

func TestSendAfterClose(t *testing.T) {
	ctx := testCtx(t)
	a, b := Pair(1)
	require.NoError(t, b.OnReceive(func([]byte) {}))
	require.NoError(t, b.Close())
	require.ErrorIs(t, a.Send([]byte("late")), ErrClosed)
	select {
	case <-b.Done():
	case <-ctx.Done():
		t.Fatal("delivery goroutine did not exit")
	}
	// Closing twice is harmless.
	require.NoError(t, a.Close())
}

func TestPairRaisesTinyCapacity(t *testing.T) {
	ctx := testCtx(t)
	require.NotPanics(t, func() {
		a, b := Pair(1)
		_ = a.Close()
		_ = b.Close()
	})

	a, b := Pair(1)
	defer a.Close()
	// MinCapacity payloads fit before anyone is receiving.
	for i := 0; i < MinCapacity; i++ {
		require.NoError(t, a.Send([]byte{byte(i)}))
	}
	got := make(chan byte, MinCapacity)
	require.NoError(t, b.OnReceive(func(p []byte) { got <- p[0] }))
	for i := 0; i < MinCapacity; i++ {
		select {
		case v := <-got:
			require.Equal(t, byte(i), v)
		case <-ctx.Done():
			t.Fatalf("payload %d not delivered", i)
		}
	}
}
