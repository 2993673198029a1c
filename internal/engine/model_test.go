package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"poolchat/internal/pool"
	"poolchat/internal/rpc"
	"poolchat/pkg/types"
)

type failingLoader struct{ progress []string }

func (l failingLoader) Load(ctx context.Context, status *StatusChannel) (Model, error) {
	for _, p := range l.progress {
		if err := status.Report(ctx, p); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("weights missing")
}

func drain(t *testing.T, src StatusSource) []string {
	t.Helper()
	ctx := testCtx(t)
	var out []string
	for {
		st, err := src.Next(ctx)
		require.NoError(t, err)
		if st.IsDone() {
			return out
		}
		out = append(out, st.Text)
	}
}

func TestStatusChannelSentinel(t *testing.T) {
	ctx := testCtx(t)
	c := NewStatusChannel()
	require.NoError(t, c.Report(ctx, "a"))
	c.Finish()
	c.Finish()

	s, err := c.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", s)
	s, err = c.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusSentinel, s)

	st, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, st.IsDone())
}

func TestStatusChannelNextHonorsContext(t *testing.T) {
	c := NewStatusChannel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStartLoadReportsFailureAsStatus(t *testing.T) {
	ctx := testCtx(t)
	ld := StartLoad(ctx, failingLoader{progress: []string{"Loading model: 1/2"}})

	require.Equal(t, []string{"Loading model: 1/2", "weights missing"}, drain(t, ld.Status()))
	m, err := ld.Wait(ctx)
	require.Nil(t, m)
	require.ErrorContains(t, err, "weights missing")
}

func TestRNNLoaderProducesWorkingModel(t *testing.T) {
	ctx := testCtx(t)
	l := RNNLoader{
		Pool:         pool.Config{Size: 3, Logger: zerolog.Nop()},
		Network:      NetworkConfig{Hidden: 16, Layers: 2, Seed: 1},
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
		MaxNewTokens: 8,
		Logger:       zerolog.Nop(),
	}
	ld := StartLoad(ctx, l)
	require.Equal(t, []string{"Loading model: 1/3", "Loading model: 2/3", "Loading model: 3/3"}, drain(t, ld.Status()))
	m, err := ld.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, m.(*Chat).Workers(), 3)
	t.Cleanup(func() {
		// Close releases the shards and tears the pool down once.
		require.NoError(t, m.Close())
		require.NoError(t, m.Close())
	})

	sys, _ := types.Message{Role: types.RoleSystem, Content: "You are a helpful chat assistant."}.Encode()
	user, _ := types.Message{Role: types.RoleUser, Content: "hi"}.Encode()
	require.NoError(t, m.SetPrefix(ctx, []string{sys, user}))
	require.False(t, m.IsFinished())

	var last []string
	for i := 0; !m.IsFinished(); i++ {
		require.Less(t, i, 8)
		last, err = m.Next(ctx)
		require.NoError(t, err)
	}
	require.Len(t, last, 3)
	reply, err := types.DecodeMessage(last[2])
	require.NoError(t, err)
	require.Equal(t, types.RoleAssistant, reply.Role)

	m.Clear()
	require.False(t, m.IsFinished())
	require.NoError(t, m.SetPrefix(ctx, []string{user}))
	_, err = m.Next(ctx)
	require.NoError(t, err)
}

func TestNetworkReleaseDropsShards(t *testing.T) {
	ctx := testCtx(t)
	p, err := pool.CreatePool(pool.Config{Size: 2, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer p.Close()

	status := NewStatusChannel()
	go func() {
		for {
			if _, err := status.Next(ctx); err != nil {
				return
			}
		}
	}()
	l := RNNLoader{Network: NetworkConfig{Hidden: 8, Layers: 1, Seed: 1}, Logger: zerolog.Nop()}
	net, err := l.upload(ctx, p, status)
	require.NoError(t, err)
	_, err = net.Forward(ctx, 'a')
	require.NoError(t, err)

	require.NoError(t, net.Release(ctx))
	_, err = net.Forward(ctx, 'a')
	require.Error(t, err)
	require.True(t, rpc.IsRemote(err), "got %v", err)
}

func TestRNNLoaderRejectsEmptyNetwork(t *testing.T) {
	_, err := RNNLoader{Logger: zerolog.Nop()}.Load(testCtx(t), NewStatusChannel())
	require.Error(t, err)
}

func TestNewLoader(t *testing.T) {
	l, err := NewLoader(Config{Logger: zerolog.Nop()})
	require.NoError(t, err)
	rnn, ok := l.(RNNLoader)
	require.True(t, ok)
	require.Equal(t, DefaultHidden, rnn.Network.Hidden)
	require.Equal(t, DefaultTemperature, rnn.Temperature)

	_, err = NewLoader(Config{Backend: BackendLlama})
	require.Error(t, err)

	l, err = NewLoader(Config{Backend: "LLAMA", ModelPath: "/models/x.gguf"})
	require.NoError(t, err)
	require.Equal(t, DefaultContextSize, l.(LlamaLoader).ContextSize)

	_, err = NewLoader(Config{Backend: "gpt"})
	require.Error(t, err)
}
