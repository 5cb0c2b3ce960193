package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chatserver/internal/config"
	"github.com/cory-johannsen/chatserver/internal/proto"
	"github.com/cory-johannsen/chatserver/internal/testutil"
)

// echoHandler replies to each line with an "echo:" system line.
type echoHandler struct{}

func (echoHandler) HandleSession(ctx context.Context, conn *Conn) error {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return nil
		}
		if err := conn.WriteString("echo: " + line + "\n"); err != nil {
			return err
		}
	}
}

// holdHandler parks the session until the acceptor shuts down.
type holdHandler struct{}

func (holdHandler) HandleSession(ctx context.Context, conn *Conn) error {
	<-ctx.Done()
	return nil
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func startAcceptor(t *testing.T, limits proto.Limits, handler SessionHandler) *Acceptor {
	t.Helper()
	acc := NewAcceptor(testServerConfig(), limits, handler, zap.NewNop())

	go func() {
		_ = acc.ListenAndServe()
	}()
	t.Cleanup(acc.Stop)

	require.Eventually(t, func() bool {
		return acc.Addr() != ""
	}, 2*time.Second, 10*time.Millisecond, "acceptor never started listening")

	return acc
}

func TestAcceptor_ServesSession(t *testing.T) {
	acc := startAcceptor(t, proto.DefaultLimits, echoHandler{})

	client := testutil.NewLineClient(t, acc.Addr())
	client.Send("hello")
	out := client.ReadUntil("echo: hello", 2*time.Second)
	assert.Contains(t, out, "echo: hello")
}

func TestAcceptor_MultipleClients(t *testing.T) {
	acc := startAcceptor(t, proto.DefaultLimits, echoHandler{})

	a := testutil.NewLineClient(t, acc.Addr())
	b := testutil.NewLineClient(t, acc.Addr())

	a.Send("from a")
	b.Send("from b")
	assert.Contains(t, a.ReadUntil("echo: from a", 2*time.Second), "echo: from a")
	assert.Contains(t, b.ReadUntil("echo: from b", 2*time.Second), "echo: from b")
}

func TestAcceptor_RejectsOverCapacity(t *testing.T) {
	limits := proto.DefaultLimits
	limits.MaxClients = 1
	acc := startAcceptor(t, limits, holdHandler{})

	_ = testutil.NewLineClient(t, acc.Addr())
	require.Eventually(t, func() bool {
		return acc.ActiveClients() == 1
	}, 2*time.Second, 10*time.Millisecond)

	second := testutil.NewLineClient(t, acc.Addr())
	out := second.ReadUntil("server is full", 2*time.Second)
	assert.Contains(t, out, "* server is full, try again later\n")
}

func TestAcceptor_SlotReleasedOnDisconnect(t *testing.T) {
	limits := proto.DefaultLimits
	limits.MaxClients = 1
	acc := startAcceptor(t, limits, echoHandler{})

	first := testutil.NewLineClient(t, acc.Addr())
	require.Eventually(t, func() bool {
		return acc.ActiveClients() == 1
	}, 2*time.Second, 10*time.Millisecond)
	first.Close()

	require.Eventually(t, func() bool {
		return acc.ActiveClients() == 0
	}, 2*time.Second, 10*time.Millisecond)

	second := testutil.NewLineClient(t, acc.Addr())
	second.Send("hi")
	assert.Contains(t, second.ReadUntil("echo: hi", 2*time.Second), "echo: hi")
}

func TestAcceptor_StopIsIdempotent(t *testing.T) {
	acc := startAcceptor(t, proto.DefaultLimits, echoHandler{})
	acc.Stop()
	acc.Stop()
	assert.False(t, acc.IsRunning())
}
