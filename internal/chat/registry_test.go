package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/chatserver/internal/proto"
)

func newTestRegistry() *Registry {
	return NewRegistry(proto.DefaultLimits)
}

func TestRegistry_Join(t *testing.T) {
	r := newTestRegistry()
	c, err := r.Join("Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Name())
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_JoinDuplicateName(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Join("Alice")
	require.NoError(t, err)

	_, err = r.Join("Alice")
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_JoinFull(t *testing.T) {
	limits := proto.DefaultLimits
	limits.MaxClients = 2
	r := NewRegistry(limits)

	_, err := r.Join("a")
	require.NoError(t, err)
	_, err = r.Join("b")
	require.NoError(t, err)

	_, err = r.Join("c")
	assert.ErrorIs(t, err, ErrServerFull)
}

func TestRegistry_Leave(t *testing.T) {
	r := newTestRegistry()
	c, err := r.Join("Alice")
	require.NoError(t, err)

	r.Leave(c)
	assert.Equal(t, 0, r.Count())

	// Channel is closed so the writer goroutine can drain out.
	_, open := <-c.Outbound()
	assert.False(t, open)

	// Name is free again.
	_, err = r.Join("Alice")
	assert.NoError(t, err)
}

func TestRegistry_LeaveTwice(t *testing.T) {
	r := newTestRegistry()
	c, err := r.Join("Alice")
	require.NoError(t, err)
	r.Leave(c)
	r.Leave(c)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_Rename(t *testing.T) {
	r := newTestRegistry()
	c, err := r.Join("Alice")
	require.NoError(t, err)

	require.NoError(t, r.Rename(c, "Alicia"))
	assert.Equal(t, "Alicia", c.Name())

	// Old name freed, new name claimed.
	_, found := r.Lookup("Alice")
	assert.False(t, found)
	got, found := r.Lookup("Alicia")
	require.True(t, found)
	assert.Equal(t, c.ID(), got.ID())
}

func TestRegistry_RenameTaken(t *testing.T) {
	r := newTestRegistry()
	a, err := r.Join("Alice")
	require.NoError(t, err)
	_, err = r.Join("Bob")
	require.NoError(t, err)

	assert.ErrorIs(t, r.Rename(a, "Bob"), ErrNameTaken)
	assert.Equal(t, "Alice", a.Name())
}

func TestRegistry_RenameToSelf(t *testing.T) {
	r := newTestRegistry()
	a, err := r.Join("Alice")
	require.NoError(t, err)
	assert.NoError(t, r.Rename(a, "Alice"))
}

func TestRegistry_Broadcast(t *testing.T) {
	r := newTestRegistry()
	a, err := r.Join("Alice")
	require.NoError(t, err)
	b, err := r.Join("Bob")
	require.NoError(t, err)

	line := []byte("Alice: hi\n")
	delivered := r.Broadcast(line, a)
	assert.Equal(t, 1, delivered)

	assert.Equal(t, line, <-b.Outbound())
	select {
	case got := <-a.Outbound():
		t.Fatalf("sender should not receive its own broadcast, got %q", got)
	default:
	}
}

func TestRegistry_BroadcastNoExclusion(t *testing.T) {
	r := newTestRegistry()
	a, err := r.Join("Alice")
	require.NoError(t, err)
	b, err := r.Join("Bob")
	require.NoError(t, err)

	delivered := r.Broadcast([]byte("* ping\n"), nil)
	assert.Equal(t, 2, delivered)
	assert.NotNil(t, <-a.Outbound())
	assert.NotNil(t, <-b.Outbound())
}

func TestRegistry_BroadcastSkipsFullBuffers(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Join("Alice")
	require.NoError(t, err)
	b, err := r.Join("Bob")
	require.NoError(t, err)

	for i := 0; i < outboundBuffer; i++ {
		require.NoError(t, b.send([]byte("x\n")))
	}

	// Bob's buffer is full; only Alice gets the line.
	delivered := r.Broadcast([]byte("* hello\n"), nil)
	assert.Equal(t, 1, delivered)
}

func TestRegistry_SendTo(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Join("Alice")
	require.NoError(t, err)
	b, err := r.Join("Bob")
	require.NoError(t, err)

	line := []byte("[Alice->Bob] hi\n")
	require.NoError(t, r.SendTo("Bob", line))
	assert.Equal(t, line, <-b.Outbound())
}

func TestRegistry_SendToUnknown(t *testing.T) {
	r := newTestRegistry()
	assert.ErrorIs(t, r.SendTo("Nobody", []byte("x\n")), ErrNotFound)
}

func TestRegistry_SendToDeparted(t *testing.T) {
	r := newTestRegistry()
	b, err := r.Join("Bob")
	require.NoError(t, err)
	r.Leave(b)
	assert.ErrorIs(t, r.SendTo("Bob", []byte("x\n")), ErrNotFound)
}

func TestRegistry_Names(t *testing.T) {
	r := newTestRegistry()
	for _, name := range []string{"a", "b", "c"} {
		_, err := r.Join(name)
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, r.Names())
}

// Property: joining n distinct names yields n clients with distinct
// IDs, and every one is reachable by name.
func TestPropertyRegistry_DistinctJoins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newTestRegistry()
		n := rapid.IntRange(1, 50).Draw(t, "n")

		ids := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("user%d", i)
			c, err := r.Join(name)
			require.NoError(t, err)
			ids[c.ID()] = true
		}

		assert.Len(t, ids, n)
		assert.Equal(t, n, r.Count())
		for i := 0; i < n; i++ {
			_, found := r.Lookup(fmt.Sprintf("user%d", i))
			assert.True(t, found)
		}
	})
}
