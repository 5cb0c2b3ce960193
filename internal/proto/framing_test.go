package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestChomp_LF(t *testing.T) {
	assert.Equal(t, []byte("hello"), Chomp([]byte("hello\n")))
}

func TestChomp_CRLF(t *testing.T) {
	assert.Equal(t, []byte("hello"), Chomp([]byte("hello\r\n")))
}

func TestChomp_NoTerminator(t *testing.T) {
	assert.Equal(t, []byte("hello"), Chomp([]byte("hello")))
}

func TestChomp_BareCR(t *testing.T) {
	// A carriage return not followed by a line feed is payload.
	assert.Equal(t, []byte("hello\r"), Chomp([]byte("hello\r")))
}

func TestChomp_Empty(t *testing.T) {
	assert.Empty(t, Chomp([]byte{}))
	assert.Empty(t, Chomp(nil))
}

func TestChomp_OnlyTerminator(t *testing.T) {
	assert.Empty(t, Chomp([]byte("\n")))
	assert.Empty(t, Chomp([]byte("\r\n")))
}

func TestChomp_InteriorCRLFKept(t *testing.T) {
	assert.Equal(t, []byte("a\r\nb"), Chomp([]byte("a\r\nb\r\n")))
}

// Property: chomping twice yields the same result as chomping once,
// for arbitrary byte sequences.
func TestPropertyChomp_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "input")
		once := Chomp(input)
		twice := Chomp(once)
		assert.Equal(t, once, twice)
	})
}

// Property: chomp removes at most two bytes and never alters the
// remaining prefix.
func TestPropertyChomp_PrefixPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "input")
		out := Chomp(input)
		assert.GreaterOrEqual(t, len(out), len(input)-2)
		assert.Equal(t, input[:len(out)], out)
	})
}
