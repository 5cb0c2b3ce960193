package chat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMotd_EmptyPathUsesDefault(t *testing.T) {
	lines, err := LoadMotd("")
	require.NoError(t, err)
	assert.Equal(t, defaultMotd, lines)
}

func TestLoadMotd_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "motd.yaml")
	err := os.WriteFile(path, []byte("lines:\n  - welcome aboard\n  - be kind\n"), 0o644)
	require.NoError(t, err)

	lines, err := LoadMotd(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome aboard", "be kind"}, lines)
}

func TestLoadMotd_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "motd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lines: []\n"), 0o644))

	lines, err := LoadMotd(path)
	require.NoError(t, err)
	assert.Equal(t, defaultMotd, lines)
}

func TestLoadMotd_MissingFile(t *testing.T) {
	_, err := LoadMotd("/nonexistent/motd.yaml")
	assert.Error(t, err)
}

func TestLoadMotd_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "motd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lines: [unclosed\n"), 0o644))

	_, err := LoadMotd(path)
	assert.Error(t, err)
}
