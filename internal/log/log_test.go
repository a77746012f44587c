package log

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToConsoleAtInfoLevel(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestNewWritesRotatedFileWhenConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	l, err := New(Config{FilePath: path, Level: "debug"})
	require.NoError(t, err)

	l.Info("hello")
	require.NoError(t, l.Sync())
	require.FileExists(t, path)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level"})
	require.Error(t, err)
}
