package journal

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeWriterCommitAsComputesDigest(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSafeWriter(dir, "data.tmp")
	require.NoError(t, err)

	payload := []byte("hello, safe writer\n")
	_, err = w.Write(payload)
	require.NoError(t, err)

	digest, size, err := w.Finalize()
	require.NoError(t, err)
	require.EqualValues(t, len(payload), size)

	want := fmt.Sprintf("%x", sha1.Sum(payload))
	require.Equal(t, want, digest)

	target := filepath.Join(dir, digest)
	require.NoError(t, w.CommitAs(target))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	_, err = os.Stat(filepath.Join(dir, "data.tmp"))
	require.True(t, os.IsNotExist(err))
}

func TestSafeWriterResetDeletesTemp(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSafeWriter(dir, "data.tmp")
	require.NoError(t, err)
	_, err = w.Write([]byte("abandoned"))
	require.NoError(t, err)

	require.NoError(t, w.Reset())

	_, err = os.Stat(filepath.Join(dir, "data.tmp"))
	require.True(t, os.IsNotExist(err))
}
