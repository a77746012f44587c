package journal

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "journal")
	j, err := New(path)
	require.NoError(t, err)
	created, err := j.CreateEmpty()
	require.NoError(t, err)
	require.True(t, created)
	return j, path
}

func TestJournalDedupInvariant(t *testing.T) {
	// spec.md §8 scenario 1.
	j, _ := newTestJournal(t)

	appendOrDrop := func(key, value string) {
		t.Helper()
		if value == "drop" {
			require.NoError(t, j.Drop([]string{key}, true))
			return
		}
		require.NoError(t, j.Append(key, value, true))
	}

	appendOrDrop("a", "0")
	appendOrDrop("a", "256")
	appendOrDrop("b", "0")
	appendOrDrop("c", "drop")
	appendOrDrop("d", "0")
	appendOrDrop("b", "200")
	appendOrDrop("a", "354")
	appendOrDrop("c", "0")
	appendOrDrop("b", "drop")
	appendOrDrop("d", "56")

	got := j.Records()
	want := []Record{
		{Key: "a", Value: "354"},
		{Key: "d", Value: "56"},
		{Key: "c", Value: "0"},
	}
	require.Equal(t, want, got)
}

func TestJournalRecordsInInsertionOrderNoDuplicates(t *testing.T) {
	j, _ := newTestJournal(t)
	require.NoError(t, j.Append("x", "1", true))
	require.NoError(t, j.Append("y", "2", true))
	require.NoError(t, j.Append("z", "3", true))

	require.Equal(t, []Record{
		{Key: "x", Value: "1"},
		{Key: "y", Value: "2"},
		{Key: "z", Value: "3"},
	}, j.Records())
}

func TestJournalAppendReloadIsIdempotent(t *testing.T) {
	j, path := newTestJournal(t)
	require.NoError(t, j.Append("a", "1", true))
	require.NoError(t, j.Append("b", "2", true))
	require.NoError(t, j.Append("a", "3", true))

	before := j.Records()

	j2, err := New(path)
	require.NoError(t, err)
	require.NoError(t, j2.Load(false))
	require.Equal(t, before, j2.Records())
}

func TestJournalLineCRCMatchesRemainder(t *testing.T) {
	j, path := newTestJournal(t)
	require.NoError(t, j.Append("k", "v", true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	parts := strings.SplitN(line, "\t", 2)
	require.Len(t, parts, 2)

	var check uint32
	_, err = fmt.Sscanf(parts[0], "%08x", &check)
	require.NoError(t, err)
	require.Equal(t, crc32.ChecksumIEEE([]byte(parts[1])), check)
}

func TestJournalRecoverSkipsCorruption(t *testing.T) {
	j, path := newTestJournal(t)
	require.NoError(t, j.Append("a", "1", true))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not-a-valid-line-at-all\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	j2, err := New(path)
	require.NoError(t, err)
	require.NoError(t, j2.Load(true))
	require.Equal(t, []Record{{Key: "a", Value: "1"}}, j2.Records())

	j3, err := New(path)
	require.NoError(t, err)
	require.Error(t, j3.Load(false))
}

func TestJournalRejectsInvalidRecords(t *testing.T) {
	j, _ := newTestJournal(t)
	require.Error(t, j.Append("bad\tkey", "v", true))
	require.Error(t, j.Append("k", "bad\nvalue", true))
	require.Error(t, j.Append("k", "drop", true))
}

func TestJournalCompactsOnFlush(t *testing.T) {
	dir := t.TempDir()
	j, err := New(filepath.Join(dir, "journal"), WithDuplicatesFactor(1.5), WithMinimalRewriteSize(1))
	require.NoError(t, err)
	_, err = j.CreateEmpty()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append("a", fmt.Sprintf("%d", i), true))
	}
	require.Equal(t, []Record{{Key: "a", Value: "4"}}, j.Records())
	require.NoError(t, j.CheckConsistent())
}
