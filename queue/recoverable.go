package queue

import (
	"bufio"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beeeon/gateway/journal"
	"github.com/beeeon/gateway/model"
)

const recoverTmpName = "recover.tmp"

// Recoverable wraps Journaled with a startup repair pass that recovers
// partially written or corrupted buffers before normal operation begins.
// Each repair step is individually idempotent — interrupting any of them
// leaves the strategy repairable by a subsequent run.
type Recoverable struct {
	*Journaled

	disableTmpDataRecovery bool
	disableBrokenRecovery  bool
	disableLostRecovery    bool
}

// RecoverableOption configures a Recoverable strategy.
type RecoverableOption func(*Recoverable)

func WithDisableTmpDataRecovery() RecoverableOption {
	return func(r *Recoverable) { r.disableTmpDataRecovery = true }
}

func WithDisableBrokenRecovery() RecoverableOption {
	return func(r *Recoverable) { r.disableBrokenRecovery = true }
}

func WithDisableLostRecovery() RecoverableOption {
	return func(r *Recoverable) { r.disableLostRecovery = true }
}

// NewRecoverable opens a Journaled strategy rooted at dir and immediately
// runs its recovery pass.
func NewRecoverable(dir string, opts []JournaledOption, ropts ...RecoverableOption) (*Recoverable, error) {
	j, err := NewJournaled(dir, opts...)
	if err != nil {
		return nil, err
	}
	r := &Recoverable{Journaled: j}
	for _, opt := range ropts {
		opt(r)
	}
	if err := r.Recover(); err != nil {
		return nil, err
	}
	return r, nil
}

// Recover runs the startup repair procedure described in §4.3: wipe
// recover.tmp, heal broken referenced buffers, recover data.tmp if
// present, and adopt orphaned-but-recent buffer files into the index.
func (r *Recoverable) Recover() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_ = os.Remove(filepath.Join(r.root, recoverTmpName))

	newest, err := r.recoverBrokenLocked()
	if err != nil {
		return err
	}

	if !r.disableTmpDataRecovery {
		n, err := r.recoverTmpDataLocked()
		if err != nil {
			return err
		}
		if n > newest {
			newest = n
		}
	}

	if !r.disableLostRecovery {
		if err := r.recoverLostLocked(newest); err != nil {
			return err
		}
	}

	r.reloadBuffersLocked()
	return nil
}

// recoverBrokenLocked verifies every buffer referenced from the index
// actually hashes to its own name. A broken buffer is repaired: valid
// entries are read into RAM, rewritten through SafeWriter under a new,
// correct digest, and the index reference is replaced with a
// drop-old/append-new pair. Returns the newest timestamp seen among
// repaired entries.
func (r *Recoverable) recoverBrokenLocked() (int64, error) {
	if r.disableBrokenRecovery {
		return 0, nil
	}

	var newest int64
	for _, rec := range r.index.Records() {
		hash := rec.Key
		path := r.bufferPath(hash)

		content, err := os.ReadFile(path)
		if err != nil {
			continue // missing buffer: nothing to repair here
		}

		actual := fmt.Sprintf("%x", sha1.Sum(content))
		if actual == hash {
			continue // valid, nothing to do
		}

		entries, _ := recoverEntriesFromBytes(content)
		for _, e := range entries {
			if e.Timestamp > newest {
				newest = e.Timestamp
			}
		}

		newDigest, err := r.writeRecoveredBuffer(entries)
		if err != nil {
			return newest, err
		}

		if err := r.index.Drop([]string{hash}, false); err != nil {
			return newest, err
		}
		if err := r.index.Append(newDigest, "0", true); err != nil {
			return newest, err
		}
		_ = os.Remove(path)
	}
	return newest, nil
}

// recoverTmpDataLocked parses whatever valid entries remain in data.tmp
// (left over from an interrupted Push) and commits them as a new buffer.
func (r *Recoverable) recoverTmpDataLocked() (int64, error) {
	tmpPath := filepath.Join(r.root, dataTmpName)
	content, err := os.ReadFile(tmpPath)
	if err != nil {
		return 0, nil
	}
	if len(content) == 0 {
		_ = os.Remove(tmpPath)
		return 0, nil
	}

	entries, _ := recoverEntriesFromBytes(content)
	if len(entries) == 0 {
		_ = os.Remove(tmpPath)
		return 0, nil
	}

	var newest int64
	for _, e := range entries {
		if e.Timestamp > newest {
			newest = e.Timestamp
		}
	}

	digest, err := r.writeRecoveredBuffer(entries)
	if err != nil {
		return newest, err
	}
	if err := r.index.Append(digest, "0", true); err != nil {
		return newest, err
	}
	_ = os.Remove(tmpPath)
	return newest, nil
}

// recoverLostLocked adopts orphan buffer files (not referenced by the
// index) whose modification time is at least as recent as the index file
// and whose content hashes to their own name and contains data newer than
// newest.
func (r *Recoverable) recoverLostLocked(newest int64) error {
	indexInfo, err := os.Stat(filepath.Join(r.root, indexFileName))
	if err != nil {
		return nil
	}

	referenced := make(map[string]struct{})
	for _, rec := range r.index.Records() {
		referenced[rec.Key] = struct{}{}
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		name := e.Name()
		if !bufferNamePattern.MatchString(name) {
			continue
		}
		if _, ok := referenced[name]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().Before(indexInfo.ModTime()) {
			continue
		}

		content, err := os.ReadFile(filepath.Join(r.root, name))
		if err != nil {
			continue
		}
		if fmt.Sprintf("%x", sha1.Sum(content)) != name {
			continue
		}

		parsed, _ := recoverEntriesFromBytes(content)
		containsNewer := false
		for _, d := range parsed {
			if d.Timestamp > newest {
				containsNewer = true
				break
			}
		}
		if !containsNewer {
			continue
		}

		if err := r.index.Append(name, "0", true); err != nil {
			return err
		}
	}
	return nil
}

// writeRecoveredBuffer serializes entries and writes them through
// SafeWriter, returning the new buffer's digest.
func (r *Recoverable) writeRecoveredBuffer(entries []model.SensorData) (string, error) {
	payload, err := serializeBatch(entries)
	if err != nil {
		return "", err
	}
	w, err := journal.NewSafeWriter(r.root, recoverTmpName)
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte(payload)); err != nil {
		_ = w.Reset()
		return "", err
	}
	digest, _, err := w.Finalize()
	if err != nil {
		_ = w.Reset()
		return "", err
	}
	if err := w.CommitAs(r.bufferPath(digest)); err != nil {
		return "", err
	}
	return digest, nil
}

// recoverEntriesFromBytes parses as many valid "<crc32>\t<json>\n" lines
// as possible from content, skipping corrupted ones.
func recoverEntriesFromBytes(content []byte) ([]model.SensorData, int) {
	var entries []model.SensorData
	errs := 0

	sc := bufio.NewScanner(newByteReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		sep := strings.IndexByte(line, '\t')
		if sep < 0 {
			errs++
			continue
		}
		check, err := strconv.ParseUint(line[:sep], 16, 32)
		if err != nil {
			errs++
			continue
		}
		payload := line[sep+1:]
		if crc32.ChecksumIEEE([]byte(payload)) != uint32(check) {
			errs++
			continue
		}
		var data model.SensorData
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			errs++
			continue
		}
		entries = append(entries, data)
	}
	return entries, errs
}

func newByteReader(b []byte) io.Reader {
	return strings.NewReader(string(b))
}
