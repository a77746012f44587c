package queue

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/beeeon/gateway/journal"
	"github.com/beeeon/gateway/model"
)

const (
	indexFileName = "index"
	dataTmpName   = "data.tmp"
)

var bufferNamePattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// bufState is one buffer file as tracked in RAM: its content-address and
// the offset into it that has been committed to the index (the next byte
// a fresh peek pass should resume from).
type bufState struct {
	hash   string
	offset int64
}

// cachedEntry is one pre-read, not-yet-popped SensorData entry, along with
// enough bookkeeping to commit its consumption on Pop.
type cachedEntry struct {
	data       model.SensorData
	bufferHash string
	nextOffset int64
}

// Journaled is the persistent Strategy: an index Journal mapping buffer
// hashes to read offsets, plus one content-addressed file per pushed
// batch.
type Journaled struct {
	mu   sync.Mutex
	root string

	index *journal.Journal

	bytesLimit      int64
	neverDropOldest bool

	buffers []*bufState // oldest first; mirrors index.Records()
	cache   []cachedEntry
}

// JournaledOption configures a Journaled strategy.
type JournaledOption func(*Journaled)

// WithBytesLimit caps the live (unpopped) bytes held across all buffers.
func WithBytesLimit(n int64) JournaledOption {
	return func(s *Journaled) { s.bytesLimit = n }
}

// WithNeverDropOldest disables the drop-oldest overflow strategy: once the
// byte limit is hit and GC does not free enough space, Push fails instead.
func WithNeverDropOldest() JournaledOption {
	return func(s *Journaled) { s.neverDropOldest = true }
}

// NewJournaled opens (creating if needed) a journal-backed strategy rooted
// at dir.
func NewJournaled(dir string, opts ...JournaledOption) (*Journaled, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrIO, err)
	}

	idx, err := journal.New(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, err
	}
	if _, err := idx.CreateEmpty(); err != nil {
		return nil, err
	}
	if err := idx.Load(true); err != nil {
		return nil, err
	}

	s := &Journaled{
		root:       dir,
		index:      idx,
		bytesLimit: 1 << 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reloadBuffersLocked()
	return s, nil
}

func (s *Journaled) reloadBuffersLocked() {
	records := s.index.Records()
	buffers := make([]*bufState, 0, len(records))
	for _, r := range records {
		off, err := strconv.ParseInt(r.Value, 16, 64)
		if err != nil {
			continue
		}
		buffers = append(buffers, &bufState{hash: r.Key, offset: off})
	}
	s.buffers = buffers
}

func (s *Journaled) bufferPath(hash string) string {
	return filepath.Join(s.root, hash)
}

func (s *Journaled) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index.Records()) == 0
}

// serializeBatch renders batch into the buffer's line-oriented wire form:
// one "<crc32-hex-8>\t<json>\n" line per entry.
func serializeBatch(batch []model.SensorData) (string, error) {
	var sb strings.Builder
	for _, d := range batch {
		content, err := json.Marshal(d)
		if err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
		}
		fmt.Fprintf(&sb, "%08x\t%s\n", crc32.ChecksumIEEE(content), content)
	}
	return sb.String(), nil
}

func (s *Journaled) Push(batch []model.SensorData) error {
	if len(batch) == 0 {
		return nil
	}

	payload, err := serializeBatch(batch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.makeRoomLocked(int64(len(payload))); err != nil {
		return err
	}

	w, err := journal.NewSafeWriter(s.root, dataTmpName)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(payload)); err != nil {
		_ = w.Reset()
		return err
	}
	digest, _, err := w.Finalize()
	if err != nil {
		_ = w.Reset()
		return err
	}
	target := s.bufferPath(digest)
	if err := w.CommitAs(target); err != nil {
		return err
	}

	if err := s.index.Append(digest, "0", true); err != nil {
		return err
	}
	s.buffers = append(s.buffers, &bufState{hash: digest})
	return nil
}

// makeRoomLocked ensures adding incoming bytes would not exceed
// bytesLimit: it GCs orphan buffer files, then (unless neverDropOldest)
// drops the oldest live buffers until there is room, or fails.
func (s *Journaled) makeRoomLocked(incoming int64) error {
	if s.bytesLimit <= 0 {
		return nil
	}
	if s.liveBytesLocked()+incoming <= s.bytesLimit {
		return nil
	}

	s.gcOrphansLocked()
	if s.liveBytesLocked()+incoming <= s.bytesLimit {
		return nil
	}

	if s.neverDropOldest {
		return fmt.Errorf("%w: queue full", model.ErrWriteFile)
	}

	for len(s.buffers) > 0 {
		oldest := s.buffers[0]
		if s.isPeekedUnackedLocked(oldest.hash) {
			break
		}
		if err := s.dropBufferLocked(oldest.hash); err != nil {
			return err
		}
		s.buffers = s.buffers[1:]
		if s.liveBytesLocked()+incoming <= s.bytesLimit {
			return nil
		}
	}
	return fmt.Errorf("%w: queue full, cannot make room", model.ErrWriteFile)
}

// isPeekedUnackedLocked reports whether hash still has cached (peeked but
// unpopped) entries outstanding — such a buffer must not be dropped.
func (s *Journaled) isPeekedUnackedLocked(hash string) bool {
	for _, e := range s.cache {
		if e.bufferHash == hash {
			return true
		}
	}
	return false
}

func (s *Journaled) liveBytesLocked() int64 {
	var total int64
	for _, b := range s.buffers {
		info, err := os.Stat(s.bufferPath(b.hash))
		if err != nil {
			continue
		}
		total += info.Size() - b.offset
	}
	return total
}

// gcOrphansLocked deletes buffer files not referenced by the index and
// not held by any in-RAM state.
func (s *Journaled) gcOrphansLocked() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	referenced := make(map[string]struct{}, len(s.buffers))
	for _, b := range s.buffers {
		referenced[b.hash] = struct{}{}
	}
	for _, e := range entries {
		name := e.Name()
		if !bufferNamePattern.MatchString(name) {
			continue
		}
		if _, ok := referenced[name]; ok {
			continue
		}
		_ = os.Remove(filepath.Join(s.root, name))
	}
}

func (s *Journaled) dropBufferLocked(hash string) error {
	if err := s.index.Drop([]string{hash}, true); err != nil {
		return err
	}
	_ = os.Remove(s.bufferPath(hash))
	return nil
}

func (s *Journaled) Peek(out *[]model.SensorData, count int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fillCacheLocked(count); err != nil {
		return 0, err
	}

	n := count
	if n > len(s.cache) {
		n = len(s.cache)
	}
	for i := 0; i < n; i++ {
		*out = append(*out, s.cache[i].data)
	}
	return n, nil
}

// fillCacheLocked reads ahead from the oldest not-fully-cached buffer
// until the cache holds at least want entries or all buffers are
// exhausted.
func (s *Journaled) fillCacheLocked(want int) error {
	if len(s.cache) >= want {
		return nil
	}

	readCursor := make(map[string]int64, len(s.buffers))
	for _, e := range s.cache {
		readCursor[e.bufferHash] = e.nextOffset
	}

	bufIdx := 0
	for len(s.cache) < want {
		if bufIdx >= len(s.buffers) {
			break
		}
		b := s.buffers[bufIdx]
		pos, ok := readCursor[b.hash]
		if !ok {
			pos = b.offset
		}

		entry, newPos, err := readEntryAt(s.bufferPath(b.hash), pos)
		if err == io.EOF {
			bufIdx++
			continue
		}
		if err != nil {
			return err
		}

		s.cache = append(s.cache, cachedEntry{data: entry, bufferHash: b.hash, nextOffset: newPos})
		readCursor[b.hash] = newPos
	}
	return nil
}

// readEntryAt reads the single "<crc32>\t<json>\n" line starting at
// offset pos in path, returning the parsed SensorData and the offset
// immediately after it. Returns io.EOF once pos is at end of file.
func readEntryAt(path string, pos int64) (model.SensorData, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.SensorData{}, pos, fmt.Errorf("%w: %v", model.ErrIO, err)
	}
	defer f.Close()

	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return model.SensorData{}, pos, fmt.Errorf("%w: %v", model.ErrIO, err)
	}

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return model.SensorData{}, pos, io.EOF
		}
		if err != io.EOF {
			return model.SensorData{}, pos, fmt.Errorf("%w: %v", model.ErrIO, err)
		}
	}
	trimmed := strings.TrimRight(line, "\n")
	if trimmed == "" {
		return model.SensorData{}, pos, io.EOF
	}

	sep := strings.IndexByte(trimmed, '\t')
	if sep < 0 {
		return model.SensorData{}, pos, fmt.Errorf("%w: malformed buffer entry in %s", model.ErrIllegalState, path)
	}
	check, err := strconv.ParseUint(trimmed[:sep], 16, 32)
	if err != nil {
		return model.SensorData{}, pos, fmt.Errorf("%w: malformed buffer entry in %s", model.ErrIllegalState, path)
	}
	content := trimmed[sep+1:]
	if crc32.ChecksumIEEE([]byte(content)) != uint32(check) {
		return model.SensorData{}, pos, fmt.Errorf("%w: checksum mismatch in %s", model.ErrIllegalState, path)
	}

	var data model.SensorData
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return model.SensorData{}, pos, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}

	return data, pos + int64(len(line)), nil
}

func (s *Journaled) Pop(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := count
	if n > len(s.cache) {
		n = len(s.cache)
	}
	popped := s.cache[:n]
	s.cache = s.cache[n:]

	maxOffset := make(map[string]int64, n)
	for _, e := range popped {
		if e.nextOffset > maxOffset[e.bufferHash] {
			maxOffset[e.bufferHash] = e.nextOffset
		}
	}

	for hash, offset := range maxOffset {
		info, err := os.Stat(s.bufferPath(hash))
		fullyConsumed := err == nil && offset >= info.Size()

		if fullyConsumed {
			if err := s.dropBufferLocked(hash); err != nil {
				return err
			}
			for i, b := range s.buffers {
				if b.hash == hash {
					s.buffers = append(s.buffers[:i], s.buffers[i+1:]...)
					break
				}
			}
			continue
		}

		if err := s.index.Append(hash, fmt.Sprintf("%x", offset), true); err != nil {
			return err
		}
		for _, b := range s.buffers {
			if b.hash == hash {
				b.offset = offset
			}
		}
	}
	return nil
}

var _ Strategy = (*Journaled)(nil)
