package journal

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/beeeon/gateway/model"
)

// SafeWriter writes a single file atomically: all bytes go to a sibling
// temp file first; Finalize fsyncs it and reports its SHA-1 digest;
// CommitAs renames it into place. A crash before CommitAs leaves the
// target file untouched.
type SafeWriter struct {
	dir     string
	tmpPath string
	file    *os.File
	hash    hash.Hash
	size    int64
	done    bool
}

// NewSafeWriter opens tmpName inside dir for writing, truncating any
// leftover file from a previous aborted attempt.
func NewSafeWriter(dir, tmpName string) (*SafeWriter, error) {
	tmpPath := filepath.Join(dir, tmpName)
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, classifyFileError(err)
	}
	return &SafeWriter{
		dir:     dir,
		tmpPath: tmpPath,
		file:    f,
		hash:    sha1.New(),
	}, nil
}

// Write appends to the temp file and feeds the running digest.
func (w *SafeWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if n > 0 {
		w.hash.Write(p[:n])
		w.size += int64(n)
	}
	if err != nil {
		return n, classifyFileError(err)
	}
	return n, nil
}

// Finalize fsyncs the temp file and returns its SHA-1 digest (lowercase
// hex) and size. The writer must not be written to afterward.
func (w *SafeWriter) Finalize() (digest string, size int64, err error) {
	if err := w.file.Sync(); err != nil {
		return "", 0, classifyFileError(err)
	}
	w.done = true
	return fmt.Sprintf("%x", w.hash.Sum(nil)), w.size, nil
}

// CommitAs renames the finalized temp file onto path, replacing it
// atomically.
func (w *SafeWriter) CommitAs(path string) error {
	if !w.done {
		return fmt.Errorf("%w: commit before finalize", model.ErrIllegalState)
	}
	if err := w.file.Close(); err != nil {
		return classifyFileError(err)
	}
	if err := os.Rename(w.tmpPath, path); err != nil {
		return classifyFileError(err)
	}
	return nil
}

// Reset aborts the write and deletes the temp file.
func (w *SafeWriter) Reset() error {
	_ = w.file.Close()
	err := os.Remove(w.tmpPath)
	if err != nil && !os.IsNotExist(err) {
		return classifyFileError(err)
	}
	return nil
}

// classifyFileError maps a filesystem error into the error kinds the core
// distinguishes: FileAccessDenied, FileReadOnly, WriteFile (ENOSPC, EFBIG,
// EDQUOT, EIO), or plain IO for anything else.
func classifyFileError(err error) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return fmt.Errorf("%w: %v", model.ErrFileAccessDenied, err)
		case syscall.EROFS:
			return fmt.Errorf("%w: %v", model.ErrFileReadOnly, err)
		case syscall.ENOSPC, syscall.EFBIG, syscall.EDQUOT, syscall.EIO:
			return fmt.Errorf("%w: %v", model.ErrWriteFile, err)
		}
	}
	return fmt.Errorf("%w: %v", model.ErrIO, err)
}

var _ io.Writer = (*SafeWriter)(nil)
