// Package fileutil provides crash-safe file replacement and advisory locks
// for log files.
package fileutil

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// PermLogFile is the permission for saved log files.
	PermLogFile os.FileMode = 0644

	// PermDataDir is the permission for directories created on save.
	PermDataDir os.FileMode = 0755
)

var (
	ErrAtomicWriteFailed = errors.New("fileutil: atomic write failed")
	ErrTempFileFailed    = errors.New("fileutil: temporary file creation failed")
	ErrLocked            = errors.New("fileutil: file is locked")
)

// AtomicWriter writes to a temporary file beside the target and renames it
// into place on Commit, so readers never observe a partial file.
type AtomicWriter struct {
	path     string
	tempFile *os.File
	tempPath string
	done     bool
}

// NewAtomicWriter creates the temporary file for path. The parent directory
// is created if needed.
func NewAtomicWriter(path string, perm os.FileMode) (*AtomicWriter, error) {
	cleanPath := filepath.Clean(path)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, PermDataDir); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	// Same directory so the rename stays on one file system.
	tempPath := cleanPath + ".tmp." + randomSuffix()
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTempFileFailed, err)
	}

	return &AtomicWriter{
		path:     cleanPath,
		tempFile: tempFile,
		tempPath: tempPath,
	}, nil
}

// Path returns the final destination.
func (w *AtomicWriter) Path() string {
	return w.path
}

// Write writes data to the temporary file.
func (w *AtomicWriter) Write(p []byte) (int, error) {
	return w.tempFile.Write(p)
}

// Commit flushes the temporary file and moves it over the target.
func (w *AtomicWriter) Commit() error {
	if w.done {
		return fmt.Errorf("%w: already finished", ErrAtomicWriteFailed)
	}
	w.done = true

	if err := w.tempFile.Sync(); err != nil {
		w.tempFile.Close()
		os.Remove(w.tempPath)
		return fmt.Errorf("sync: %w", err)
	}

	if err := w.tempFile.Close(); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(w.tempPath, w.path); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("%w: %v", ErrAtomicWriteFailed, err)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (w *AtomicWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.tempFile.Close()
	os.Remove(w.tempPath)
}

func randomSuffix() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// WriteFileAtomic replaces path with data.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	w, err := NewAtomicWriter(path, perm)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Abort()
		return err
	}
	return w.Commit()
}
