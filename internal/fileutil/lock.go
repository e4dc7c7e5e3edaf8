package fileutil

import (
	"fmt"
	"os"
)

// Lock is an exclusive advisory lock held on a sidecar "<path>.lock" file.
// Other processes saving the same log through LockFile block until it is
// released.
type Lock struct {
	f *os.File
}

// LockPath returns the sidecar lock file used for path.
func LockPath(path string) string {
	return path + ".lock"
}

// LockFile blocks until an exclusive lock for path is acquired.
func LockFile(path string) (*Lock, error) {
	lp := LockPath(path)
	f, err := os.OpenFile(lp, os.O_RDWR|os.O_CREATE, PermLogFile)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return &Lock{f: f}, nil
}

// Unlock releases the lock. The sidecar stays on disk: removing it would
// let a waiter holding the old inode and a newcomer creating a fresh one
// both believe they own the lock.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	l.f.Close()
	l.f = nil
	return err
}
