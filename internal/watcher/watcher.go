// Package watcher reports external changes to an open log file.
package watcher

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length of a content digest.
const DigestSize = blake2b.Size256

// Event reports that the watched file settled with new content.
type Event struct {
	Path      string
	Digest    [DigestSize]byte
	Size      int64
	Timestamp time.Time
}

// Watcher watches a single file. Changes are debounced and hashed; an event
// is only sent when the content differs from the last known digest, so the
// watcher stays quiet about the owner's own saves.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	debounce  time.Duration

	mu         sync.Mutex
	known      [DigestSize]byte
	hasKnown   bool
	pending    bool
	lastChange time.Time

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for path. The file does not have to exist yet, but
// its directory does.
func New(path string, debounce time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		path:      absPath,
		debounce:  debounce,
		events:    make(chan Event, 16),
		errors:    make(chan error, 4),
		done:      make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Events returns the channel of change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch and hashing errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// SetKnown records the digest of content the owner wrote or read itself.
func (w *Watcher) SetKnown(digest [DigestSize]byte) {
	w.mu.Lock()
	w.known = digest
	w.hasKnown = true
	w.mu.Unlock()
}

// Start begins watching. The parent directory is watched because editors
// and atomic saves replace the file rather than writing it in place.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	if _, err := os.Stat(w.path); err == nil {
		w.mu.Lock()
		if !w.hasKnown {
			if digest, _, err := HashFile(w.path); err == nil {
				w.known = digest
				w.hasKnown = true
			}
		}
		w.mu.Unlock()
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts down the watcher and closes its channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			w.pending = true
			w.lastChange = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	if tick > time.Second {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.checkStable(now)
		}
	}
}

// checkStable hashes the file once it has not changed for the debounce
// interval. The lock is released during I/O.
func (w *Watcher) checkStable(now time.Time) {
	w.mu.Lock()
	if !w.pending || now.Sub(w.lastChange) < w.debounce {
		w.mu.Unlock()
		return
	}
	seen := w.lastChange
	w.mu.Unlock()

	digest, size, err := HashFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Removed or mid-rename; wait for the next change.
			w.mu.Lock()
			w.pending = false
			w.mu.Unlock()
			return
		}
		w.sendError(err)
		return
	}

	w.mu.Lock()
	if w.lastChange != seen {
		// Modified while hashing; let it settle again.
		w.mu.Unlock()
		return
	}
	w.pending = false
	if w.hasKnown && bytes.Equal(digest[:], w.known[:]) {
		w.mu.Unlock()
		return
	}
	w.known = digest
	w.hasKnown = true
	w.mu.Unlock()

	select {
	case w.events <- Event{Path: w.path, Digest: digest, Size: size, Timestamp: now}:
	default:
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// HashFile computes the BLAKE2b-256 digest of a file by streaming it.
func HashFile(path string) ([DigestSize]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [DigestSize]byte{}, 0, err
	}
	defer f.Close()

	h, _ := blake2b.New256(nil)
	size, err := io.Copy(h, f)
	if err != nil {
		return [DigestSize]byte{}, 0, err
	}

	var digest [DigestSize]byte
	copy(digest[:], h.Sum(nil))
	return digest, size, nil
}

// Digest returns the BLAKE2b-256 digest of data.
func Digest(data []byte) [DigestSize]byte {
	return blake2b.Sum256(data)
}
