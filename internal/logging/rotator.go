package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const megabyte = 1 << 20

// FileRotator is an io.Writer over a log file. Once a write would grow the
// file past Config.MaxSize megabytes the file is moved aside as
// <stem>-<YYYYMMDD-HHMMSS>.<seq><ext>, gzipped when Config.Compress is set,
// and only the newest Config.MaxBackups moved-aside files are kept.
type FileRotator struct {
	path     string
	limit    int64
	backups  int
	compress bool

	mu      sync.Mutex
	f       *os.File
	written int64
	seq     int

	// housekeeping runs off the write path, one pass at a time
	bg   sync.WaitGroup
	bgMu sync.Mutex
}

// NewFileRotator opens cfg.FilePath for appending, creating its directory.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	r := &FileRotator{
		path:     cfg.FilePath,
		limit:    cfg.MaxSize * megabyte,
		backups:  cfg.MaxBackups,
		compress: cfg.Compress,
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.f, r.written = f, info.Size()
	return nil
}

// Write appends p, rotating first if p would not fit. An empty file takes
// any write so one oversized entry cannot cause a rotation loop.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.limit > 0 && r.written > 0 && r.written+int64(len(p)) > r.limit {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := r.f.Write(p)
	r.written += int64(n)
	return n, err
}

func (r *FileRotator) stem() (dir, stem, ext string) {
	dir = filepath.Dir(r.path)
	base := filepath.Base(r.path)
	ext = filepath.Ext(base)
	return dir, strings.TrimSuffix(base, ext), ext
}

// rotate moves the current file aside and reopens. Callers hold mu.
func (r *FileRotator) rotate() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	r.f = nil

	r.seq++
	dir, stem, ext := r.stem()
	aside := filepath.Join(dir, fmt.Sprintf("%s-%s.%03d%s", stem, time.Now().Format("20060102-150405"), r.seq, ext))
	if err := os.Rename(r.path, aside); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("move log file aside: %w", err)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		r.bgMu.Lock()
		defer r.bgMu.Unlock()

		if r.compress {
			gzipFile(aside)
		}
		r.prune()
	}()
	return nil
}

// gzipFile replaces path with path.gz. On failure the original is kept.
func gzipFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return
	}

	zw := gzip.NewWriter(dst)
	zw.Name = filepath.Base(path)
	_, copyErr := io.Copy(zw, src)
	closeErr := zw.Close()
	if err := dst.Close(); copyErr != nil || closeErr != nil || err != nil {
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

// prune removes moved-aside files beyond the newest r.backups.
func (r *FileRotator) prune() {
	files, err := r.Backups()
	if err != nil || len(files) <= r.backups {
		return
	}
	for _, f := range files[:len(files)-r.backups] {
		os.Remove(f)
	}
}

// Backups lists moved-aside log files, oldest first. The current file is
// not included.
func (r *FileRotator) Backups() ([]string, error) {
	dir, stem, ext := r.stem()
	matches, err := filepath.Glob(filepath.Join(dir, stem+"-*"+ext+"*"))
	if err != nil {
		return nil, err
	}
	// names embed the timestamp and a zero-padded sequence
	sort.Strings(matches)
	return matches, nil
}

// Sync flushes the current file.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	return r.f.Sync()
}

// Close waits for pending housekeeping and closes the current file.
func (r *FileRotator) Close() error {
	r.bg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
