// Package logmgr coordinates recording, showing, saving and loading of
// measurement positions.
//
// A Manager owns the desktop and position stores for one log. It is safe
// for concurrent use: every operation runs under a single lock, because the
// stores' invariants are not individually synchronized.
package logmgr

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"meazure/internal/desktop"
	"meazure/internal/fileutil"
	"meazure/internal/geom"
	"meazure/internal/identity"
	"meazure/internal/logfile"
	"meazure/internal/logging"
	"meazure/internal/metrics"
	"meazure/internal/position"
	"meazure/internal/store"
	"meazure/internal/watcher"
)

// Options configures a Manager. Tools, Units and Screens are required.
type Options struct {
	Tools   ToolProvider
	Units   UnitsProvider
	Screens ScreenProvider

	Chooser  FileChooser
	Prompter Prompter // nil answers ChoiceSave
	Notifier Notifier
	Catalog  Catalog
	Digests  DigestSink

	Logger  *logging.Logger
	Metrics *metrics.LogMetrics

	// DefaultTitle is written when the log has no title.
	DefaultTitle string
	Generator    logfile.Generator
	Machine      string
	Write        logfile.WriteOptions

	// IDs generates desktop identities. Defaults to random UUIDs.
	IDs identity.Generator
	// Now stamps recorded positions. Defaults to time.Now.
	Now func() time.Time
}

// Manager is the façade over one position log.
type Manager struct {
	mu sync.Mutex

	opts      Options
	log       *logging.Logger
	desktops  *desktop.Store
	positions *position.Store

	path     string
	lastDir  string
	title    string
	desc     string
	modified bool
	digest   [watcher.DigestSize]byte

	obsMu     sync.Mutex
	observers []Observer
}

// New creates a manager with empty stores.
func New(opts Options) (*Manager, error) {
	if opts.Tools == nil || opts.Units == nil || opts.Screens == nil {
		return nil, ErrMissingProvider
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	m := &Manager{
		opts:      opts,
		log:       opts.Logger.WithComponent("logmgr"),
		desktops:  desktop.NewStore(opts.IDs),
		positions: position.NewStore(),
	}

	if opts.Catalog != nil {
		if dir, err := opts.Catalog.LastDir(); err != nil {
			m.log.Warn("read last directory", "error", err)
		} else {
			m.lastDir = dir
		}
	}
	return m, nil
}

// Register adds an observer.
func (m *Manager) Register(o Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, o)
}

// Unregister removes a previously registered observer. Observers are
// matched by identity, so they should be pointers; an observer whose
// dynamic type is not comparable can be registered but never removed.
func (m *Manager) Unregister(o Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	for i, existing := range m.observers {
		if existing == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

func (m *Manager) notify(fn func(Observer)) {
	m.obsMu.Lock()
	observers := append([]Observer(nil), m.observers...)
	m.obsMu.Unlock()

	for _, o := range observers {
		fn(o)
	}
}

func (m *Manager) report(op string, err error) {
	if m.opts.Notifier == nil || errors.Is(err, ErrCanceled) {
		return
	}
	m.opts.Notifier.NotifyError(op, err)
}

// snapshot captures the live environment.
func (m *Manager) snapshot() *desktop.Desktop {
	u := m.opts.Units
	d := desktop.Default()
	d.Linear = u.LinearUnits()
	d.Angular = u.AngularUnits()
	if d.IsCustom() {
		d.Custom = u.CustomUnits().Clone()
	}
	d.Origin = u.Origin()
	d.InvertY = u.InvertY()
	d.Size = m.opts.Screens.VirtualSize()
	d.Screens = append([]desktop.Screen(nil), m.opts.Screens.Screens()...)
	return d
}

// newPosition builds a position from the live tool and environment. The
// position holds a reference on its desktop.
func (m *Manager) newPosition() *position.Position {
	id := m.desktops.Intern(m.snapshot())
	ref := desktop.NewRef(m.desktops, id)
	meas := m.opts.Tools.CurrentMeasurement()
	return position.New(ref, m.opts.Tools.CurrentToolName(), m.opts.Now(), meas.Clone())
}

// RecordPosition appends a position for the current tool and environment
// and returns its index.
func (m *Manager) RecordPosition() int {
	m.mu.Lock()
	p := m.newPosition()
	index := m.positions.Append(p)
	m.modified = true
	m.sized()
	m.mu.Unlock()
	m.opts.Metrics.PositionRecorded()

	m.log.Debug("position recorded", "index", index, "tool", p.Tool, "desktop", p.DesktopID())
	m.notify(func(o Observer) { o.PositionAdded(index) })
	return index
}

// ReplacePosition overwrites the position at index with one for the current
// tool and environment. The new position acquires its desktop before the
// old one releases, so a shared desktop is never dropped in between.
func (m *Manager) ReplacePosition(index int) error {
	m.mu.Lock()
	p := m.newPosition()
	if err := m.positions.Replace(index, p); err != nil {
		p.Release()
		m.mu.Unlock()
		return err
	}
	m.modified = true
	m.sized()
	m.mu.Unlock()
	m.opts.Metrics.PositionReplaced()

	m.log.Debug("position replaced", "index", index, "tool", p.Tool)
	m.notify(func(o Observer) { o.PositionReplaced(index) })
	return nil
}

// DeletePosition removes the position at index; later positions move down.
func (m *Manager) DeletePosition(index int) error {
	m.mu.Lock()
	if err := m.positions.Delete(index); err != nil {
		m.mu.Unlock()
		return err
	}
	m.modified = !m.positions.IsEmpty()
	m.sized()
	m.mu.Unlock()
	m.opts.Metrics.PositionsDeleted(1)

	m.log.Debug("position deleted", "index", index)
	m.notify(func(o Observer) { o.PositionDeleted(index) })
	return nil
}

// DeleteAll removes every position.
func (m *Manager) DeleteAll() {
	m.mu.Lock()
	n := m.positions.Len()
	m.clear()
	m.modified = false
	m.sized()
	m.mu.Unlock()
	m.opts.Metrics.PositionsDeleted(n)

	m.log.Debug("all positions deleted")
	m.notify(func(o Observer) { o.PositionsDeleted() })
}

func (m *Manager) clear() {
	m.positions.DeleteAll()
	m.desktops.Clear()
}

// sized publishes the store sizes. Callers hold mu.
func (m *Manager) sized() {
	m.opts.Metrics.SetSize(m.positions.Len(), m.desktops.Len())
}

// displayTool maps a recorded tool onto the one used to show it. The cursor
// tool would move the pointer and a window tool would snap to windows.
func displayTool(name string) string {
	switch name {
	case CursorTool:
		return PointTool
	case WindowTool:
		return RectTool
	default:
		return name
	}
}

// ShowPosition restores the environment recorded with the position at index
// into the live providers and moves the active tool to its points.
func (m *Manager) ShowPosition(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.positions.Get(index)
	if err != nil {
		return err
	}
	d, err := m.desktops.Get(p.DesktopID())
	if err != nil {
		return fmt.Errorf("position %d: %w", index, err)
	}

	tools, u := m.opts.Tools, m.opts.Units

	if name := displayTool(p.Tool); name != tools.CurrentToolName() {
		tools.SetTool(name)
	}

	if d.IsCustom() && (u.LinearUnits() != d.Linear || !customEqual(u, d)) {
		u.SetCustomUnits(d.Custom.Clone())
	}
	if u.LinearUnits() != d.Linear {
		u.SetLinearUnits(d.Linear)
	}
	if u.AngularUnits() != d.Angular {
		u.SetAngularUnits(d.Angular)
	}
	if u.InvertY() != d.InvertY {
		u.SetInvertY(d.InvertY)
	}
	if !u.Origin().Equal(d.Origin) {
		u.SetOrigin(d.Origin)
	}

	points := make(map[string]geom.Point, len(p.Points))
	for name, pt := range p.Points {
		points[name] = pt
	}
	tools.ApplyPoints(points)
	return nil
}

func customEqual(u UnitsProvider, d *desktop.Desktop) bool {
	live := desktop.Desktop{Linear: d.Linear, Angular: d.Angular, Origin: d.Origin, InvertY: d.InvertY, Size: d.Size, Screens: d.Screens}
	live.Custom = u.CustomUnits()
	return live.Equal(d)
}

// Save writes the log. A path is requested from the chooser when none is
// known yet or askPath is set; the chooser may also change the title and
// description. The file is written atomically under an advisory lock.
func (m *Manager) Save(askPath bool) error {
	err := m.save(askPath)
	if err != nil {
		m.report("save", err)
		return err
	}
	m.notify(func(o Observer) { o.LogSaved() })
	return nil
}

func (m *Manager) save(askPath bool) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start, size := time.Now(), 0
	defer func() { m.opts.Metrics.ObserveSave(start, size, err) }()

	// The chosen path, title and description are only kept once the file
	// has been written.
	path, title, desc := m.path, m.title, m.desc
	if path == "" || askPath {
		if m.opts.Chooser == nil {
			return ErrNoFileChooser
		}
		choice, err := m.opts.Chooser.SavePath(SaveRequest{
			Dir:         m.lastDir,
			Path:        m.path,
			Title:       m.title,
			Description: m.desc,
		})
		if err != nil {
			return err
		}
		path, title, desc = choice.Path, choice.Title, choice.Description
	}

	log := m.log.WithOperation("save").WithFile(path)

	hdr := m.headerFor(title, desc)
	var buf bytes.Buffer
	if err := logfile.Write(&buf, hdr, m.desktops.Referenced(), m.positions.All(), m.opts.Write); err != nil {
		return fmt.Errorf("%w: %w", ErrFileIO, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), fileutil.PermDataDir); err != nil {
		log.Error("create directory failed", "error", err)
		return fmt.Errorf("%w: %w", ErrFileIO, err)
	}
	lock, err := fileutil.LockFile(path)
	if err != nil {
		log.Error("lock failed", "error", err)
		return fmt.Errorf("%w: %w", ErrFileIO, err)
	}
	defer lock.Unlock()

	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), fileutil.PermLogFile); err != nil {
		log.Error("write failed", "error", err)
		return fmt.Errorf("%w: %w", ErrFileIO, err)
	}

	m.path, m.title, m.desc = path, title, desc
	m.modified = false
	m.lastDir = filepath.Dir(path)
	m.setDigest(watcher.Digest(buf.Bytes()))
	size = buf.Len()

	if c := m.opts.Catalog; c != nil {
		entry := m.entry(hdr)
		entry.LastSaved = time.Now()
		if err := c.RecordSave(entry); err != nil {
			log.Warn("catalog save", "error", err)
		}
		if err := c.SetLastDir(m.lastDir); err != nil {
			log.Warn("catalog last directory", "error", err)
		}
	}

	log.Info("log saved", "positions", m.positions.Len(), "desktops", m.desktops.Len(), "bytes", buf.Len())
	return nil
}

func (m *Manager) header() logfile.Header {
	return m.headerFor(m.title, m.desc)
}

func (m *Manager) headerFor(title, desc string) logfile.Header {
	if title == "" {
		title = m.opts.DefaultTitle
	}
	return logfile.Header{
		Title:       title,
		Description: desc,
		Created:     time.Now().UTC(),
		Generator:   m.opts.Generator,
		Machine:     m.opts.Machine,
	}
}

func (m *Manager) entry(hdr logfile.Header) *store.Entry {
	return &store.Entry{
		Path:          m.path,
		Title:         hdr.Title,
		Description:   hdr.Description,
		PositionCount: m.positions.Len(),
		DesktopCount:  m.desktops.Len(),
		Digest:        append([]byte(nil), m.digest[:]...),
	}
}

func (m *Manager) setDigest(d [watcher.DigestSize]byte) {
	m.digest = d
	if m.opts.Digests != nil {
		m.opts.Digests.SetKnown(d)
	}
}

// SaveIfModified offers to save unsaved positions. It returns ErrCanceled
// if the user cancels or the save is abandoned, and nil when the caller
// may go on.
func (m *Manager) SaveIfModified() error {
	if !m.IsModified() {
		return nil
	}

	choice := ChoiceSave
	if m.opts.Prompter != nil {
		choice = m.opts.Prompter.AskSaveChanges()
	}

	switch choice {
	case ChoiceCancel:
		return ErrCanceled
	case ChoiceSave:
		if err := m.Save(false); err != nil {
			if errors.Is(err, ErrCanceled) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
	}
	return nil
}

// Load replaces the log with the contents of path, or of a file picked with
// the chooser when path is empty. Unsaved positions are offered for saving
// first. The current positions are cleared before the file is parsed, so a
// malformed file leaves the log empty.
func (m *Manager) Load(path string) (*logfile.Result, error) {
	if err := m.SaveIfModified(); err != nil {
		return nil, err
	}

	res, err := m.load(path)
	if err != nil {
		m.report("load", err)
		return nil, err
	}
	m.notify(func(o Observer) { o.LogLoaded() })
	return res, nil
}

func (m *Manager) load(path string) (res *logfile.Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start, size := time.Now(), 0
	defer func() {
		warnings := 0
		if res != nil {
			warnings = len(res.Warnings)
		}
		m.opts.Metrics.ObserveLoad(start, size, warnings, err)
		m.sized()
	}()

	if path == "" {
		if m.opts.Chooser == nil {
			return nil, ErrNoFileChooser
		}
		chosen, err := m.opts.Chooser.OpenPath(m.lastDir)
		if err != nil {
			return nil, err
		}
		path = chosen
	}

	log := m.log.WithOperation("load").WithFile(path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("read failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFileIO, err)
	}
	m.lastDir = filepath.Dir(path)

	m.clear()
	m.path = ""
	m.title, m.desc = "", ""
	m.modified = false

	res, err = logfile.Read(bytes.NewReader(data), m.desktops, m.positions)
	if err != nil {
		log.Error("parse failed", "error", err)
		return nil, err
	}

	size = len(data)
	m.path = path
	m.title = res.Header.Title
	m.desc = res.Header.Description
	m.setDigest(watcher.Digest(data))

	for _, w := range res.Warnings {
		log.Warn("skipped element", "error", w)
	}

	if c := m.opts.Catalog; c != nil {
		entry := m.entry(res.Header)
		entry.LastLoaded = time.Now()
		if err := c.RecordLoad(entry); err != nil {
			log.Warn("catalog load", "error", err)
		}
		if err := c.SetLastDir(m.lastDir); err != nil {
			log.Warn("catalog last directory", "error", err)
		}
	}

	log.Info("log loaded",
		"version", res.Version,
		"legacy", res.Legacy,
		"positions", res.Positions,
		"desktops", res.Desktops,
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// IsModified reports whether there are unsaved changes.
func (m *Manager) IsModified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modified
}

// HasPositions reports whether any position is recorded.
func (m *Manager) HasPositions() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.positions.IsEmpty()
}

// Count returns the number of positions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions.Len()
}

// DesktopCount returns the number of live desktop snapshots.
func (m *Manager) DesktopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desktops.Len()
}

// Path returns the file the log was last saved to or loaded from.
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// SetPath sets the file used by Save when no path is requested.
func (m *Manager) SetPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
}

// LastDir returns the directory of the last saved or loaded file.
func (m *Manager) LastDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDir
}

// Title returns the log title.
func (m *Manager) Title() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.title
}

// Description returns the log description.
func (m *Manager) Description() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desc
}

// SetHeader changes the title and description. It marks the log modified.
func (m *Manager) SetHeader(title, desc string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if title != m.title || desc != m.desc {
		m.title, m.desc = title, desc
		m.modified = true
	}
}

// Digest returns the BLAKE2b-256 digest of the last saved or loaded file.
func (m *Manager) Digest() [watcher.DigestSize]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.digest
}

// ChangedExternally reports whether an observed file digest differs from
// the last one this manager wrote or read.
func (m *Manager) ChangedExternally(digest [watcher.DigestSize]byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path != "" && digest != m.digest
}

// Each calls fn for every position in order with its desktop. fn runs under
// the manager's lock; it must not retain p or d, nor call the manager.
func (m *Manager) Each(fn func(index int, p *position.Position, d *desktop.Desktop)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.positions.All() {
		d, err := m.desktops.Get(p.DesktopID())
		if err != nil {
			d = nil
		}
		fn(i, p, d)
	}
}

// Desktops returns copies of the live desktop snapshots ordered by ID.
func (m *Manager) Desktops() []*desktop.Desktop {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := m.desktops.Referenced()
	out := make([]*desktop.Desktop, len(ref))
	for i, d := range ref {
		out[i] = d.Clone()
	}
	return out
}

// Header returns the header that Save would write now.
func (m *Manager) Header() logfile.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.header()
}

// IsPositionFile reports whether path has the position log extension,
// ignoring case.
func IsPositionFile(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return strings.EqualFold(ext, logfile.Extension)
}
