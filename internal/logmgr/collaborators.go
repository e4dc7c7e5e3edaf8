package logmgr

import (
	"meazure/internal/desktop"
	"meazure/internal/geom"
	"meazure/internal/position"
	"meazure/internal/store"
	"meazure/internal/units"
)

// Tool names used by show substitution.
const (
	CursorTool = "CursorTool"
	PointTool  = "PointTool"
	WindowTool = "WindowTool"
	RectTool   = "RectTool"
)

// ToolProvider exposes the active measurement tool.
type ToolProvider interface {
	CurrentToolName() string
	CurrentMeasurement() position.Measurement
	SetTool(name string)
	ApplyPoints(points map[string]geom.Point)
}

// UnitsProvider exposes the live unit configuration.
type UnitsProvider interface {
	LinearUnits() units.Linear
	AngularUnits() units.Angular
	CustomUnits() units.CustomUnits
	Origin() geom.Point
	InvertY() bool

	SetLinearUnits(units.Linear)
	SetAngularUnits(units.Angular)
	SetCustomUnits(units.CustomUnits)
	SetOrigin(geom.Point)
	SetInvertY(bool)
}

// ScreenProvider enumerates the attached displays.
type ScreenProvider interface {
	VirtualSize() geom.Size
	Screens() []desktop.Screen
}

// SaveRequest is handed to a FileChooser when a save path is needed. Title
// and Description are the current header values.
type SaveRequest struct {
	Dir         string
	Path        string
	Title       string
	Description string
}

// SaveChoice is the result of a save dialog.
type SaveChoice struct {
	Path        string
	Title       string
	Description string
}

// FileChooser picks files to open and save. Implementations return
// ErrCanceled when the user dismisses the dialog.
type FileChooser interface {
	OpenPath(dir string) (string, error)
	SavePath(req SaveRequest) (SaveChoice, error)
}

// Choice is the answer to the save-changes prompt.
type Choice int

const (
	ChoiceSave Choice = iota
	ChoiceDiscard
	ChoiceCancel
)

// Prompter asks whether unsaved positions should be saved.
type Prompter interface {
	AskSaveChanges() Choice
}

// Notifier presents failures of user-facing operations.
type Notifier interface {
	NotifyError(op string, err error)
}

// Observer is told about changes to the log. Callbacks run after the
// manager's lock is released and may call back into the manager.
type Observer interface {
	LogLoaded()
	LogSaved()
	PositionAdded(index int)
	PositionReplaced(index int)
	PositionDeleted(index int)
	PositionsDeleted()
}

// Catalog records saved and loaded files. *store.Store implements it.
type Catalog interface {
	RecordSave(e *store.Entry) error
	RecordLoad(e *store.Entry) error
	SetLastDir(dir string) error
	LastDir() (string, error)
}

// DigestSink is told the content digest of every file the manager writes
// or reads, so self-writes can be told apart from external edits.
// *watcher.Watcher implements it.
type DigestSink interface {
	SetKnown(digest [32]byte)
}

var _ Catalog = (*store.Store)(nil)
