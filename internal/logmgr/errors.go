package logmgr

import "errors"

var (
	// ErrFileIO wraps failures opening, reading or writing a log file.
	ErrFileIO = errors.New("logmgr: file i/o failed")

	// ErrCanceled is returned when the user backs out of a prompt or file
	// chooser.
	ErrCanceled = errors.New("logmgr: canceled")

	// ErrNoFileChooser is returned when a path is needed but no chooser
	// was configured.
	ErrNoFileChooser = errors.New("logmgr: no file chooser")

	// ErrMissingProvider is returned by New when a required collaborator
	// is nil.
	ErrMissingProvider = errors.New("logmgr: missing provider")
)
