package logfile

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDocument        = errors.New("logfile: malformed document")
	ErrUnsupportedVersion       = errors.New("logfile: unsupported version")
	ErrUnknownSnapshotReference = errors.New("logfile: unknown desktop reference")
	ErrInvalidIdentity          = errors.New("logfile: invalid identity")
)

// ReferenceError reports a position that could not be attached to a desktop
// snapshot. The position is skipped and the rest of the file is still read.
type ReferenceError struct {
	Index int    // zero-based position element index in the file
	Ref   string // desktopRef attribute as written
	Err   error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("position %d: desktop reference %q: %v", e.Index, e.Ref, e.Err)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// malformed wraps a parse failure so that errors.Is reports
// ErrMalformedDocument.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}
