// Package logfile reads and writes position log files.
//
// A log file is an XML document rooted at <positionLog version="N">. The
// current version carries a <desktops> section with one element per
// referenced environment snapshot; version 1 files have a single implicit
// environment instead. Reading accepts both, writing always produces the
// current version.
package logfile

import "time"

const (
	// FormatVersion is the version written by Write.
	FormatVersion = 2

	// LegacyVersion is the single-environment format.
	LegacyVersion = 1

	// DefaultDTDURL is the system identifier written in the doctype.
	DefaultDTDURL = "https://www.cthing.com/dtd/PositionLog1.dtd"

	// Extension is the conventional file suffix, without the dot.
	Extension = "mpl"
)

// Generator identifies the program that wrote a file.
type Generator struct {
	Name    string
	Version string
	Build   string
}

// Header is the <info> section of a log file.
type Header struct {
	Title       string
	Description string
	Created     time.Time
	Generator   Generator
	Machine     string
}
