// Package position holds recorded measurement positions and the ordered
// collection they are kept in.
package position

import (
	"time"

	"meazure/internal/desktop"
	"meazure/internal/identity"
)

// TimestampLayout is the UTC form used for position and header dates.
const TimestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in UTC at second resolution.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Position is one recorded measurement. It owns a counted reference to the
// desktop snapshot active when it was recorded: Clone acquires a new
// reference and Release gives it back.
type Position struct {
	Measurement
	Tool        string
	Description string
	Timestamp   time.Time

	ref desktop.Ref
}

// New creates a position that takes ownership of ref. The timestamp is
// truncated to whole seconds in UTC, which is what the log file stores.
func New(ref desktop.Ref, tool string, ts time.Time, m Measurement) *Position {
	return &Position{
		Measurement: m,
		Tool:        tool,
		Timestamp:   ts.UTC().Truncate(time.Second),
		ref:         ref,
	}
}

// DesktopID returns the identity of the referenced snapshot.
func (p *Position) DesktopID() identity.ID {
	return p.ref.ID()
}

// Clone returns an independent copy holding its own snapshot reference.
func (p *Position) Clone() *Position {
	c := *p
	c.Measurement = p.Measurement.Clone()
	c.ref = p.ref.Clone()
	return &c
}

// Release gives back the snapshot reference. It is safe to call twice.
func (p *Position) Release() {
	p.ref.Release()
}

// Equal compares two positions by value, including the snapshot identity.
func (p *Position) Equal(o *Position) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.DesktopID() == o.DesktopID() &&
		p.Tool == o.Tool &&
		p.Description == o.Description &&
		p.Timestamp.Equal(o.Timestamp) &&
		p.Measurement.Equal(&o.Measurement)
}
