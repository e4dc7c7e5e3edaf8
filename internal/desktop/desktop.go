// Package desktop captures the measurement environment that was active when
// a position was recorded, and deduplicates those snapshots by value.
package desktop

import (
	"slices"

	"meazure/internal/geom"
	"meazure/internal/identity"
	"meazure/internal/units"
)

// Screen describes one monitor at snapshot time. Coordinates are in the
// linear units active when the snapshot was taken.
type Screen struct {
	Rect             geom.Rect
	Resolution       geom.Size
	ManualResolution bool
	Primary          bool
	Description      string
}

// Equal reports whether s and o describe the same screen.
func (s Screen) Equal(o Screen) bool {
	return s.Rect.Equal(o.Rect) &&
		s.Resolution.Equal(o.Resolution) &&
		s.ManualResolution == o.ManualResolution &&
		s.Primary == o.Primary &&
		s.Description == o.Description
}

// Desktop is a snapshot of the measurement environment: units, origin,
// virtual desktop size and the attached screens.
//
// Custom is only meaningful when Linear is units.Custom and is left at its
// zero value otherwise.
type Desktop struct {
	ID      identity.ID
	Linear  units.Linear
	Angular units.Angular
	Custom  units.CustomUnits
	Origin  geom.Point
	InvertY bool
	Size    geom.Size
	Screens []Screen
}

// Default returns a pixel/degree environment with no screens and a zero
// origin. It is the starting point when a file omits environment fields.
func Default() *Desktop {
	return &Desktop{
		Linear:  units.Pixels,
		Angular: units.Degrees,
	}
}

// IsCustom reports whether the snapshot uses custom linear units.
func (d *Desktop) IsCustom() bool {
	return d.Linear == units.Custom
}

// Clone returns a deep copy of d.
func (d *Desktop) Clone() *Desktop {
	c := *d
	c.Custom = d.Custom.Clone()
	c.Screens = slices.Clone(d.Screens)
	return &c
}

// Equal compares every field except ID. Floating point fields are compared
// within tolerance.
func (d *Desktop) Equal(o *Desktop) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Linear != o.Linear || d.Angular != o.Angular || d.InvertY != o.InvertY {
		return false
	}
	if !d.Origin.Equal(o.Origin) || !d.Size.Equal(o.Size) {
		return false
	}
	if d.Custom.Name != o.Custom.Name ||
		d.Custom.Abbrev != o.Custom.Abbrev ||
		d.Custom.ScaleBasis != o.Custom.ScaleBasis ||
		!geom.IsFloatingEqual(d.Custom.ScaleFactor, o.Custom.ScaleFactor) ||
		!slices.Equal(d.Custom.Precisions, o.Custom.Precisions) {
		return false
	}
	return slices.EqualFunc(d.Screens, o.Screens, Screen.Equal)
}

// PrimaryScreen returns the screen flagged as primary, if any.
func (d *Desktop) PrimaryScreen() (Screen, bool) {
	for _, s := range d.Screens {
		if s.Primary {
			return s, true
		}
	}
	return Screen{}, false
}
