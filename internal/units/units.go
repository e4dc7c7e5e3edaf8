// Package units names the measurement unit kinds recorded with a position
// and the per-unit display precision tables.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnits is returned when a unit identifier is not recognised.
var ErrUnknownUnits = errors.New("units: unknown units")

// Linear identifies the units used for length measurements.
type Linear int

const (
	Pixels Linear = iota
	Points
	Picas
	Twips
	Inches
	Centimeters
	Millimeters
	Custom
)

var linearNames = [...]string{
	Pixels:      "px",
	Points:      "pt",
	Picas:       "pc",
	Twips:       "tp",
	Inches:      "in",
	Centimeters: "cm",
	Millimeters: "mm",
	Custom:      "custom",
}

// String returns the identifier written to log files (e.g. "px").
func (l Linear) String() string {
	if l < 0 || int(l) >= len(linearNames) {
		return fmt.Sprintf("Linear(%d)", int(l))
	}
	return linearNames[l]
}

// IsValid reports whether l is a known linear unit.
func (l Linear) IsValid() bool {
	return l >= 0 && int(l) < len(linearNames)
}

// ParseLinear converts an identifier such as "in" to its Linear value.
func ParseLinear(s string) (Linear, error) {
	s = strings.TrimSpace(s)
	for i, name := range linearNames {
		if name == s {
			return Linear(i), nil
		}
	}
	return Pixels, fmt.Errorf("%w: linear %q", ErrUnknownUnits, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Linear) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("%w: linear %d", ErrUnknownUnits, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Linear) UnmarshalText(text []byte) error {
	v, err := ParseLinear(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Angular identifies the units used for angle measurements.
type Angular int

const (
	Degrees Angular = iota
	Radians
)

var angularNames = [...]string{
	Degrees: "deg",
	Radians: "rad",
}

func (a Angular) String() string {
	if a < 0 || int(a) >= len(angularNames) {
		return fmt.Sprintf("Angular(%d)", int(a))
	}
	return angularNames[a]
}

// IsValid reports whether a is a known angular unit.
func (a Angular) IsValid() bool {
	return a >= 0 && int(a) < len(angularNames)
}

// ParseAngular converts an identifier such as "rad" to its Angular value.
func ParseAngular(s string) (Angular, error) {
	s = strings.TrimSpace(s)
	for i, name := range angularNames {
		if name == s {
			return Angular(i), nil
		}
	}
	return Degrees, fmt.Errorf("%w: angular %q", ErrUnknownUnits, s)
}

func (a Angular) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("%w: angular %d", ErrUnknownUnits, int(a))
	}
	return []byte(a.String()), nil
}

func (a *Angular) UnmarshalText(text []byte) error {
	v, err := ParseAngular(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ScaleBasis is the unit a custom scale factor is expressed against.
type ScaleBasis int

const (
	PixelBasis ScaleBasis = iota
	InchBasis
	CentimeterBasis
)

var basisNames = [...]string{
	PixelBasis:      "px",
	InchBasis:       "in",
	CentimeterBasis: "cm",
}

func (b ScaleBasis) String() string {
	if b < 0 || int(b) >= len(basisNames) {
		return ""
	}
	return basisNames[b]
}

// ParseScaleBasis converts "px", "in" or "cm" to a ScaleBasis.
func ParseScaleBasis(s string) (ScaleBasis, error) {
	s = strings.TrimSpace(s)
	for i, name := range basisNames {
		if name == s {
			return ScaleBasis(i), nil
		}
	}
	return PixelBasis, fmt.Errorf("%w: scale basis %q", ErrUnknownUnits, s)
}

// Linear display precision names, in table order.
const (
	PrecisionX      = "x"
	PrecisionY      = "y"
	PrecisionWidth  = "w"
	PrecisionHeight = "h"
	PrecisionDist   = "d"
	PrecisionArea   = "area"
	PrecisionResX   = "rx"
	PrecisionResY   = "ry"

	PrecisionAngle = "angle"
)

var linearPrecisionNames = []string{
	PrecisionX, PrecisionY, PrecisionWidth, PrecisionHeight,
	PrecisionDist, PrecisionArea, PrecisionResX, PrecisionResY,
}

// LinearPrecisionNames returns the names of the linear display precisions.
// The returned slice is a copy.
func LinearPrecisionNames() []string {
	return append([]string(nil), linearPrecisionNames...)
}

// AngularPrecisionNames returns the names of the angular display precisions.
func AngularPrecisionNames() []string {
	return []string{PrecisionAngle}
}

var linearPrecisions = map[Linear][]int{
	Pixels:      {0, 0, 0, 0, 1, 0, 1, 1},
	Points:      {1, 1, 1, 1, 1, 1, 2, 2},
	Picas:       {2, 2, 2, 2, 2, 2, 1, 1},
	Twips:       {0, 0, 0, 0, 0, 0, 4, 4},
	Inches:      {3, 3, 3, 3, 3, 3, 1, 1},
	Centimeters: {2, 2, 2, 2, 2, 2, 1, 1},
	Millimeters: {1, 1, 1, 1, 1, 1, 2, 2},
	Custom:      {0, 0, 0, 0, 1, 0, 1, 1},
}

// DefaultPrecisions returns the default decimal places for each linear
// precision name of the given unit.
func DefaultPrecisions(l Linear) []int {
	p, ok := linearPrecisions[l]
	if !ok {
		p = linearPrecisions[Pixels]
	}
	return append([]int(nil), p...)
}

// DefaultAngularPrecisions returns the default decimal places for angles.
func DefaultAngularPrecisions(a Angular) []int {
	if a == Radians {
		return []int{3}
	}
	return []int{1}
}

// CustomUnits describes a user-defined linear unit.
type CustomUnits struct {
	Name        string
	Abbrev      string
	ScaleBasis  ScaleBasis
	ScaleFactor float64
	Precisions  []int
}

// DefaultCustomUnits returns an unnamed custom unit with a unit scale.
func DefaultCustomUnits() CustomUnits {
	return CustomUnits{
		ScaleBasis:  PixelBasis,
		ScaleFactor: 1,
		Precisions:  DefaultPrecisions(Custom),
	}
}

// Clone returns a deep copy of c.
func (c CustomUnits) Clone() CustomUnits {
	c.Precisions = append([]int(nil), c.Precisions...)
	return c
}

// PrecisionMap keys the precisions by linear precision name.
func (c CustomUnits) PrecisionMap() map[string]int {
	m := make(map[string]int, len(c.Precisions))
	for i, p := range c.Precisions {
		if i < len(linearPrecisionNames) {
			m[linearPrecisionNames[i]] = p
		}
	}
	return m
}

// PrecisionsFromMap orders the named decimal places by the linear precision
// names. Names missing from m take the custom unit defaults.
func PrecisionsFromMap(m map[string]int) []int {
	defaults := linearPrecisions[Custom]
	out := make([]int, len(linearPrecisionNames))
	for i, name := range linearPrecisionNames {
		if v, ok := m[name]; ok {
			out[i] = v
		} else {
			out[i] = defaults[i]
		}
	}
	return out
}
