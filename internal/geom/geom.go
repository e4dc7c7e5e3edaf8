// Package geom holds the floating-point geometry primitives shared by the
// position log packages.
package geom

import "math"

// floatEpsilon is the single-precision machine epsilon. Recorded values pass
// through unit conversions, so equality is judged at float32 resolution.
const floatEpsilon = 1.1920928955078125e-07

// Point is a location in the units active when it was recorded.
type Point struct {
	X float64
	Y float64
}

// Size is a width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// Rect is an axis-aligned rectangle described by its edges.
type Rect struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// Equal reports whether p and o are equal within floating-point tolerance.
func (p Point) Equal(o Point) bool {
	return IsFloatingEqual(p.X, o.X) && IsFloatingEqual(p.Y, o.Y)
}

// Equal reports whether s and o are equal within floating-point tolerance.
func (s Size) Equal(o Size) bool {
	return IsFloatingEqual(s.Width, o.Width) && IsFloatingEqual(s.Height, o.Height)
}

// Equal reports whether r and o are equal within floating-point tolerance.
func (r Rect) Equal(o Rect) bool {
	return IsFloatingEqual(r.Top, o.Top) &&
		IsFloatingEqual(r.Bottom, o.Bottom) &&
		IsFloatingEqual(r.Left, o.Left) &&
		IsFloatingEqual(r.Right, o.Right)
}

// IsFloatingEqual compares two values using a relative epsilon.
func IsFloatingEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest < 1 {
		return diff <= floatEpsilon
	}
	return diff <= largest*floatEpsilon
}

// IsFloatingZero reports whether v is within epsilon of zero.
func IsFloatingZero(v float64) bool {
	return math.Abs(v) <= floatEpsilon
}

// CalcLength returns the length of the hypotenuse for the given sides.
func CalcLength(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}
