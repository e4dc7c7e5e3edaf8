package position

import (
	"maps"
	"math"
	"slices"

	"meazure/internal/geom"
)

// Field is a bit set recording which measurement values are populated.
type Field uint32

const (
	FieldX1 Field = 1 << iota
	FieldY1
	FieldX2
	FieldY2
	FieldXV
	FieldYV
	FieldWidth
	FieldHeight
	FieldDistance
	FieldAngle
	FieldArea
)

// Point names used by the measurement tools.
const (
	Point1      = "1"
	Point2      = "2"
	PointVertex = "v"
)

// Measurement is the bag of values a tool reports when a position is
// recorded. Different tools populate different subsets; Fields says which.
type Measurement struct {
	Fields   Field
	Points   map[string]geom.Point
	Width    float64
	Height   float64
	Distance float64
	Area     float64
	Angle    float64
}

// Has reports whether every bit in f is set.
func (m *Measurement) Has(f Field) bool {
	return m.Fields&f == f
}

// AddPoint records a named point without touching the field mask.
func (m *Measurement) AddPoint(name string, p geom.Point) {
	if m.Points == nil {
		m.Points = make(map[string]geom.Point)
	}
	m.Points[name] = p
}

func (m *Measurement) RecordXY1(p geom.Point) {
	m.Fields |= FieldX1 | FieldY1
	m.AddPoint(Point1, p)
}

func (m *Measurement) RecordXY2(p geom.Point) {
	m.Fields |= FieldX2 | FieldY2
	m.AddPoint(Point2, p)
}

func (m *Measurement) RecordXYV(p geom.Point) {
	m.Fields |= FieldXV | FieldYV
	m.AddPoint(PointVertex, p)
}

// RecordWH records width and height.
func (m *Measurement) RecordWH(s geom.Size) {
	m.Fields |= FieldWidth | FieldHeight
	m.Width = s.Width
	m.Height = s.Height
}

// RecordDistance records a distance value directly.
func (m *Measurement) RecordDistance(d float64) {
	m.Fields |= FieldDistance
	m.Distance = d
}

// RecordDistanceSize records the diagonal length of s as the distance.
func (m *Measurement) RecordDistanceSize(s geom.Size) {
	m.RecordDistance(geom.CalcLength(s.Width, s.Height))
}

func (m *Measurement) RecordAngle(a float64) {
	m.Fields |= FieldAngle
	m.Angle = a
}

// RecordRectArea records the area of a rectangle of size s.
func (m *Measurement) RecordRectArea(s geom.Size) {
	m.RecordArea(s.Width * s.Height)
}

// RecordCircleArea records the area of a circle of radius r.
func (m *Measurement) RecordCircleArea(r float64) {
	m.RecordArea(math.Pi * r * r)
}

// RecordArea records an area value directly.
func (m *Measurement) RecordArea(a float64) {
	m.Fields |= FieldArea
	m.Area = a
}

// SetWidth and SetHeight record a single dimension. They are used when
// decoding, where each property is stored separately.
func (m *Measurement) SetWidth(w float64) {
	m.Fields |= FieldWidth
	m.Width = w
}

func (m *Measurement) SetHeight(h float64) {
	m.Fields |= FieldHeight
	m.Height = h
}

// PointNames returns the point names in sorted order.
func (m *Measurement) PointNames() []string {
	return slices.Sorted(maps.Keys(m.Points))
}

// Clone returns a copy with its own point map.
func (m Measurement) Clone() Measurement {
	if m.Points != nil {
		m.Points = maps.Clone(m.Points)
	}
	return m
}

// Equal compares the populated values of two measurements within
// floating point tolerance. Values whose field bit is clear are ignored.
func (m *Measurement) Equal(o *Measurement) bool {
	if m.scalarFields() != o.scalarFields() {
		return false
	}
	if len(m.Points) != len(o.Points) {
		return false
	}
	for name, p := range m.Points {
		q, ok := o.Points[name]
		if !ok || !p.Equal(q) {
			return false
		}
	}

	checks := []struct {
		f    Field
		a, b float64
	}{
		{FieldWidth, m.Width, o.Width},
		{FieldHeight, m.Height, o.Height},
		{FieldDistance, m.Distance, o.Distance},
		{FieldArea, m.Area, o.Area},
		{FieldAngle, m.Angle, o.Angle},
	}
	for _, c := range checks {
		if m.Has(c.f) && !geom.IsFloatingEqual(c.a, c.b) {
			return false
		}
	}
	return true
}

// scalarFields masks out the point bits, which are not persisted.
func (m *Measurement) scalarFields() Field {
	return m.Fields & (FieldWidth | FieldHeight | FieldDistance | FieldAngle | FieldArea)
}
