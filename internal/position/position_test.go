package position

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meazure/internal/desktop"
	"meazure/internal/geom"
	"meazure/internal/identity"
	"meazure/internal/units"
)

func newTestStore(t *testing.T) (*desktop.Store, identity.ID) {
	t.Helper()
	ds := desktop.NewStore(identity.Sequence(1))
	id := ds.Intern(&desktop.Desktop{Linear: units.Pixels, Angular: units.Degrees})
	return ds, id
}

func newPosition(ds *desktop.Store, id identity.ID, tool string) *Position {
	var m Measurement
	m.RecordXY1(geom.Point{X: 10, Y: 20})
	return New(desktop.NewRef(ds, id), tool, time.Date(2024, 3, 1, 12, 30, 45, 500, time.UTC), m)
}

func TestMeasurementRecord(t *testing.T) {
	var m Measurement
	m.RecordXY1(geom.Point{X: 1, Y: 2})
	m.RecordXY2(geom.Point{X: 4, Y: 6})
	m.RecordXYV(geom.Point{X: 0, Y: 0})
	m.RecordWH(geom.Size{Width: 3, Height: 4})
	m.RecordDistanceSize(geom.Size{Width: 3, Height: 4})
	m.RecordAngle(45)
	m.RecordRectArea(geom.Size{Width: 3, Height: 4})

	assert.True(t, m.Has(FieldX1|FieldY1|FieldX2|FieldY2|FieldXV|FieldYV))
	assert.True(t, m.Has(FieldWidth|FieldHeight|FieldDistance|FieldAngle|FieldArea))
	assert.Equal(t, 5.0, m.Distance)
	assert.Equal(t, 12.0, m.Area)
	assert.Equal(t, []string{"1", "2", "v"}, m.PointNames())

	var c Measurement
	c.RecordCircleArea(2)
	assert.InDelta(t, 4*math.Pi, c.Area, 1e-12)
	assert.False(t, c.Has(FieldWidth))
}

func TestMeasurementEqual(t *testing.T) {
	var a, b Measurement
	a.RecordXY1(geom.Point{X: 1, Y: 2})
	a.RecordDistance(7)
	b.AddPoint(Point1, geom.Point{X: 1, Y: 2})
	b.RecordDistance(7.0000000001)
	assert.True(t, a.Equal(&b), "point bits are not compared")

	b.Width = 99
	assert.True(t, a.Equal(&b), "unset scalars are ignored")

	b.SetWidth(99)
	assert.False(t, a.Equal(&b))
}

func TestMeasurementClone(t *testing.T) {
	var m Measurement
	m.RecordXY1(geom.Point{X: 1, Y: 1})
	c := m.Clone()
	c.AddPoint(Point2, geom.Point{})
	assert.Len(t, m.Points, 1)
}

func TestPositionLifetime(t *testing.T) {
	ds, id := newTestStore(t)

	p := newPosition(ds, id, "PointTool")
	assert.Equal(t, 1, ds.RefCount(id))
	assert.Equal(t, id, p.DesktopID())
	assert.Equal(t, 0, p.Timestamp.Nanosecond())

	c := p.Clone()
	assert.Equal(t, 2, ds.RefCount(id))
	assert.True(t, p.Equal(c))

	c.AddPoint(Point2, geom.Point{X: 5})
	assert.Len(t, p.Points, 1, "clone must not share points")

	p.Release()
	p.Release()
	assert.Equal(t, 1, ds.RefCount(id))
	c.Release()
	assert.False(t, ds.Contains(id))
}

func TestPositionEqual(t *testing.T) {
	ds, id := newTestStore(t)
	a := newPosition(ds, id, "PointTool")
	b := newPosition(ds, id, "PointTool")
	assert.True(t, a.Equal(b))

	b.Tool = "LineTool"
	assert.False(t, a.Equal(b))

	b.Tool = a.Tool
	b.Description = "note"
	assert.False(t, a.Equal(b))

	b.Description = ""
	b.Timestamp = b.Timestamp.Add(time.Second)
	assert.False(t, a.Equal(b))

	assert.False(t, a.Equal(nil))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2021, 12, 31, 23, 59, 58, 0, time.FixedZone("X", 3600))
	s := FormatTimestamp(ts)
	assert.Equal(t, "2021-12-31T22:59:58Z", s)

	back, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, back.Equal(ts))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestStoreAppendGet(t *testing.T) {
	ds, id := newTestStore(t)
	s := NewStore()
	assert.True(t, s.IsEmpty())

	for i := 0; i < 3; i++ {
		assert.Equal(t, i, s.Append(newPosition(ds, id, "PointTool")))
	}
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, ds.RefCount(id))

	_, err := s.Get(3)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = s.Get(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestStoreDeleteReindexes(t *testing.T) {
	ds, id := newTestStore(t)
	s := NewStore()
	tools := []string{"a", "b", "c", "d"}
	for _, tool := range tools {
		s.Append(newPosition(ds, id, tool))
	}

	require.NoError(t, s.Delete(1))
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 3, ds.RefCount(id))

	want := []string{"a", "c", "d"}
	for i, tool := range want {
		p, err := s.Get(i)
		require.NoError(t, err)
		assert.Equal(t, tool, p.Tool)
	}

	require.NoError(t, s.Delete(2))
	assert.ErrorIs(t, s.Delete(2), ErrIndexOutOfRange)
	assert.Equal(t, 2, s.Len())

	s.DeleteAll()
	assert.True(t, s.IsEmpty())
	assert.False(t, ds.Contains(id))
}

func TestStoreReplace(t *testing.T) {
	ds, id := newTestStore(t)
	s := NewStore()
	s.Append(newPosition(ds, id, "PointTool"))

	// The replacement references the same snapshot; it is constructed
	// first so the count never reaches zero.
	require.NoError(t, s.Replace(0, newPosition(ds, id, "LineTool")))
	assert.Equal(t, 1, ds.RefCount(id))
	assert.True(t, ds.Contains(id))

	p, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "LineTool", p.Tool)

	extra := newPosition(ds, id, "RectTool")
	assert.ErrorIs(t, s.Replace(1, extra), ErrIndexOutOfRange)
	extra.Release()
	assert.Equal(t, 1, ds.RefCount(id))
}

func TestStoreAllIsCopy(t *testing.T) {
	ds, id := newTestStore(t)
	s := NewStore()
	s.Append(newPosition(ds, id, "a"))
	all := s.All()
	all[0] = nil
	p, err := s.Get(0)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
