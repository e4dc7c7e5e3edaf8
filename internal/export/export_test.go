package export

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meazure/internal/desktop"
	"meazure/internal/geom"
	"meazure/internal/identity"
	"meazure/internal/logfile"
	"meazure/internal/position"
	"meazure/internal/units"
)

func sampleDocument(t *testing.T) *Document {
	t.Helper()

	ds := desktop.NewStore(identity.Sequence(1))
	d := desktop.Default()
	d.Linear = units.Custom
	d.Custom = units.DefaultCustomUnits()
	d.Custom.Name = "Widgets"
	d.Custom.Abbrev = "wd"
	d.Size = geom.Size{Width: 1920, Height: 1080}
	d.Screens = []desktop.Screen{{
		Rect:       geom.Rect{Bottom: 1080, Right: 1920},
		Resolution: geom.Size{Width: 96, Height: 96},
		Primary:    true,
	}}
	id := ds.Intern(d)

	var m position.Measurement
	m.RecordXY1(geom.Point{X: 1, Y: 2})
	m.RecordXY2(geom.Point{X: 4, Y: 6})
	m.RecordDistance(5)
	p := position.New(desktop.NewRef(ds, id), "LineTool", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), m)
	p.Description = "edge"
	t.Cleanup(p.Release)

	hdr := logfile.Header{
		Title:     "Bench",
		Created:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Generator: logfile.Generator{Name: "meazure", Version: "1.0"},
	}
	return Build(hdr, ds.Referenced(), []*position.Position{p})
}

func TestMarshalValidates(t *testing.T) {
	data, err := Marshal(sampleDocument(t))
	require.NoError(t, err)
	require.NoError(t, Validate(data))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Format, decoded["format"])

	positions := decoded["positions"].([]any)
	require.Len(t, positions, 1)
	p := positions[0].(map[string]any)
	assert.Equal(t, "LineTool", p["tool"])
	assert.Equal(t, "2024-01-02T03:04:05Z", p["date"])
	assert.Equal(t, 5.0, p["distance"])
	assert.NotContains(t, p, "width", "unrecorded scalars are omitted")

	points := p["points"].([]any)
	require.Len(t, points, 2)
	assert.Equal(t, "1", points[0].(map[string]any)["name"])

	desktops := decoded["desktops"].([]any)
	require.Len(t, desktops, 1)
	custom := desktops[0].(map[string]any)["customUnits"].(map[string]any)
	assert.Equal(t, "Widgets", custom["name"])
	assert.Len(t, custom["precisions"], len(units.LinearPrecisionNames()))
}

func TestBuildOmitsCustomForStandardUnits(t *testing.T) {
	doc := New(logfile.Header{Title: "x", Generator: logfile.Generator{Name: "meazure"}})
	d := desktop.Default()
	d.ID = identity.MustParse("00000000-0000-0000-0000-000000000001")
	doc.AddDesktop(d)

	require.Len(t, doc.Desktops, 1)
	assert.Nil(t, doc.Desktops[0].CustomUnits)
	assert.Equal(t, "px", doc.Desktops[0].Units.Length)
	assert.NotNil(t, doc.Desktops[0].Screens)

	_, err := Marshal(doc)
	assert.NoError(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"wrong format", `{"format":"other","version":1,"info":{"title":"","created":"2024-01-01T00:00:00Z","generator":{"name":"m"}},"desktops":[],"positions":[]}`},
		{"bad date", `{"format":"meazure-position-log","version":1,"info":{"title":"","created":"yesterday","generator":{"name":"m"}},"desktops":[],"positions":[]}`},
		{"missing positions", `{"format":"meazure-position-log","version":1,"info":{"title":"","created":"2024-01-01T00:00:00Z","generator":{"name":"m"}},"desktops":[]}`},
		{"bad unit", `{"format":"meazure-position-log","version":1,"info":{"title":"","created":"2024-01-01T00:00:00Z","generator":{"name":"m"}},"desktops":[{"id":"00000000-0000-0000-0000-000000000001","units":{"length":"furlong","angle":"deg"},"origin":{"x":0,"y":0,"invertY":false},"size":{"width":0,"height":0},"screens":[]}],"positions":[]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate([]byte(tc.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument))
		})
	}
}
