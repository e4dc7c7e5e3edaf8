// Package export renders a position log as JSON. Every document is checked
// against an embedded JSON Schema before it is returned.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"meazure/internal/desktop"
	"meazure/internal/logfile"
	"meazure/internal/position"
)

// Format names the document type in the "format" member.
const (
	Format  = "meazure-position-log"
	Version = 1
)

const schemaURL = "https://meazure.local/schema/positionlog-v1.schema.json"

//go:embed positionlog.schema.json
var schemaData []byte

// ErrInvalidDocument is returned when a document fails schema validation.
var ErrInvalidDocument = errors.New("export: document does not match schema")

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Document is the JSON form of a log.
type Document struct {
	Format    string     `json:"format"`
	Version   int        `json:"version"`
	Info      Info       `json:"info"`
	Desktops  []Desktop  `json:"desktops"`
	Positions []Position `json:"positions"`
}

type Info struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Created     string    `json:"created"`
	Generator   Generator `json:"generator"`
	Machine     string    `json:"machine,omitempty"`
}

type Generator struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Build   string `json:"build,omitempty"`
}

type Desktop struct {
	ID          string       `json:"id"`
	Units       Units        `json:"units"`
	CustomUnits *CustomUnits `json:"customUnits,omitempty"`
	Origin      Origin       `json:"origin"`
	Size        Size         `json:"size"`
	Screens     []Screen     `json:"screens"`
}

type Units struct {
	Length string `json:"length"`
	Angle  string `json:"angle"`
}

type CustomUnits struct {
	Name        string         `json:"name"`
	Abbrev      string         `json:"abbrev"`
	ScaleBasis  string         `json:"scaleBasis"`
	ScaleFactor float64        `json:"scaleFactor"`
	Precisions  map[string]int `json:"precisions"`
}

type Origin struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	InvertY bool    `json:"invertY"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Screen struct {
	Description string     `json:"description,omitempty"`
	Primary     bool       `json:"primary"`
	Rect        Rect       `json:"rect"`
	Resolution  Resolution `json:"resolution"`
}

type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

type Resolution struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Manual bool    `json:"manual"`
}

// Position carries only the scalars that were recorded.
type Position struct {
	DesktopRef  string   `json:"desktopRef"`
	Tool        string   `json:"tool"`
	Date        string   `json:"date"`
	Description string   `json:"description,omitempty"`
	Points      []Point  `json:"points"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	Area        *float64 `json:"area,omitempty"`
	Angle       *float64 `json:"angle,omitempty"`
}

type Point struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// New starts a document with the given header and no content.
func New(hdr logfile.Header) *Document {
	return &Document{
		Format:  Format,
		Version: Version,
		Info: Info{
			Title:       hdr.Title,
			Description: hdr.Description,
			Created:     position.FormatTimestamp(hdr.Created),
			Generator: Generator{
				Name:    hdr.Generator.Name,
				Version: hdr.Generator.Version,
				Build:   hdr.Generator.Build,
			},
			Machine: hdr.Machine,
		},
		Desktops:  []Desktop{},
		Positions: []Position{},
	}
}

// Build creates a document from a header, desktops and positions.
func Build(hdr logfile.Header, desktops []*desktop.Desktop, positions []*position.Position) *Document {
	doc := New(hdr)
	for _, d := range desktops {
		doc.AddDesktop(d)
	}
	for _, p := range positions {
		doc.AddPosition(p)
	}
	return doc
}

// AddDesktop appends a desktop snapshot.
func (doc *Document) AddDesktop(d *desktop.Desktop) {
	out := Desktop{
		ID:      d.ID.String(),
		Units:   Units{Length: d.Linear.String(), Angle: d.Angular.String()},
		Origin:  Origin{X: d.Origin.X, Y: d.Origin.Y, InvertY: d.InvertY},
		Size:    Size{Width: d.Size.Width, Height: d.Size.Height},
		Screens: make([]Screen, 0, len(d.Screens)),
	}
	if d.IsCustom() {
		out.CustomUnits = &CustomUnits{
			Name:        d.Custom.Name,
			Abbrev:      d.Custom.Abbrev,
			ScaleBasis:  d.Custom.ScaleBasis.String(),
			ScaleFactor: d.Custom.ScaleFactor,
			Precisions:  d.Custom.PrecisionMap(),
		}
	}
	for _, s := range d.Screens {
		out.Screens = append(out.Screens, Screen{
			Description: s.Description,
			Primary:     s.Primary,
			Rect:        Rect{Top: s.Rect.Top, Bottom: s.Rect.Bottom, Left: s.Rect.Left, Right: s.Rect.Right},
			Resolution: Resolution{
				X:      s.Resolution.Width,
				Y:      s.Resolution.Height,
				Manual: s.ManualResolution,
			},
		})
	}
	doc.Desktops = append(doc.Desktops, out)
}

// AddPosition appends a position. Points are listed in name order.
func (doc *Document) AddPosition(p *position.Position) {
	out := Position{
		DesktopRef:  p.DesktopID().String(),
		Tool:        p.Tool,
		Date:        position.FormatTimestamp(p.Timestamp),
		Description: p.Description,
		Points:      make([]Point, 0, len(p.Points)),
	}
	for _, name := range p.PointNames() {
		pt := p.Points[name]
		out.Points = append(out.Points, Point{Name: name, X: pt.X, Y: pt.Y})
	}

	scalar := func(f position.Field, v float64) *float64 {
		if !p.Has(f) {
			return nil
		}
		return &v
	}
	out.Width = scalar(position.FieldWidth, p.Width)
	out.Height = scalar(position.FieldHeight, p.Height)
	out.Distance = scalar(position.FieldDistance, p.Distance)
	out.Area = scalar(position.FieldArea, p.Area)
	out.Angle = scalar(position.FieldAngle, p.Angle)

	doc.Positions = append(doc.Positions, out)
}

// Marshal renders doc as indented JSON and validates the result.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Validate checks JSON data against the embedded schema.
func Validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaData)); err != nil {
			schemaErr = fmt.Errorf("export: add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("export: compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}
