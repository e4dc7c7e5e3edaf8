package logfile

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"meazure/internal/desktop"
	"meazure/internal/position"
	"meazure/internal/units"
)

// WriteOptions controls document layout details.
type WriteOptions struct {
	DTDURL string // doctype system identifier; DefaultDTDURL when empty
	Indent string // per-level indent; four spaces when empty
}

// Write encodes a current-version log file. Desktops should be exactly the
// snapshots referenced by positions; Write does not check this.
func Write(w io.Writer, hdr Header, desktops []*desktop.Desktop, positions []*position.Position, opts WriteOptions) error {
	if opts.DTDURL == "" {
		opts.DTDURL = DefaultDTDURL
	}
	if opts.Indent == "" {
		opts.Indent = "    "
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(bw, "<!DOCTYPE positionLog SYSTEM %q>\n", opts.DTDURL)

	e := &encoder{enc: xml.NewEncoder(bw)}
	e.enc.Indent("", opts.Indent)

	e.start("positionLog", "version", strconv.Itoa(FormatVersion))
	e.writeInfo(hdr)

	e.start("desktops")
	for _, d := range desktops {
		e.writeDesktop(d)
	}
	e.end("desktops")

	e.start("positions")
	for _, p := range positions {
		e.writePosition(p)
	}
	e.end("positions")

	e.end("positionLog")

	if e.err == nil {
		e.err = e.enc.Flush()
	}
	if e.err != nil {
		return fmt.Errorf("logfile: write: %w", e.err)
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// encoder wraps xml.Encoder and keeps the first error so element emission
// reads linearly.
type encoder struct {
	enc *xml.Encoder
	err error
}

func (e *encoder) start(name string, kv ...string) {
	if e.err != nil {
		return
	}
	se := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(kv); i += 2 {
		se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: kv[i]}, Value: kv[i+1]})
	}
	e.err = e.enc.EncodeToken(se)
}

func (e *encoder) end(name string) {
	if e.err != nil {
		return
	}
	e.err = e.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

// empty writes an element with attributes and no content.
func (e *encoder) empty(name string, kv ...string) {
	e.start(name, kv...)
	e.end(name)
}

// text writes an element whose only content is character data. Carriage
// returns are escaped as &#xD; so CRLF text reads back unchanged.
func (e *encoder) text(name, data string) {
	e.start(name)
	if e.err == nil {
		e.err = e.enc.EncodeToken(xml.CharData(data))
	}
	e.end(name)
}

func (e *encoder) writeInfo(hdr Header) {
	e.start("info")
	e.text("title", hdr.Title)
	e.empty("created", "date", position.FormatTimestamp(hdr.Created))
	e.empty("generator",
		"name", hdr.Generator.Name,
		"version", hdr.Generator.Version,
		"build", hdr.Generator.Build)
	e.empty("machine", "name", hdr.Machine)
	if hdr.Description != "" {
		e.text("desc", hdr.Description)
	}
	e.end("info")
}

func (e *encoder) writeDesktop(d *desktop.Desktop) {
	e.start("desktop", "id", d.ID.String())
	e.empty("units", "length", d.Linear.String(), "angle", d.Angular.String())
	if d.IsCustom() {
		e.empty("customUnits",
			"name", d.Custom.Name,
			"abbrev", d.Custom.Abbrev,
			"scaleBasis", d.Custom.ScaleBasis.String(),
			"scaleFactor", formatFloat(d.Custom.ScaleFactor))
	}
	e.empty("origin",
		"xoffset", formatFloat(d.Origin.X),
		"yoffset", formatFloat(d.Origin.Y),
		"invertY", strconv.FormatBool(d.InvertY))
	e.empty("size", "x", formatFloat(d.Size.Width), "y", formatFloat(d.Size.Height))

	e.start("screens")
	for _, s := range d.Screens {
		e.start("screen", "desc", s.Description, "primary", strconv.FormatBool(s.Primary))
		e.empty("rect",
			"top", formatFloat(s.Rect.Top),
			"bottom", formatFloat(s.Rect.Bottom),
			"left", formatFloat(s.Rect.Left),
			"right", formatFloat(s.Rect.Right))
		e.empty("resolution",
			"x", formatFloat(s.Resolution.Width),
			"y", formatFloat(s.Resolution.Height),
			"manual", strconv.FormatBool(s.ManualResolution))
		e.end("screen")
	}
	e.end("screens")

	if d.IsCustom() {
		e.start("displayPrecisions")
		e.start("displayPrecision", "units", units.Custom.String())
		names := units.LinearPrecisionNames()
		for i, places := range d.Custom.Precisions {
			if i >= len(names) {
				break
			}
			e.empty("measurement", "name", names[i], "decimalPlaces", strconv.Itoa(places))
		}
		e.end("displayPrecision")
		e.end("displayPrecisions")
	}
	e.end("desktop")
}

func (e *encoder) writePosition(p *position.Position) {
	e.start("position",
		"desktopRef", p.DesktopID().String(),
		"tool", p.Tool,
		"date", position.FormatTimestamp(p.Timestamp))
	if p.Description != "" {
		e.text("desc", p.Description)
	}

	e.start("points")
	for _, name := range p.PointNames() {
		pt := p.Points[name]
		e.empty("point", "name", name, "x", formatFloat(pt.X), "y", formatFloat(pt.Y))
	}
	e.end("points")

	e.start("properties")
	props := []struct {
		field position.Field
		name  string
		value float64
	}{
		{position.FieldWidth, "width", p.Width},
		{position.FieldHeight, "height", p.Height},
		{position.FieldDistance, "distance", p.Distance},
		{position.FieldArea, "area", p.Area},
		{position.FieldAngle, "angle", p.Angle},
	}
	for _, prop := range props {
		if p.Has(prop.field) {
			e.empty(prop.name, "value", formatFloat(prop.value))
		}
	}
	e.end("properties")

	e.end("position")
}

// formatFloat uses the shortest representation that parses back to v.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
