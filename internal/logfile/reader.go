package logfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"meazure/internal/desktop"
	"meazure/internal/geom"
	"meazure/internal/identity"
	"meazure/internal/position"
	"meazure/internal/units"
)

// Result describes a successfully read file.
type Result struct {
	Version   int
	Header    Header
	Legacy    bool    // desktop synthesized from version 1 fields
	Desktops  int     // snapshots kept after unreferenced ones were dropped
	Positions int     // positions added to the store
	Warnings  []error // recoverable problems; affected elements were skipped
}

// environment elements that may appear under a desktop, or directly under
// the positions container in version 1 files.
var environmentElements = []string{"units", "customUnits", "origin", "size", "screens", "displayPrecisions"}

type pendingPosition struct {
	index int
	ref   string
	id    identity.ID
	tool  string
	ts    time.Time
	desc  string
	m     position.Measurement
}

// Read decodes a log file into ds and ps. The stores are only modified once
// the whole document has been parsed, so an error leaves them untouched.
// Desktops that no position references are dropped.
func Read(r io.Reader, ds *desktop.Store, ps *position.Store) (*Result, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, err
	}
	if root.name != "positionLog" {
		return nil, malformed("root element is <%s>, want <positionLog>", root.name)
	}

	version, err := root.integer("version", LegacyVersion)
	if err != nil {
		return nil, err
	}
	if version < LegacyVersion || version > FormatVersion {
		return nil, fmt.Errorf("%w: %w %d", ErrMalformedDocument, ErrUnsupportedVersion, version)
	}

	res := &Result{Version: version}
	if info := root.child("info"); info != nil {
		res.Header = readHeader(info, res)
	}

	var desktops []*desktop.Desktop
	var legacy *desktop.Desktop
	if section := root.child("desktops"); section != nil {
		seen := make(map[identity.ID]bool)
		for i, dn := range section.childrenNamed("desktop") {
			raw := dn.str("id", "")
			id, err := identity.Parse(raw)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Errorf("desktop %d: %w %q", i, ErrInvalidIdentity, raw))
				continue
			}
			d, err := readEnvironment(dn)
			if err != nil {
				return nil, fmt.Errorf("desktop %s: %w", id, err)
			}
			if seen[id] {
				res.Warnings = append(res.Warnings, fmt.Errorf("desktop %d: %w", i, desktop.ErrDuplicate))
				continue
			}
			seen[id] = true
			d.ID = id
			desktops = append(desktops, d)
		}
	} else {
		src := root
		if pn := root.child("positions"); pn != nil && hasEnvironment(pn) {
			src = pn
		}
		legacy, err = readEnvironment(src)
		if err != nil {
			return nil, fmt.Errorf("legacy desktop: %w", err)
		}
		res.Legacy = true
	}

	var pending []pendingPosition
	if section := root.child("positions"); section != nil {
		for i, pn := range section.childrenNamed("position") {
			pp, err := readPosition(i, pn, res)
			if err != nil {
				return nil, err
			}
			pending = append(pending, pp)
		}
	}

	// Everything parsed; commit to the stores.
	known := make(map[identity.ID]bool, len(desktops))
	for _, d := range desktops {
		if err := ds.Insert(d); err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("desktop %s: %w", d.ID, err))
			continue
		}
		known[d.ID] = true
	}
	var legacyID identity.ID
	if legacy != nil {
		legacyID = ds.Intern(legacy)
	}

	for _, pp := range pending {
		id := legacyID
		if legacy == nil {
			parsed, err := identity.Parse(pp.ref)
			if err != nil {
				res.Warnings = append(res.Warnings, &ReferenceError{Index: pp.index, Ref: pp.ref, Err: ErrInvalidIdentity})
				continue
			}
			if !known[parsed] {
				res.Warnings = append(res.Warnings, &ReferenceError{Index: pp.index, Ref: pp.ref, Err: ErrUnknownSnapshotReference})
				continue
			}
			id = parsed
		}

		p := position.New(desktop.NewRef(ds, id), pp.tool, pp.ts, pp.m)
		p.Description = pp.desc
		ps.Append(p)
		res.Positions++
	}

	ds.Prune()
	res.Desktops = ds.Len()
	return res, nil
}

func readHeader(info *node, res *Result) Header {
	var hdr Header
	if n := info.child("title"); n != nil {
		hdr.Title = n.text.String()
	}
	if n := info.child("desc"); n != nil {
		hdr.Description = n.text.String()
	}
	if n := info.child("created"); n != nil {
		raw := n.str("date", "")
		ts, err := position.ParseTimestamp(raw)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("info: created date %q: %w", raw, err))
		} else {
			hdr.Created = ts
		}
	}
	if n := info.child("generator"); n != nil {
		hdr.Generator = Generator{
			Name:    n.str("name", ""),
			Version: n.str("version", ""),
			Build:   n.str("build", ""),
		}
	}
	if n := info.child("machine"); n != nil {
		hdr.Machine = n.str("name", "")
	}
	return hdr
}

func hasEnvironment(n *node) bool {
	for _, name := range environmentElements {
		if n.child(name) != nil {
			return true
		}
	}
	return false
}

// readEnvironment builds a snapshot from the environment elements directly
// under n. Missing elements keep the defaults.
func readEnvironment(n *node) (*desktop.Desktop, error) {
	d := desktop.Default()

	if u := n.child("units"); u != nil {
		var err error
		if v, ok := u.attr("length"); ok {
			if d.Linear, err = units.ParseLinear(v); err != nil {
				return nil, malformed("%v", err)
			}
		}
		if v, ok := u.attr("angle"); ok {
			if d.Angular, err = units.ParseAngular(v); err != nil {
				return nil, malformed("%v", err)
			}
		}
	}

	if d.IsCustom() {
		d.Custom = units.DefaultCustomUnits()
		if c := n.child("customUnits"); c != nil {
			d.Custom.Name = c.str("name", "")
			d.Custom.Abbrev = c.str("abbrev", "")
			if v, ok := c.attr("scaleBasis"); ok {
				basis, err := units.ParseScaleBasis(v)
				if err != nil {
					return nil, malformed("%v", err)
				}
				d.Custom.ScaleBasis = basis
			}
			factor, err := c.float("scaleFactor", d.Custom.ScaleFactor)
			if err != nil {
				return nil, err
			}
			d.Custom.ScaleFactor = factor
		}
		precisions, err := readPrecisions(n.child("displayPrecisions"))
		if err != nil {
			return nil, err
		}
		d.Custom.Precisions = precisions
	}

	if o := n.child("origin"); o != nil {
		fr := floatReader{n: o}
		d.Origin = geom.Point{X: fr.get("xoffset", 0), Y: fr.get("yoffset", 0)}
		if fr.err != nil {
			return nil, fr.err
		}
		invert, err := o.boolean("invertY", false)
		if err != nil {
			return nil, err
		}
		d.InvertY = invert
	}

	if s := n.child("size"); s != nil {
		fr := floatReader{n: s}
		d.Size = geom.Size{Width: fr.get("x", 0), Height: fr.get("y", 0)}
		if fr.err != nil {
			return nil, fr.err
		}
	}

	if screens := n.child("screens"); screens != nil {
		for _, sn := range screens.childrenNamed("screen") {
			s, err := readScreen(sn)
			if err != nil {
				return nil, err
			}
			d.Screens = append(d.Screens, s)
		}
	}

	return d, nil
}

func readScreen(n *node) (desktop.Screen, error) {
	s := desktop.Screen{Description: n.str("desc", "")}

	primary, err := n.boolean("primary", false)
	if err != nil {
		return s, err
	}
	s.Primary = primary

	if r := n.child("rect"); r != nil {
		fr := floatReader{n: r}
		s.Rect = geom.Rect{
			Top:    fr.get("top", 0),
			Bottom: fr.get("bottom", 0),
			Left:   fr.get("left", 0),
			Right:  fr.get("right", 0),
		}
		if fr.err != nil {
			return s, fr.err
		}
	}

	if r := n.child("resolution"); r != nil {
		fr := floatReader{n: r}
		s.Resolution = geom.Size{Width: fr.get("x", 0), Height: fr.get("y", 0)}
		if fr.err != nil {
			return s, fr.err
		}
		manual, err := r.boolean("manual", false)
		if err != nil {
			return s, err
		}
		s.ManualResolution = manual
	}
	return s, nil
}

// readPrecisions reads the custom unit decimal places. Names that are not in
// the file take the custom unit defaults.
func readPrecisions(n *node) ([]int, error) {
	places := make(map[string]int)
	if n != nil {
		for _, dp := range n.childrenNamed("displayPrecision") {
			if u := dp.str("units", units.Custom.String()); u != units.Custom.String() {
				continue
			}
			for _, m := range dp.childrenNamed("measurement") {
				name := m.str("name", "")
				v, err := m.integer("decimalPlaces", 0)
				if err != nil {
					return nil, err
				}
				places[name] = v
			}
		}
	}
	return units.PrecisionsFromMap(places), nil
}

func readPosition(index int, n *node, res *Result) (pendingPosition, error) {
	pp := pendingPosition{
		index: index,
		ref:   strings.TrimSpace(n.str("desktopRef", "")),
		tool:  n.str("tool", ""),
	}

	rawDate := n.str("date", "")
	ts, err := position.ParseTimestamp(rawDate)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Errorf("position %d: date %q: %w", index, rawDate, err))
	} else {
		pp.ts = ts
	}

	if d := n.child("desc"); d != nil {
		pp.desc = d.text.String()
	}

	if points := n.child("points"); points != nil {
		for _, pn := range points.childrenNamed("point") {
			fr := floatReader{n: pn}
			pt := geom.Point{X: fr.get("x", 0), Y: fr.get("y", 0)}
			if fr.err != nil {
				return pp, fmt.Errorf("position %d: %w", index, fr.err)
			}
			pp.m.AddPoint(pn.str("name", ""), pt)
		}
	}

	if props := n.child("properties"); props != nil {
		for _, prop := range props.children {
			var set func(float64)
			switch prop.name {
			case "width":
				set = pp.m.SetWidth
			case "height":
				set = pp.m.SetHeight
			case "distance":
				set = pp.m.RecordDistance
			case "area":
				set = pp.m.RecordArea
			case "angle":
				set = pp.m.RecordAngle
			default:
				// unknown properties are ignored, whatever their value
				continue
			}
			v, err := prop.float("value", 0)
			if err != nil {
				return pp, fmt.Errorf("position %d: %w", index, err)
			}
			set(v)
		}
	}
	return pp, nil
}

// ParseVersion returns the version attribute of a document without reading
// the rest of it into stores.
func ParseVersion(r io.Reader) (int, error) {
	root, err := parseTree(r)
	if err != nil {
		return 0, err
	}
	raw, ok := root.attr("version")
	if !ok {
		return LegacyVersion, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, malformed("version %q", raw)
	}
	return v, nil
}
