package main

import (
	"fmt"
	"io"

	"meazure/internal/desktop"
	"meazure/internal/geom"
	"meazure/internal/logfile"
	"meazure/internal/logmgr"
	"meazure/internal/position"
	"meazure/internal/units"
)

// The CLI has no live measurement tools or screens; these stand-ins accept
// whatever ShowPosition applies and report an empty environment.

type headlessTools struct {
	name   string
	points map[string]geom.Point
}

func (t *headlessTools) CurrentToolName() string                  { return t.name }
func (t *headlessTools) CurrentMeasurement() position.Measurement { return position.Measurement{} }
func (t *headlessTools) SetTool(name string)                      { t.name = name }
func (t *headlessTools) ApplyPoints(p map[string]geom.Point)      { t.points = p }

type headlessUnits struct {
	linear  units.Linear
	angular units.Angular
	custom  units.CustomUnits
	origin  geom.Point
	invertY bool
}

func newHeadlessUnits() *headlessUnits {
	return &headlessUnits{linear: units.Pixels, angular: units.Degrees, custom: units.DefaultCustomUnits()}
}

func (u *headlessUnits) LinearUnits() units.Linear          { return u.linear }
func (u *headlessUnits) AngularUnits() units.Angular        { return u.angular }
func (u *headlessUnits) CustomUnits() units.CustomUnits     { return u.custom }
func (u *headlessUnits) Origin() geom.Point                 { return u.origin }
func (u *headlessUnits) InvertY() bool                      { return u.invertY }
func (u *headlessUnits) SetLinearUnits(l units.Linear)      { u.linear = l }
func (u *headlessUnits) SetAngularUnits(a units.Angular)    { u.angular = a }
func (u *headlessUnits) SetCustomUnits(c units.CustomUnits) { u.custom = c }
func (u *headlessUnits) SetOrigin(p geom.Point)             { u.origin = p }
func (u *headlessUnits) SetInvertY(b bool)                  { u.invertY = b }

type headlessScreens struct{}

func (headlessScreens) VirtualSize() geom.Size    { return geom.Size{} }
func (headlessScreens) Screens() []desktop.Screen { return nil }

// pathChooser answers every dialog with a fixed path and keeps the current
// title and description.
type pathChooser struct {
	path string
}

func (c pathChooser) OpenPath(string) (string, error) {
	if c.path == "" {
		return "", logmgr.ErrCanceled
	}
	return c.path, nil
}

func (c pathChooser) SavePath(req logmgr.SaveRequest) (logmgr.SaveChoice, error) {
	if c.path == "" {
		return logmgr.SaveChoice{}, logmgr.ErrCanceled
	}
	return logmgr.SaveChoice{Path: c.path, Title: req.Title, Description: req.Description}, nil
}

type stderrNotifier struct {
	w io.Writer
}

func (n *stderrNotifier) NotifyError(op string, err error) {
	fmt.Fprintf(n.w, "Error: %s failed: %v\n", op, err)
}

func logfileGenerator(name, version, build string) logfile.Generator {
	return logfile.Generator{Name: name, Version: version, Build: build}
}
