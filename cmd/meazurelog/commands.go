package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"meazure/internal/desktop"
	"meazure/internal/export"
	"meazure/internal/fileutil"
	"meazure/internal/logfile"
	"meazure/internal/logmgr"
	"meazure/internal/position"
	"meazure/internal/watcher"
)

// open loads path into a fresh manager.
func (a *app) open(path string, digests logmgr.DigestSink) (*logmgr.Manager, *logfile.Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := a.manager(pathChooser{path: abs}, digests)
	if err != nil {
		return nil, nil, err
	}
	res, err := m.Load(abs)
	if err != nil {
		return nil, nil, errReported
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(a.stderr, "Warning: %v\n", w)
	}
	return m, res, nil
}

func (a *app) cmdInfo(path string) error {
	m, res, err := a.open(path, nil)
	if err != nil {
		return err
	}

	hdr := res.Header
	fmt.Fprintf(a.stdout, "File:        %s\n", m.Path())
	fmt.Fprintf(a.stdout, "Version:     %d", res.Version)
	if res.Legacy {
		fmt.Fprint(a.stdout, " (legacy single desktop)")
	}
	fmt.Fprintln(a.stdout)
	fmt.Fprintf(a.stdout, "Title:       %s\n", hdr.Title)
	if hdr.Description != "" {
		fmt.Fprintf(a.stdout, "Description: %s\n", indentLines(hdr.Description, "             "))
	}
	if !hdr.Created.IsZero() {
		fmt.Fprintf(a.stdout, "Created:     %s\n", position.FormatTimestamp(hdr.Created))
	}
	if hdr.Generator.Name != "" {
		fmt.Fprintf(a.stdout, "Generator:   %s %s (build %s)\n", hdr.Generator.Name, hdr.Generator.Version, hdr.Generator.Build)
	}
	if hdr.Machine != "" {
		fmt.Fprintf(a.stdout, "Machine:     %s\n", hdr.Machine)
	}
	fmt.Fprintf(a.stdout, "Positions:   %d\n", m.Count())
	fmt.Fprintf(a.stdout, "Desktops:    %d\n", m.DesktopCount())
	if len(res.Warnings) > 0 {
		fmt.Fprintf(a.stdout, "Warnings:    %d\n", len(res.Warnings))
	}
	digest := m.Digest()
	fmt.Fprintf(a.stdout, "Digest:      %s\n", hex.EncodeToString(digest[:]))
	return nil
}

func (a *app) cmdList(path string) error {
	m, _, err := a.open(path, nil)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTOOL\tDATE\tUNITS\tPOINTS\tVALUES")
	m.Each(func(i int, p *position.Position, d *desktop.Desktop) {
		unit := "?"
		if d != nil {
			unit = unitLabel(d)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i, p.Tool, position.FormatTimestamp(p.Timestamp), unit, formatPoints(p), formatScalars(p))
		if p.Description != "" {
			fmt.Fprintf(tw, "\t%s\t\t\t\t\n", firstLine(p.Description))
		}
	})
	return tw.Flush()
}

func (a *app) cmdDesktops(path string) error {
	m, _, err := a.open(path, nil)
	if err != nil {
		return err
	}

	for _, d := range m.Desktops() {
		fmt.Fprintf(a.stdout, "%s\n", d.ID)
		fmt.Fprintf(a.stdout, "  units:   %s / %s\n", unitLabel(d), d.Angular)
		if d.IsCustom() {
			fmt.Fprintf(a.stdout, "  custom:  %s (%s), %g per %s\n", d.Custom.Name, d.Custom.Abbrev, d.Custom.ScaleFactor, d.Custom.ScaleBasis)
		}
		fmt.Fprintf(a.stdout, "  origin:  %g, %g", d.Origin.X, d.Origin.Y)
		if d.InvertY {
			fmt.Fprint(a.stdout, " (y inverted)")
		}
		fmt.Fprintln(a.stdout)
		fmt.Fprintf(a.stdout, "  size:    %g x %g\n", d.Size.Width, d.Size.Height)
		for _, s := range d.Screens {
			primary := ""
			if s.Primary {
				primary = " primary"
			}
			fmt.Fprintf(a.stdout, "  screen:  %q %gx%g at %g,%g @ %gx%g dpi%s\n",
				s.Description,
				s.Rect.Right-s.Rect.Left, s.Rect.Bottom-s.Rect.Top,
				s.Rect.Left, s.Rect.Top,
				s.Resolution.Width, s.Resolution.Height,
				primary)
		}
	}
	return nil
}

func (a *app) cmdConvert(in, out string) error {
	m, _, err := a.open(in, nil)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimPrefix(filepath.Ext(abs), "."), a.cfg.Log.Extension) {
		a.log.Warn("output does not use the log extension", "file", abs, "extension", a.cfg.Log.Extension)
	}

	m.SetPath(abs)
	if err := m.Save(false); err != nil {
		return errReported
	}
	fmt.Fprintf(a.stdout, "Wrote %d positions to %s (version %d)\n", m.Count(), abs, logfile.FormatVersion)
	return nil
}

func (a *app) cmdExport(path, output string) error {
	m, res, err := a.open(path, nil)
	if err != nil {
		return err
	}

	doc := export.New(res.Header)
	for _, d := range m.Desktops() {
		doc.AddDesktop(d)
	}
	m.Each(func(_ int, p *position.Position, _ *desktop.Desktop) {
		doc.AddPosition(p)
	})

	data, err := export.Marshal(doc)
	if err != nil {
		return err
	}

	if output == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := fileutil.WriteFileAtomic(output, data, fileutil.PermLogFile); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Exported %d positions to %s\n", m.Count(), output)
	return nil
}

func (a *app) cmdDelete(path, index string) error {
	i, err := strconv.Atoi(index)
	if err != nil {
		return fmt.Errorf("invalid index %q", index)
	}

	m, _, err := a.open(path, nil)
	if err != nil {
		return err
	}
	if err := m.DeletePosition(i); err != nil {
		return fmt.Errorf("delete position %d of %d: %w", i, m.Count(), err)
	}
	if err := m.Save(false); err != nil {
		return errReported
	}
	fmt.Fprintf(a.stdout, "Deleted position %d, %d remaining\n", i, m.Count())
	return nil
}

func (a *app) cmdRecent() error {
	if a.catalog == nil {
		return fmt.Errorf("catalog is disabled")
	}
	entries, err := a.catalog.Recent(a.cfg.Catalog.RecentLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "No recent logs")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LAST USED\tPOSITIONS\tTITLE\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			e.LastActivity().Local().Format(time.DateTime), e.PositionCount, e.Title, e.Path)
	}
	return tw.Flush()
}

func (a *app) cmdForget(path string) error {
	if a.catalog == nil {
		return fmt.Errorf("catalog is disabled")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return a.catalog.Forget(abs)
}

func (a *app) cmdWatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := watcher.New(abs, time.Duration(a.cfg.Watch.DebounceMs)*time.Millisecond)
	if err != nil {
		return err
	}

	m, _, err := a.open(abs, w)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(a.stdout, "Watching %s (%d positions); Ctrl-C to stop\n", abs, m.Count())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			a.log.Warn("watch error", "error", err)
		case ev := <-w.Events():
			if !m.ChangedExternally(ev.Digest) {
				continue
			}
			before := m.Count()
			if _, err := m.Load(abs); err != nil {
				continue
			}
			fmt.Fprintf(a.stdout, "%s changed: %d -> %d positions\n",
				ev.Timestamp.Local().Format(time.TimeOnly), before, m.Count())
		}
	}
}

func unitLabel(d *desktop.Desktop) string {
	if d.IsCustom() && d.Custom.Abbrev != "" {
		return d.Custom.Abbrev
	}
	return d.Linear.String()
}

func formatPoints(p *position.Position) string {
	parts := make([]string, 0, len(p.Points))
	for _, name := range p.PointNames() {
		pt := p.Points[name]
		parts = append(parts, fmt.Sprintf("%s=(%g,%g)", name, pt.X, pt.Y))
	}
	return strings.Join(parts, " ")
}

func formatScalars(p *position.Position) string {
	var parts []string
	add := func(f position.Field, label string, v float64) {
		if p.Has(f) {
			parts = append(parts, fmt.Sprintf("%s=%g", label, v))
		}
	}
	add(position.FieldWidth, "w", p.Width)
	add(position.FieldHeight, "h", p.Height)
	add(position.FieldDistance, "d", p.Distance)
	add(position.FieldArea, "area", p.Area)
	add(position.FieldAngle, "angle", p.Angle)
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func indentLines(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
