package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meazure/internal/export"
	"meazure/internal/logfile"
)

const legacyLog = `<?xml version="1.0" encoding="UTF-8"?>
<positionLog version="1">
    <info>
        <title>Bench</title>
        <desc>first line
second line</desc>
    </info>
    <positions>
        <units length="in" angle="deg"/>
        <origin xoffset="0" yoffset="0" invertY="false"/>
        <position tool="PointTool" date="2020-05-01T10:00:00Z">
            <points><point name="1" x="1.5" y="2"/></points>
        </position>
        <position tool="LineTool" date="2020-05-01T10:01:00Z">
            <desc>edge</desc>
            <points>
                <point name="1" x="0" y="0"/>
                <point name="2" x="3" y="4"/>
            </points>
            <properties><distance value="5"/></properties>
        </position>
    </positions>
</positionLog>
`

func setupEnv(t *testing.T) (dir, logPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("MEAZURE_DATA_DIR", filepath.Join(dir, "data"))
	logPath = filepath.Join(dir, "bench.mpl")
	if err := os.WriteFile(logPath, []byte(legacyLog), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return dir, logPath
}

func runCLI(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-config", filepath.Join(dir, "missing.toml"), "-log-level", "error"}, args...)
	code := run(full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("help exited %d", code)
	}
	if !strings.Contains(stdout.String(), "convert <in> <out>") {
		t.Errorf("usage missing commands: %s", stdout.String())
	}
}

func TestNoCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
}

func TestUnknownCommand(t *testing.T) {
	dir, _ := setupEnv(t)
	_, stderr, code := runCLI(t, dir, "frobnicate")
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Unknown command: frobnicate") {
		t.Errorf("unexpected stderr: %s", stderr)
	}
}

func TestMissingArguments(t *testing.T) {
	dir, _ := setupEnv(t)
	for _, cmd := range []string{"info", "list", "desktops", "convert", "export", "delete", "forget", "watch"} {
		_, stderr, code := runCLI(t, dir, cmd)
		if code != 1 {
			t.Errorf("%s: expected exit 1, got %d", cmd, code)
		}
		if !strings.Contains(stderr, "Usage: meazurelog "+cmd) {
			t.Errorf("%s: missing usage: %s", cmd, stderr)
		}
	}
}

func TestInfo(t *testing.T) {
	dir, logPath := setupEnv(t)
	stdout, stderr, code := runCLI(t, dir, "info", logPath)
	if code != 0 {
		t.Fatalf("info exited %d: %s", code, stderr)
	}
	for _, want := range []string{
		"Version:     1 (legacy single desktop)",
		"Title:       Bench",
		"second line",
		"Positions:   2",
		"Desktops:    1",
		"Digest:",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("info output missing %q:\n%s", want, stdout)
		}
	}
}

func TestInfoMissingFile(t *testing.T) {
	dir, _ := setupEnv(t)
	_, stderr, code := runCLI(t, dir, "info", filepath.Join(dir, "nope.mpl"))
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "load failed") {
		t.Errorf("expected load failure on stderr: %s", stderr)
	}
}

func TestList(t *testing.T) {
	dir, logPath := setupEnv(t)
	stdout, stderr, code := runCLI(t, dir, "list", logPath)
	if code != 0 {
		t.Fatalf("list exited %d: %s", code, stderr)
	}
	for _, want := range []string{"PointTool", "LineTool", "1=(1.5,2)", "2=(3,4)", "d=5", "edge", "in"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("list output missing %q:\n%s", want, stdout)
		}
	}
}

func TestDesktops(t *testing.T) {
	dir, logPath := setupEnv(t)
	stdout, _, code := runCLI(t, dir, "desktops", logPath)
	if code != 0 {
		t.Fatalf("desktops exited %d", code)
	}
	if !strings.Contains(stdout, "units:   in / deg") {
		t.Errorf("unexpected desktops output:\n%s", stdout)
	}
}

func TestConvertUpgradesVersion(t *testing.T) {
	dir, logPath := setupEnv(t)
	out := filepath.Join(dir, "converted.mpl")

	stdout, stderr, code := runCLI(t, dir, "convert", logPath, out)
	if code != 0 {
		t.Fatalf("convert exited %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Wrote 2 positions") {
		t.Errorf("unexpected convert output: %s", stdout)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open converted: %v", err)
	}
	defer f.Close()
	version, err := logfile.ParseVersion(f)
	if err != nil {
		t.Fatalf("parse version: %v", err)
	}
	if version != logfile.FormatVersion {
		t.Errorf("expected version %d, got %d", logfile.FormatVersion, version)
	}

	stdout, _, code = runCLI(t, dir, "info", out)
	if code != 0 {
		t.Fatalf("info on converted exited %d", code)
	}
	if !strings.Contains(stdout, "Title:       Bench") || strings.Contains(stdout, "legacy") {
		t.Errorf("converted file lost header or is still legacy:\n%s", stdout)
	}
}

func TestExport(t *testing.T) {
	dir, logPath := setupEnv(t)

	stdout, stderr, code := runCLI(t, dir, "export", logPath)
	if code != 0 {
		t.Fatalf("export exited %d: %s", code, stderr)
	}
	if err := export.Validate([]byte(stdout)); err != nil {
		t.Errorf("stdout export invalid: %v", err)
	}

	out := filepath.Join(dir, "bench.json")
	if _, _, code := runCLI(t, dir, "export", logPath, out); code != 0 {
		t.Fatalf("export to file exited %d", code)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), `"tool": "LineTool"`) {
		t.Errorf("export missing position: %s", data)
	}
}

func TestDeleteAndRecent(t *testing.T) {
	dir, logPath := setupEnv(t)

	stdout, stderr, code := runCLI(t, dir, "delete", logPath, "0")
	if code != 0 {
		t.Fatalf("delete exited %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "1 remaining") {
		t.Errorf("unexpected delete output: %s", stdout)
	}

	stdout, _, _ = runCLI(t, dir, "list", logPath)
	if strings.Contains(stdout, "PointTool") {
		t.Errorf("deleted position still listed:\n%s", stdout)
	}

	_, _, code = runCLI(t, dir, "delete", logPath, "7")
	if code != 1 {
		t.Errorf("out of range delete should fail")
	}
	_, _, code = runCLI(t, dir, "delete", logPath, "x")
	if code != 1 {
		t.Errorf("non-numeric index should fail")
	}

	stdout, stderr, code = runCLI(t, dir, "recent")
	if code != 0 {
		t.Fatalf("recent exited %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, logPath) {
		t.Errorf("recent missing %s:\n%s", logPath, stdout)
	}

	if _, _, code := runCLI(t, dir, "forget", logPath); code != 0 {
		t.Fatalf("forget exited %d", code)
	}
	stdout, _, _ = runCLI(t, dir, "recent")
	if !strings.Contains(stdout, "No recent logs") {
		t.Errorf("expected empty recent list:\n%s", stdout)
	}
}

func TestNoCatalog(t *testing.T) {
	dir, _ := setupEnv(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join(dir, "missing.toml"), "-no-catalog", "recent"}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "catalog is disabled") {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
}

func TestMetricsFlag(t *testing.T) {
	dir, logPath := setupEnv(t)
	_, stderr, code := runCLI(t, dir, "-metrics", "list", logPath)
	if code != 0 {
		t.Fatalf("list exited %d: %s", code, stderr)
	}
	for _, want := range []string{"meazure_loads_total 1", "meazure_positions 2"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("metrics missing %q:\n%s", want, stderr)
		}
	}
}
