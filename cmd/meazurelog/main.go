// meazurelog inspects and edits Meazure position log files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"meazure/internal/config"
	"meazure/internal/logging"
	"meazure/internal/logmgr"
	"meazure/internal/metrics"
	"meazure/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	catalog *store.Store
	metrics *metrics.Registry
	stdout  io.Writer
	stderr  io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("meazurelog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	logLevel := fs.String("log-level", "", "override the configured log level")
	noCatalog := fs.Bool("no-catalog", false, "do not record files in the catalog")
	showMetrics := fs.Bool("metrics", false, "print log metrics to stderr on exit")
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 1
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "help" {
		usage(stdout)
		return 0
	}

	a, err := setup(*configPath, *logLevel, *noCatalog, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()
	if *showMetrics {
		defer func() {
			if err := a.metrics.WritePrometheus(stderr); err != nil {
				a.log.Warn("write metrics", "error", err)
			}
		}()
	}

	var cmdErr error
	switch cmd {
	case "info":
		cmdErr = a.need(rest, 1, "info <file>", func() error { return a.cmdInfo(rest[0]) })
	case "list":
		cmdErr = a.need(rest, 1, "list <file>", func() error { return a.cmdList(rest[0]) })
	case "desktops":
		cmdErr = a.need(rest, 1, "desktops <file>", func() error { return a.cmdDesktops(rest[0]) })
	case "convert":
		cmdErr = a.need(rest, 2, "convert <in> <out>", func() error { return a.cmdConvert(rest[0], rest[1]) })
	case "export":
		cmdErr = a.need(rest, 1, "export <file> [output.json]", func() error {
			output := ""
			if len(rest) >= 2 {
				output = rest[1]
			}
			return a.cmdExport(rest[0], output)
		})
	case "delete":
		cmdErr = a.need(rest, 2, "delete <file> <index>", func() error { return a.cmdDelete(rest[0], rest[1]) })
	case "recent":
		cmdErr = a.cmdRecent()
	case "forget":
		cmdErr = a.need(rest, 1, "forget <file>", func() error { return a.cmdForget(rest[0]) })
	case "watch":
		cmdErr = a.need(rest, 1, "watch <file>", func() error { return a.cmdWatch(rest[0]) })
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		usage(stderr)
		return 1
	}

	if cmdErr != nil {
		var ue usageError
		if errors.As(cmdErr, &ue) {
			fmt.Fprintf(stderr, "Usage: meazurelog %s\n", string(ue))
			return 1
		}
		if !errors.Is(cmdErr, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", cmdErr)
		}
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

// errReported marks failures already printed by the notifier.
var errReported = errors.New("reported")

func (a *app) need(rest []string, n int, syntax string, fn func() error) error {
	if len(rest) < n {
		return usageError(syntax)
	}
	return fn()
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `meazurelog - Inspect and edit Meazure position logs

Usage: meazurelog [options] <command> [args]

Commands:
  info <file>                 Show the log header and counts
  list <file>                 List recorded positions
  desktops <file>             List desktop snapshots
  convert <in> <out>          Rewrite a log in the current format
  export <file> [out.json]    Export a log as JSON
  delete <file> <index>       Delete one position and save
  recent                      List recently used logs
  forget <file>               Remove a log from the recent list
  watch <file>                Report external changes to a log
  help                        Show this help message

Options:
  -config <path>     Path to config file
  -log-level <lvl>   Override the log level (debug, info, warn, error)
  -no-catalog        Do not record files in the catalog
  -metrics           Print log metrics to stderr on exit`)
}

func setup(configPath, logLevel string, noCatalog bool, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if noCatalog {
		cfg.Catalog.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		var verrs config.ValidationErrors
		if !errors.As(err, &verrs) || verrs.HasErrors() {
			return nil, err
		}
		for _, w := range verrs.Warnings() {
			fmt.Fprintf(stderr, "Warning: %v\n", &w)
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	logging.SetDefault(logger)

	a := &app{cfg: cfg, log: logger, metrics: metrics.NewRegistry("meazure"), stdout: stdout, stderr: stderr}
	if cfg.Catalog.Enabled {
		a.catalog, err = store.Open(cfg.Catalog.Path)
		if err != nil {
			logger.Close()
			return nil, fmt.Errorf("open catalog: %w", err)
		}
	}
	return a, nil
}

func newLogger(cfg *config.Config, stderr io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	lc := &logging.Config{
		Level:      level,
		Format:     format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    int64(cfg.Logging.MaxSizeMB),
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
		Component:  "meazurelog",
	}
	if cfg.Logging.Output == "stderr" || cfg.Logging.Output == "both" {
		lc.Writer = stderr
	}
	return logging.New(lc)
}

func (a *app) close() {
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			a.log.Warn("close catalog", "error", err)
		}
	}
	a.log.Close()
}

// manager builds a headless log manager. Paths handed to the chooser are
// returned verbatim.
func (a *app) manager(chooser logmgr.FileChooser, digests logmgr.DigestSink) (*logmgr.Manager, error) {
	opts := logmgr.Options{
		Tools:        &headlessTools{},
		Units:        newHeadlessUnits(),
		Screens:      headlessScreens{},
		Chooser:      chooser,
		Notifier:     &stderrNotifier{w: a.stderr},
		Digests:      digests,
		Logger:       a.log,
		Metrics:      metrics.NewLogMetrics(a.metrics),
		DefaultTitle: a.cfg.Log.DefaultTitle,
		Generator: logfileGenerator(
			a.cfg.Log.GeneratorName,
			a.cfg.Log.GeneratorVersion,
			a.cfg.Log.GeneratorBuild,
		),
		Machine: a.cfg.Machine(),
	}
	opts.Write.DTDURL = a.cfg.Log.DTDURL
	if a.catalog != nil {
		opts.Catalog = a.catalog
	}
	return logmgr.New(opts)
}
