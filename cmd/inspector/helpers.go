package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/panbanda/inspector/internal/logging"
	"github.com/panbanda/inspector/internal/output"
	"github.com/panbanda/inspector/internal/progress"
	"github.com/panbanda/inspector/internal/service/analysis"
	"github.com/panbanda/inspector/pkg/config"
	"github.com/panbanda/inspector/pkg/models"
	"github.com/urfave/cli/v2"
)

// thresholdFlags maps CLI flag names to threshold keys.
var thresholdFlags = []struct {
	flag  string
	key   string
	usage string
}{
	{"function-loc-warning", config.KeyFunctionLOCWarning, "Function length (LOC) that triggers a warning"},
	{"function-loc-severe", config.KeyFunctionLOCSevere, "Function length (LOC) that is severe"},
	{"file-loc-warning", config.KeyFileLOCWarning, "File length (LOC) that triggers a warning"},
	{"complexity-warning", config.KeyComplexityWarning, "Cyclomatic complexity that triggers a warning"},
	{"max-parameters", config.KeyMaxParameters, "Maximum parameters per function"},
	{"max-nesting-depth", config.KeyMaxNestingDepth, "Maximum block nesting depth"},
}

// smellFlags are shared by the commands that run the smell detector.
func smellFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(thresholdFlags)+3)
	for _, t := range thresholdFlags {
		flags = append(flags, &cli.IntFlag{Name: t.flag, Usage: t.usage})
	}
	return append(flags,
		&cli.StringFlag{
			Name:  "min-severity",
			Value: "info",
			Usage: "Only report smells at or above: info, warning, severe",
		},
		&cli.StringFlag{
			Name:  "fail-on",
			Usage: "Exit with status 2 when a smell at or above this severity is found",
		},
		&cli.BoolFlag{
			Name:  "no-duplicates",
			Usage: "Skip duplicate code detection",
		},
	)
}

// loadConfig resolves the configuration for a run: the --config file, or
// an inspector config in the working directory, or the defaults. Flag
// overrides are applied on top and the result is validated.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	var (
		cfg    *config.Config
		source string
		err    error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
		source = path
	} else {
		cfg, source, err = config.LoadOrDefault(".")
	}
	if err != nil {
		return nil, source, err
	}

	for _, t := range thresholdFlags {
		if c.IsSet(t.flag) {
			if err := cfg.Thresholds.Set(t.key, c.Int(t.flag)); err != nil {
				return nil, source, err
			}
		}
	}
	if c.IsSet("workers") {
		cfg.Analysis.Workers = c.Int("workers")
	}
	if c.Bool("no-duplicates") {
		cfg.Analysis.Duplicates = false
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if v := c.String("format"); v != "" {
		cfg.Output.Format = v
	}
	if langs := c.StringSlice("language"); len(langs) > 0 {
		cfg.Analysis.Languages = langs
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, source, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, ok := output.LookupFormat(cfg.Output.Format); !ok {
		return nil, source, fmt.Errorf("invalid configuration: unknown output format %q (supported: %s)",
			cfg.Output.Format, strings.Join(output.Formats(), ", "))
	}
	return cfg, source, nil
}

func newLogger(c *cli.Context, cfg *config.Config) *slog.Logger {
	return logging.New(c.App.ErrWriter, logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
}

// newFormatter writes to --output when given, else to the app's writer.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(cfg.Output.Format)
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, c.App.Writer, cfg.Output.Color), nil
}

func parseSeverity(c *cli.Context, flag string) (models.Severity, bool, error) {
	v := c.String(flag)
	if v == "" {
		return models.SeverityInfo, false, nil
	}
	sev, err := models.ParseSeverity(v)
	if err != nil {
		return sev, false, fmt.Errorf("--%s: %w", flag, err)
	}
	return sev, true, nil
}

// showProgress reports whether progress bars should be drawn. They only go
// to an interactive stderr.
func showProgress(c *cli.Context) bool {
	if c.Bool("no-progress") {
		return false
	}
	f, ok := c.App.ErrWriter.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// runAnalysis loads the configuration and runs the analysis service on the
// command's path argument with the passes chosen by pick.
func runAnalysis(c *cli.Context, pick func(*analysis.Service) analysis.Options) (*analysis.Result, *config.Config, error) {
	cfg, source, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(c, cfg)
	if source != "" {
		logger.Debug("loaded config", "path", source)
	}

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(logger))
	opts := pick(svc)

	var tracker *progress.Tracker
	if showProgress(c) {
		opts.OnScan = func(total int) {
			tracker = progress.NewTrackerWriter(c.App.ErrWriter, "Analyzing files...", total)
		}
		opts.OnProgress = func(int, int, string) { tracker.Tick() }
	}

	res, err := svc.Analyze(c.Context, getPath(c), opts)
	if err != nil {
		tracker.FinishError(err)
		return nil, nil, err
	}
	tracker.FinishSuccess()

	if res.Scan.TotalFiles == 0 {
		logger.Warn("no source files found", "root", res.Root)
	}
	for _, f := range res.Failures {
		logger.Warn("file skipped", "error", f)
	}
	return res, cfg, nil
}

// writeView renders v with the configured formatter.
func writeView(c *cli.Context, cfg *config.Config, v any) error {
	f, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	if err := f.Output(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// checkFailOn returns an exit error when --fail-on is set and a smell at or
// above that severity was reported.
func checkFailOn(c *cli.Context, smells []models.CodeSmell) error {
	level, ok, err := parseSeverity(c, "fail-on")
	if err != nil || !ok {
		return err
	}
	n := 0
	for _, s := range smells {
		if s.Severity >= level {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return cli.Exit(fmt.Sprintf("%d smell(s) at or above %s", n, level), 2)
}

func graphView(res *analysis.Result) *output.GraphView {
	if res.Dependencies == nil || res.Graph == nil {
		return nil
	}
	v := &output.GraphView{Report: *res.Dependencies, Export: *res.Graph}
	if g := res.DependencyGraph(); g != nil {
		v.Graph = g
	}
	return v
}

func smellsView(res *analysis.Result) *output.SmellsView {
	if res.SmellSummary == nil {
		return nil
	}
	return &output.SmellsView{Root: res.Root, Smells: res.Smells, Summary: *res.SmellSummary}
}

func metricsView(res *analysis.Result, top int) *output.MetricsView {
	if res.Summary == nil {
		return nil
	}
	return &output.MetricsView{Root: res.Root, Summary: *res.Summary, Files: res.Files, TopFunctions: top}
}
