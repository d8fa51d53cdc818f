package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/inspector/internal/output"
	"github.com/panbanda/inspector/pkg/parser"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// getPath returns the single positional path argument, defaulting to ".".
func getPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

func description() string {
	langs := make([]string, 0, len(parser.SupportedLanguages()))
	for _, l := range parser.SupportedLanguages() {
		langs = append(langs, l.String())
	}
	return `Inspector measures functions and files, flags code smells against
configurable thresholds, and maps module dependencies including cycles.

Supports: ` + strings.Join(langs, ", ")
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "inspector",
		Usage:    "Multi-language code metrics, smells and dependency graphs",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: description(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"INSPECTOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: " + strings.Join(output.Formats(), ", ") + " (default from config)",
			},
			&cli.StringSliceFlag{
				Name:    "language",
				Aliases: []string{"l"},
				Usage:   "Only analyze these languages (repeatable; default all)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn, error, silent (default from config)",
				EnvVars: []string{"INSPECTOR_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format: text, json (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Disable progress bars",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of parallel workers (0 = GOMAXPROCS)",
			},
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			metricsCmd(),
			smellsCmd(),
			graphCmd(),
			watchCmd(),
			configCmd(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
