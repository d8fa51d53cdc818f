package main

import (
	"github.com/panbanda/inspector/internal/output"
	"github.com/panbanda/inspector/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"all"},
		Usage:     "Run metrics, smell detection and the dependency graph",
		ArgsUsage: "[path]",
		Flags: append(smellFlags(),
			&cli.BoolFlag{
				Name:  "no-graph",
				Usage: "Skip the dependency graph",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 20,
				Usage: "Number of most complex functions to list (0 = all)",
			},
		),
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	minSeverity, _, err := parseSeverity(c, "min-severity")
	if err != nil {
		return err
	}

	res, cfg, err := runAnalysis(c, func(svc *analysis.Service) analysis.Options {
		opts := svc.DefaultOptions()
		opts.Graph = opts.Graph && !c.Bool("no-graph")
		opts.MinSeverity = minSeverity
		return opts
	})
	if err != nil {
		return err
	}

	view := &output.AnalysisView{
		Metrics:  metricsView(res, c.Int("top")),
		Smells:   smellsView(res),
		Graph:    graphView(res),
		Failures: res.Failures,
		Data:     res,
	}
	if err := writeView(c, cfg, view); err != nil {
		return err
	}
	return checkFailOn(c, res.Smells)
}

func metricsCmd() *cli.Command {
	return &cli.Command{
		Name:      "metrics",
		Aliases:   []string{"m"},
		Usage:     "Measure lines of code, complexity, parameters and nesting",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top",
				Value: 20,
				Usage: "Number of most complex functions to list (0 = all)",
			},
		},
		Action: runMetricsCmd,
	}
}

func runMetricsCmd(c *cli.Context) error {
	res, cfg, err := runAnalysis(c, func(*analysis.Service) analysis.Options {
		return analysis.Options{Metrics: true}
	})
	if err != nil {
		return err
	}
	return writeView(c, cfg, metricsView(res, c.Int("top")))
}

func smellsCmd() *cli.Command {
	return &cli.Command{
		Name:      "smells",
		Aliases:   []string{"s"},
		Usage:     "Detect code smells against configurable thresholds",
		ArgsUsage: "[path]",
		Flags:     smellFlags(),
		Action:    runSmellsCmd,
	}
}

func runSmellsCmd(c *cli.Context) error {
	minSeverity, _, err := parseSeverity(c, "min-severity")
	if err != nil {
		return err
	}
	res, cfg, err := runAnalysis(c, func(*analysis.Service) analysis.Options {
		return analysis.Options{Smells: true, MinSeverity: minSeverity}
	})
	if err != nil {
		return err
	}
	if err := writeView(c, cfg, smellsView(res)); err != nil {
		return err
	}
	return checkFailOn(c, res.Smells)
}

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"deps"},
		Usage:     "Build the module dependency graph and find circular dependencies",
		ArgsUsage: "[path]",
		Description: `Builds a module-level import graph. Use --format dot or --format mermaid
to draw it, for example:

  inspector -f dot graph ./src | dot -Tsvg > deps.svg`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fail-on-cycles",
				Usage: "Exit with status 2 when circular dependencies are found",
			},
		},
		Action: runGraphCmd,
	}
}

func runGraphCmd(c *cli.Context) error {
	res, cfg, err := runAnalysis(c, func(*analysis.Service) analysis.Options {
		return analysis.Options{Graph: true}
	})
	if err != nil {
		return err
	}
	if err := writeView(c, cfg, graphView(res)); err != nil {
		return err
	}
	if c.Bool("fail-on-cycles") && res.Dependencies.HasCycles() {
		return cli.Exit("circular dependencies found", 2)
	}
	return nil
}
