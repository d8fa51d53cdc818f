package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/panbanda/inspector/internal/service/analysis"
	"github.com/panbanda/inspector/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-run smell detection",
		ArgsUsage: "[path]",
		Flags: append(smellFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a file must stay unchanged before re-analyzing",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	minSeverity, _, err := parseSeverity(c, "min-severity")
	if err != nil {
		return err
	}

	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	status := messages(c, c.App.ErrWriter)
	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(logger))
	run := func() {
		res, err := svc.Analyze(c.Context, root, analysis.Options{Smells: true, MinSeverity: minSeverity})
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				status.Error("Analysis failed: %v", err)
			}
			return
		}
		if err := writeView(c, cfg, smellsView(res)); err != nil {
			status.Error("Output failed: %v", err)
		}
	}

	w, err := watch.NewWatcher(root, cfg, func(paths []string) {
		for _, p := range paths {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = p
			}
			status.Warning("File changed: %s", rel)
		}
		run()
	}, watch.WithDebounce(c.Duration("debounce")), watch.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	run()
	status.Success("Watching for changes in %s (Ctrl+C to stop)", root)

	if err := w.Run(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
