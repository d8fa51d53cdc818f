// Package analysis runs a complete analysis of a project: scan, metrics,
// smells and the dependency graph.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panbanda/inspector/internal/cache"
	"github.com/panbanda/inspector/internal/fileproc"
	"github.com/panbanda/inspector/internal/logging"
	"github.com/panbanda/inspector/internal/scanner"
	"github.com/panbanda/inspector/pkg/analyzer"
	"github.com/panbanda/inspector/pkg/analyzer/graph"
	"github.com/panbanda/inspector/pkg/analyzer/metrics"
	"github.com/panbanda/inspector/pkg/analyzer/smells"
	"github.com/panbanda/inspector/pkg/config"
	"github.com/panbanda/inspector/pkg/models"
)

// Service orchestrates code analysis operations.
type Service struct {
	config *config.Config
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithLogger sets the logger passed to every analyzer.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.DefaultConfig()
	}
	s.logger = logging.OrDiscard(s.logger)
	return s
}

// Options selects the passes of one run.
type Options struct {
	Metrics bool
	Smells  bool
	Graph   bool

	// MinSeverity drops smells below it.
	MinSeverity models.Severity

	// OnScan is called once the file count is known, OnProgress after each
	// file of the metrics pass.
	OnScan     func(total int)
	OnProgress analyzer.ProgressFunc
}

// DefaultOptions runs every pass the configuration enables.
func (s *Service) DefaultOptions() Options {
	return Options{
		Metrics: true,
		Smells:  true,
		Graph:   s.config.Analysis.Graph,
	}
}

// Result is the outcome of one run. Passes that were not requested leave
// their fields nil.
type Result struct {
	Root         string                   `json:"root" yaml:"root" toon:"root"`
	Scan         scanner.Summary          `json:"scan" yaml:"scan" toon:"scan"`
	Summary      *models.MetricsSummary   `json:"summary,omitempty" yaml:"summary,omitempty" toon:"summary,omitempty"`
	Files        []models.FileMetrics     `json:"files,omitempty" yaml:"files,omitempty" toon:"files,omitempty"`
	Smells       []models.CodeSmell       `json:"smells,omitempty" yaml:"smells,omitempty" toon:"smells,omitempty"`
	SmellSummary *models.SmellSummary     `json:"smell_summary,omitempty" yaml:"smell_summary,omitempty" toon:"smell_summary,omitempty"`
	Dependencies *models.DependencyReport `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toon:"dependencies,omitempty"`
	Graph        *models.GraphExport      `json:"graph,omitempty" yaml:"graph,omitempty" toon:"graph,omitempty"`
	Failures     []string                 `json:"failures,omitempty" yaml:"failures,omitempty" toon:"failures,omitempty"`

	// Errors holds the per-file failures of the metrics pass.
	Errors *fileproc.ProcessingErrors `json:"-" yaml:"-" toon:"-"`

	depGraph *graph.DependencyGraph
}

// DependencyGraph returns the graph built by the run, or nil when the
// graph pass did not run.
func (r *Result) DependencyGraph() *graph.DependencyGraph {
	return r.depGraph
}

// Analyze scans root and runs the selected passes. Per-file failures do
// not stop the run; they are collected in Result.Errors. The trees parsed
// by the metrics pass are shared with the later passes and released
// before Analyze returns.
func (s *Service) Analyze(ctx context.Context, root string, opts Options) (*Result, error) {
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	scan, err := scanner.NewScanner(s.config, scanner.WithLogger(s.logger)).Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	s.logger.Info("scan complete", "root", root, "files", scan.Summary.TotalFiles, "loc", scan.Summary.TotalLOC)

	res := &Result{Root: scan.Root, Scan: scan.Summary}
	if !opts.Metrics && !opts.Smells && !opts.Graph {
		return res, nil
	}

	if opts.OnScan != nil {
		opts.OnScan(len(scan.Files))
	}

	trees := cache.NewTrees()
	defer trees.Close()

	tracker := analyzer.NewTracker(opts.OnProgress)
	tracker.Add(len(scan.Files))
	ctx = analyzer.WithTracker(ctx, tracker)

	files, errs := metrics.New(
		metrics.WithLoader(trees),
		metrics.WithWorkers(s.config.Analysis.Workers),
		metrics.WithLogger(s.logger),
	).Analyze(ctx, scan.Files)
	res.Errors = errs
	s.logger.Debug("metrics complete", "files", len(files), "trees", trees.Len())
	if errs != nil {
		for _, e := range errs.Errors {
			res.Failures = append(res.Failures, e.Error())
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if opts.Metrics {
		summary := metrics.Summary(files)
		res.Summary = &summary
		res.Files = files
	}

	if opts.Smells {
		detector := smells.New(
			smells.WithThresholds(s.config.Thresholds),
			smells.WithTreeSource(trees),
			smells.WithDuplicates(s.config.Analysis.Duplicates),
			smells.WithLogger(s.logger),
		)
		found := smells.Filter(detector.Detect(files), opts.MinSeverity)
		smells.SortSmells(found)
		summary := smells.Summary(found)
		res.Smells = found
		res.SmellSummary = &summary
	}

	if opts.Graph {
		g := graph.NewBuilder(trees, graph.WithLogger(s.logger)).Build(files)
		report := graph.Report(g)
		export := g.Export()
		res.depGraph = g
		res.Dependencies = &report
		res.Graph = &export
		if report.HasCycles() {
			s.logger.Info("circular dependencies found", "count", len(report.CircularDependencies))
		}
	}

	return res, nil
}
