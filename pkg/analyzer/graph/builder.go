package graph

import (
	"log/slog"

	"github.com/panbanda/inspector/internal/logging"
	"github.com/panbanda/inspector/pkg/analyzer"
	"github.com/panbanda/inspector/pkg/models"
)

// Builder turns the import statements of analyzed files into a
// DependencyGraph.
type Builder struct {
	trees  analyzer.TreeSource
	logger *slog.Logger
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for files without a tree.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder reading trees from src.
func NewBuilder(src analyzer.TreeSource, opts ...BuilderOption) *Builder {
	b := &Builder{trees: src}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrDiscard(b.logger)
	return b
}

// Build adds one edge per import of every file, from the file's module to
// the raw import target. Only files that import something become nodes.
// Files whose tree is unavailable are skipped.
func (b *Builder) Build(files []models.FileMetrics) *DependencyGraph {
	g := New()
	if b.trees == nil {
		return g
	}

	for _, fm := range files {
		tree, err := b.trees.Tree(fm.Path)
		if err != nil || tree.Root() == nil {
			b.logger.Debug("graph: no tree", "path", fm.Path, "error", err)
			continue
		}

		module := ModuleName(fm.Path)
		for _, target := range ExtractImports(tree) {
			g.AddDependency(module, target)
		}
	}
	return g
}
