// Package metrics computes per-function and per-file code metrics from
// tree-sitter syntax trees.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/panbanda/inspector/internal/fileproc"
	"github.com/panbanda/inspector/internal/logging"
	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// TreeLoader parses a file and keeps the tree for later passes.
// internal/cache.Trees implements it.
type TreeLoader interface {
	Load(p *parser.Parser, file models.SourceFile) (*parser.ParseResult, error)
}

// Analyzer runs the metrics pass over many files.
type Analyzer struct {
	loader  TreeLoader
	workers int
	logger  *slog.Logger
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithLoader keeps parsed trees in loader so later passes can reuse them.
// Without a loader every tree is closed once its metrics are computed.
func WithLoader(loader TreeLoader) Option {
	return func(a *Analyzer) {
		a.loader = loader
	}
}

// WithWorkers sets the number of parallel workers (0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithLogger sets the logger used for per-file failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// New creates a metrics analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{logger: logging.Discard()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDiscard(a.logger)
	return a
}

// Analyze computes FileMetrics for every file in parallel. The result has
// one entry per input file, in input order. A file that cannot be read or
// parsed yields empty metrics and an entry in the returned errors.
func (a *Analyzer) Analyze(ctx context.Context, files []models.SourceFile) ([]models.FileMetrics, *fileproc.ProcessingErrors) {
	results, errs := fileproc.MapFiles(ctx, files, a.workers, func(psr *parser.Parser, file models.SourceFile) (models.FileMetrics, error) {
		tree, err := a.load(psr, file)
		if err != nil {
			a.logger.Warn("metrics: skipping file", "path", file.Path, "error", err)
			return models.NewFileMetrics(file), err
		}
		if a.loader == nil {
			defer tree.Close()
		}
		return Compute(tree, file), nil
	})

	// Files skipped by cancellation come back as zero values.
	for i := range results {
		if results[i].Path == "" {
			results[i] = models.NewFileMetrics(files[i])
		}
	}
	return results, errs
}

func (a *Analyzer) load(psr *parser.Parser, file models.SourceFile) (*parser.ParseResult, error) {
	if a.loader != nil {
		return a.loader.Load(psr, file)
	}
	lang := parser.Language(file.Language)
	if file.Language == "" {
		lang = parser.DetectLanguage(file.Path)
	}
	if lang == parser.LangUnknown {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedLanguage, file.Path)
	}
	res, err := psr.ParseFile(file.Path)
	if err != nil {
		return nil, err
	}
	res.Language = lang
	return res, nil
}

// Compute derives FileMetrics for one parsed file. A nil tree yields a
// FileMetrics with no functions and the scanner's line count.
func Compute(tree *parser.ParseResult, file models.SourceFile) models.FileMetrics {
	fm := models.NewFileMetrics(file)
	root := tree.Root()
	if root == nil {
		return fm
	}
	if fm.Language == "" {
		fm.Language = tree.Language.String()
	}

	t := TablesFor(tree.Language)
	fm.ImportsCount = len(ImportNodes(tree))

	for _, fn := range parser.FunctionNodes(tree) {
		fm.Functions = append(fm.Functions, models.NewFunctionMetrics(
			parser.FunctionName(fn, tree.Source),
			file.Path,
			parser.StartLine(fn),
			parser.EndLine(fn),
			Complexity(fn, tree.Source, t),
			Parameters(fn, t),
			NestingDepth(fn, t),
		))
	}
	return fm
}

// wordOperator matches Python's keyword operators as whole words.
var wordOperator = regexp.MustCompile(`\b(and|or)\b`)

// Complexity returns 1 plus the decision points of fn, plus the number of
// short-circuit operators found in the text of each logical expression.
// The operator count is lexical: nested expressions are counted at every
// level and operators inside string literals are included.
func Complexity(fn *sitter.Node, source []byte, t Tables) int {
	complexity := 1
	parser.WalkTyped(fn, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if t.Decisions[nodeType] {
			complexity++
		}
		if t.Logical[nodeType] {
			complexity += countLogicalOperators(parser.GetNodeText(n, src))
		}
		return true
	})
	return complexity
}

func countLogicalOperators(text string) int {
	return strings.Count(text, "&&") +
		strings.Count(text, "||") +
		len(wordOperator.FindAllStringIndex(text, -1))
}

// Parameters counts the declared parameters of fn.
func Parameters(fn *sitter.Node, t Tables) int {
	list := fn.ChildByFieldName("parameters")
	if list != nil && !t.ParamLists[list.Type()] {
		// Bare lambda parameter, e.g. Java `x -> x * 2`.
		if parser.IsIdentifier(list.Type()) {
			return 1
		}
		list = nil
	}
	if list == nil {
		for i := range int(fn.ChildCount()) {
			child := fn.Child(i)
			if child != nil && t.ParamLists[child.Type()] {
				list = child
				break
			}
		}
	}
	if list == nil {
		// Unparenthesized arrow parameter, e.g. `x => x * 2`.
		if p := fn.ChildByFieldName("parameter"); p != nil {
			return 1
		}
		return 0
	}

	count := 0
	for i := range int(list.ChildCount()) {
		child := list.Child(i)
		if child == nil || !t.Params[child.Type()] {
			continue
		}
		if t.ParamNames {
			count += max(countNames(child), 1)
			continue
		}
		count++
	}
	return count
}

func countNames(param *sitter.Node) int {
	n := 0
	for i := range int(param.ChildCount()) {
		if child := param.Child(i); child != nil && child.Type() == "identifier" {
			n++
		}
	}
	return n
}

// NestingDepth returns the deepest stack of nesting constructs inside fn.
// Nested functions do not reset the count.
func NestingDepth(fn *sitter.Node, t Tables) int {
	type frame struct {
		node  *sitter.Node
		depth int
	}

	maxDepth := 0
	stack := []frame{{node: fn}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		maxDepth = max(maxDepth, f.depth)

		depth := f.depth
		if t.Nesting[f.node.Type()] {
			depth++
		}
		for i := int(f.node.ChildCount()) - 1; i >= 0; i-- {
			if child := f.node.Child(i); child != nil {
				stack = append(stack, frame{node: child, depth: depth})
			}
		}
	}
	return maxDepth
}

// Summary aggregates a metrics pass for reporting.
func Summary(files []models.FileMetrics) models.MetricsSummary {
	return models.Summarize(files)
}
