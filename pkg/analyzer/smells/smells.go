// Package smells flags code quality issues in computed metrics: threshold
// violations per function and file, and duplicated function bodies.
package smells

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/inspector/internal/logging"
	"github.com/panbanda/inspector/pkg/analyzer"
	"github.com/panbanda/inspector/pkg/config"
	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
)

// Detector runs the smell checks.
// It only reads its inputs and is safe for concurrent use, except that the
// duplication check walks trees from its TreeSource.
type Detector struct {
	thresholds config.ThresholdConfig
	trees      analyzer.TreeSource
	duplicates bool
	logger     *slog.Logger
}

// Option is a functional option for configuring Detector.
type Option func(*Detector)

// WithThresholds sets the thresholds checked against.
func WithThresholds(t config.ThresholdConfig) Option {
	return func(d *Detector) {
		d.thresholds = t
	}
}

// WithTreeSource sets where the duplication check gets function text from.
// Without one the duplication check finds nothing.
func WithTreeSource(src analyzer.TreeSource) Option {
	return func(d *Detector) {
		d.trees = src
	}
}

// WithDuplicates enables or disables the duplication check.
func WithDuplicates(enabled bool) Option {
	return func(d *Detector) {
		d.duplicates = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// New creates a Detector with the default thresholds.
func New(opts ...Option) *Detector {
	d := &Detector{
		thresholds: config.DefaultThresholds(),
		duplicates: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrDiscard(d.logger)
	return d
}

// Detect runs every check over files. The result is unordered; use
// SortSmells for a stable presentation order.
func (d *Detector) Detect(files []models.FileMetrics) []models.CodeSmell {
	var smells []models.CodeSmell

	for _, fm := range files {
		smells = append(smells, d.CheckFile(fm)...)
		smells = append(smells, DetectUnusedVariables(fm)...)
		smells = append(smells, DetectUnusedImports(fm)...)

		for _, fn := range fm.Functions {
			smells = append(smells, d.CheckFunction(fn)...)
		}
	}

	if d.duplicates {
		smells = append(smells, d.DetectDuplicates(files)...)
	}
	return smells
}

// CheckFunction runs the per-function threshold checks.
func (d *Detector) CheckFunction(fn models.FunctionMetrics) []models.CodeSmell {
	var smells []models.CodeSmell
	for _, check := range []func(models.FunctionMetrics, config.ThresholdConfig) (models.CodeSmell, bool){
		LongFunction,
		HighComplexity,
		TooManyParameters,
		DeepNesting,
	} {
		if s, ok := check(fn, d.thresholds); ok {
			smells = append(smells, s)
		}
	}
	return smells
}

// CheckFile runs the per-file threshold checks.
func (d *Detector) CheckFile(fm models.FileMetrics) []models.CodeSmell {
	if s, ok := LargeFile(fm, d.thresholds); ok {
		return []models.CodeSmell{s}
	}
	return nil
}

func functionSmell(t models.SmellType, sev models.Severity, fn models.FunctionMetrics, msg string) models.CodeSmell {
	return models.CodeSmell{
		Type:     t,
		Severity: sev,
		Message:  msg,
		File:     fn.File,
		Line:     fn.StartLine,
		Function: fn.Name,
	}
}

// LongFunction flags functions longer than function_loc_warning, or
// severely when longer than function_loc_severe.
func LongFunction(fn models.FunctionMetrics, t config.ThresholdConfig) (models.CodeSmell, bool) {
	warning := t.Get(config.KeyFunctionLOCWarning, 30)
	severe := t.Get(config.KeyFunctionLOCSevere, 200)

	switch {
	case fn.LOC > severe:
		return functionSmell(models.SmellLongFunction, models.SeveritySevere, fn,
			fmt.Sprintf("Function '%s' is very long (%d LOC, threshold: %d)", fn.Name, fn.LOC, severe)), true
	case fn.LOC > warning:
		return functionSmell(models.SmellLongFunction, models.SeverityWarning, fn,
			fmt.Sprintf("Function '%s' is long (%d LOC, threshold: %d)", fn.Name, fn.LOC, warning)), true
	}
	return models.CodeSmell{}, false
}

// HighComplexity flags functions above complexity_warning.
func HighComplexity(fn models.FunctionMetrics, t config.ThresholdConfig) (models.CodeSmell, bool) {
	limit := t.Get(config.KeyComplexityWarning, 10)
	if fn.Complexity <= limit {
		return models.CodeSmell{}, false
	}
	return functionSmell(models.SmellHighComplexity, models.SeverityWarning, fn,
		fmt.Sprintf("Function '%s' has high complexity (%d, threshold: %d)", fn.Name, fn.Complexity, limit)), true
}

// TooManyParameters flags functions with more than max_parameters.
func TooManyParameters(fn models.FunctionMetrics, t config.ThresholdConfig) (models.CodeSmell, bool) {
	limit := t.Get(config.KeyMaxParameters, 7)
	if fn.Parameters <= limit {
		return models.CodeSmell{}, false
	}
	return functionSmell(models.SmellTooManyParameters, models.SeverityWarning, fn,
		fmt.Sprintf("Function '%s' has too many parameters (%d, threshold: %d)", fn.Name, fn.Parameters, limit)), true
}

// DeepNesting flags functions nested deeper than max_nesting_depth.
func DeepNesting(fn models.FunctionMetrics, t config.ThresholdConfig) (models.CodeSmell, bool) {
	limit := t.Get(config.KeyMaxNestingDepth, 5)
	if fn.NestingDepth <= limit {
		return models.CodeSmell{}, false
	}
	return functionSmell(models.SmellDeepNesting, models.SeverityWarning, fn,
		fmt.Sprintf("Function '%s' has deep nesting (%d, threshold: %d)", fn.Name, fn.NestingDepth, limit)), true
}

// LargeFile flags files longer than file_loc_warning.
func LargeFile(fm models.FileMetrics, t config.ThresholdConfig) (models.CodeSmell, bool) {
	limit := t.Get(config.KeyFileLOCWarning, 1000)
	if fm.LOC <= limit {
		return models.CodeSmell{}, false
	}
	return models.CodeSmell{
		Type:     models.SmellLargeFile,
		Severity: models.SeverityWarning,
		Message:  fmt.Sprintf("File is very large (%d LOC, threshold: %d)", fm.LOC, limit),
		File:     fm.Path,
	}, true
}

// DetectUnusedVariables is a placeholder: unused variable detection needs
// scope analysis, which is not implemented. It never reports anything.
func DetectUnusedVariables(models.FileMetrics) []models.CodeSmell { return nil }

// DetectUnusedImports is a placeholder: it never reports anything.
func DetectUnusedImports(models.FileMetrics) []models.CodeSmell { return nil }

// NormalizeWhitespace collapses every run of whitespace to a single space
// and trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DetectDuplicates groups functions by a hash of their whitespace-normalized
// source text. Every group of two or more yields one info smell per member
// listing all member locations. Files whose tree is unavailable, and
// functions whose node cannot be found again, contribute nothing.
func (d *Detector) DetectDuplicates(files []models.FileMetrics) []models.CodeSmell {
	if d.trees == nil {
		return nil
	}

	groups := make(map[uint64][]models.FunctionMetrics)
	var order []uint64

	for _, fm := range files {
		if len(fm.Functions) == 0 {
			continue
		}
		tree, err := d.trees.Tree(fm.Path)
		if err != nil || tree.Root() == nil {
			d.logger.Debug("duplicates: no tree", "path", fm.Path, "error", err)
			continue
		}

		byLine := parser.FunctionsByStartLine(tree)
		for _, fn := range fm.Functions {
			node := byLine[fn.StartLine]
			if node == nil {
				continue
			}
			h := xxhash.Sum64String(NormalizeWhitespace(parser.GetNodeText(node, tree.Source)))
			if _, seen := groups[h]; !seen {
				order = append(order, h)
			}
			groups[h] = append(groups[h], fn)
		}
	}

	var smells []models.CodeSmell
	for _, h := range order {
		members := groups[h]
		if len(members) < 2 {
			continue
		}

		locations := make([]string, len(members))
		for i, fn := range members {
			locations[i] = fmt.Sprintf("%s:%d", fn.File, fn.StartLine)
		}
		joined := strings.Join(locations, ", ")

		for _, fn := range members {
			smells = append(smells, functionSmell(models.SmellCodeDuplication, models.SeverityInfo, fn,
				fmt.Sprintf("Function '%s' appears duplicated. Also found at: %s", fn.Name, joined)))
		}
	}
	return smells
}

// SortSmells orders smells by severity (most severe first), then file,
// line and type.
func SortSmells(smells []models.CodeSmell) {
	slices.SortStableFunc(smells, func(a, b models.CodeSmell) int {
		return cmp.Or(
			cmp.Compare(b.Severity, a.Severity),
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Type, b.Type),
		)
	})
}

// Filter returns the smells at or above the given severity.
func Filter(smells []models.CodeSmell, atLeast models.Severity) []models.CodeSmell {
	out := make([]models.CodeSmell, 0, len(smells))
	for _, s := range smells {
		if s.Severity >= atLeast {
			out = append(out, s)
		}
	}
	return out
}

// Summary counts smells by type and severity.
func Summary(smells []models.CodeSmell) models.SmellSummary {
	return models.SummarizeSmells(smells)
}
