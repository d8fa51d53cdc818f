package models

import (
	"encoding/json"

	"github.com/panbanda/inspector/pkg/stats"
)

// AnonymousFunction names functions without an identifier.
const AnonymousFunction = "<anonymous>"

// SourceFile is a scanned file awaiting analysis.
type SourceFile struct {
	Path      string `json:"path" yaml:"path" toon:"path"`
	Language  string `json:"language" yaml:"language" toon:"language"`
	LOC       int    `json:"loc" yaml:"loc" toon:"loc"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes" toon:"size_bytes"`
}

// FunctionMetrics holds the measurements of one function.
// Values are fixed once the metrics pass returns them.
type FunctionMetrics struct {
	Name         string `json:"name" yaml:"name" toon:"name"`
	File         string `json:"file" yaml:"file" toon:"file"`
	StartLine    int    `json:"start_line" yaml:"start_line" toon:"start_line"`
	EndLine      int    `json:"end_line" yaml:"end_line" toon:"end_line"`
	LOC          int    `json:"loc" yaml:"loc" toon:"loc"`
	Complexity   int    `json:"complexity" yaml:"complexity" toon:"complexity"`
	Parameters   int    `json:"parameters" yaml:"parameters" toon:"parameters"`
	NestingDepth int    `json:"nesting_depth" yaml:"nesting_depth" toon:"nesting_depth"`
}

// NewFunctionMetrics builds FunctionMetrics with LOC derived from the span.
// Complexity is clamped to at least 1 and counts to at least 0.
func NewFunctionMetrics(name, file string, startLine, endLine, complexity, parameters, nesting int) FunctionMetrics {
	if name == "" {
		name = AnonymousFunction
	}
	loc := endLine - startLine + 1
	if loc < 0 {
		loc = 0
	}
	return FunctionMetrics{
		Name:         name,
		File:         file,
		StartLine:    startLine,
		EndLine:      endLine,
		LOC:          loc,
		Complexity:   max(complexity, 1),
		Parameters:   max(parameters, 0),
		NestingDepth: max(nesting, 0),
	}
}

// FileMetrics aggregates the metrics of a single file.
type FileMetrics struct {
	Path         string            `json:"file" yaml:"file" toon:"file"`
	Language     string            `json:"language" yaml:"language" toon:"language"`
	LOC          int               `json:"loc" yaml:"loc" toon:"loc"`
	ImportsCount int               `json:"imports_count" yaml:"imports_count" toon:"imports_count"`
	Functions    []FunctionMetrics `json:"functions" yaml:"functions" toon:"functions"`
}

// NewFileMetrics returns an empty FileMetrics for a scanned file.
func NewFileMetrics(file SourceFile) FileMetrics {
	return FileMetrics{
		Path:      file.Path,
		Language:  file.Language,
		LOC:       file.LOC,
		Functions: make([]FunctionMetrics, 0),
	}
}

// FunctionsCount returns the number of functions found in the file.
func (f FileMetrics) FunctionsCount() int {
	return len(f.Functions)
}

// MarshalJSON adds the derived functions_count field.
func (f FileMetrics) MarshalJSON() ([]byte, error) {
	type plain FileMetrics
	return json.Marshal(struct {
		plain
		FunctionsCount int `json:"functions_count"`
	}{plain: plain(f), FunctionsCount: len(f.Functions)})
}

// MetricsSummary provides aggregate statistics over a set of files.
type MetricsSummary struct {
	TotalFiles     int     `json:"total_files" yaml:"total_files" toon:"total_files"`
	TotalLOC       int     `json:"total_loc" yaml:"total_loc" toon:"total_loc"`
	TotalFunctions int     `json:"total_functions" yaml:"total_functions" toon:"total_functions"`
	TotalImports   int     `json:"total_imports" yaml:"total_imports" toon:"total_imports"`
	AvgComplexity  float64 `json:"avg_complexity" yaml:"avg_complexity" toon:"avg_complexity"`
	MaxComplexity  int     `json:"max_complexity" yaml:"max_complexity" toon:"max_complexity"`
	P50Complexity  int     `json:"p50_complexity" yaml:"p50_complexity" toon:"p50_complexity"`
	P90Complexity  int     `json:"p90_complexity" yaml:"p90_complexity" toon:"p90_complexity"`
	AvgFunctionLOC float64 `json:"avg_function_loc" yaml:"avg_function_loc" toon:"avg_function_loc"`
	MaxNesting     int     `json:"max_nesting" yaml:"max_nesting" toon:"max_nesting"`
}

// Summarize computes a MetricsSummary.
func Summarize(files []FileMetrics) MetricsSummary {
	summary := MetricsSummary{TotalFiles: len(files)}

	var totalComplexity, totalFnLOC int
	var complexities []int
	for _, f := range files {
		summary.TotalLOC += f.LOC
		summary.TotalImports += f.ImportsCount
		summary.TotalFunctions += len(f.Functions)
		for _, fn := range f.Functions {
			totalComplexity += fn.Complexity
			complexities = append(complexities, fn.Complexity)
			totalFnLOC += fn.LOC
			summary.MaxComplexity = max(summary.MaxComplexity, fn.Complexity)
			summary.MaxNesting = max(summary.MaxNesting, fn.NestingDepth)
		}
	}

	if summary.TotalFunctions > 0 {
		summary.AvgComplexity = float64(totalComplexity) / float64(summary.TotalFunctions)
		summary.AvgFunctionLOC = float64(totalFnLOC) / float64(summary.TotalFunctions)
		ps := stats.Percentiles(complexities, 50, 90)
		summary.P50Complexity, summary.P90Complexity = ps[0], ps[1]
	}

	return summary
}
