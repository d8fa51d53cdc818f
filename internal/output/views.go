package output

import (
	"cmp"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/inspector/pkg/models"
)

// MetricsView renders per-file and per-function metrics.
type MetricsView struct {
	Root    string
	Summary models.MetricsSummary
	Files   []models.FileMetrics
	// TopFunctions limits the function table to the most complex ones
	// (0 = all).
	TopFunctions int
}

func (v *MetricsView) report() *Report {
	summary := &Section{
		Title: "Summary",
		Content: fmt.Sprintf(
			"Files: %d\nLines of code: %d\nFunctions: %d\nImports: %d\nAverage complexity: %.2f (p50 %d, p90 %d, max %d)\nAverage function LOC: %.1f\nMax nesting: %d",
			v.Summary.TotalFiles, v.Summary.TotalLOC, v.Summary.TotalFunctions, v.Summary.TotalImports,
			v.Summary.AvgComplexity, v.Summary.P50Complexity, v.Summary.P90Complexity, v.Summary.MaxComplexity,
			v.Summary.AvgFunctionLOC, v.Summary.MaxNesting,
		),
	}

	fileRows := make([][]string, 0, len(v.Files))
	for _, f := range v.Files {
		fileRows = append(fileRows, []string{
			displayPath(v.Root, f.Path), f.Language, strconv.Itoa(f.LOC),
			strconv.Itoa(f.FunctionsCount()), strconv.Itoa(f.ImportsCount),
		})
	}
	files := NewTable("Files", []string{"File", "Language", "LOC", "Functions", "Imports"}, fileRows, nil, nil)

	fns := topFunctions(v.Files, v.TopFunctions)
	fnRows := make([][]string, 0, len(fns))
	for _, fn := range fns {
		fnRows = append(fnRows, []string{
			fn.Name, fmt.Sprintf("%s:%d", displayPath(v.Root, fn.File), fn.StartLine),
			strconv.Itoa(fn.LOC), strconv.Itoa(fn.Complexity),
			strconv.Itoa(fn.Parameters), strconv.Itoa(fn.NestingDepth),
		})
	}
	functions := NewTable("Functions", []string{"Function", "Location", "LOC", "Complexity", "Params", "Nesting"}, fnRows, nil, nil)

	return &Report{Title: "Code Metrics", Sections: []Renderable{summary, files, functions}}
}

func (v *MetricsView) RenderText(w io.Writer, colored bool) error {
	return v.report().RenderText(w, colored)
}

func (v *MetricsView) RenderMarkdown(w io.Writer) error {
	return v.report().RenderMarkdown(w)
}

func (v *MetricsView) RenderData() any {
	return struct {
		Summary models.MetricsSummary `json:"summary" yaml:"summary" toon:"summary"`
		Files   []models.FileMetrics  `json:"files" yaml:"files" toon:"files"`
	}{v.Summary, v.Files}
}

// topFunctions returns the functions of files ordered by complexity,
// highest first, keeping file order among ties.
func topFunctions(files []models.FileMetrics, limit int) []models.FunctionMetrics {
	var all []models.FunctionMetrics
	for _, f := range files {
		all = append(all, f.Functions...)
	}
	slices.SortStableFunc(all, func(a, b models.FunctionMetrics) int { return cmp.Compare(b.Complexity, a.Complexity) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// SmellsView renders detected smells grouped by severity.
type SmellsView struct {
	Root    string
	Smells  []models.CodeSmell
	Summary models.SmellSummary
}

func (v *SmellsView) rows(colored bool) [][]string {
	rows := make([][]string, 0, len(v.Smells))
	for _, s := range v.Smells {
		sev := s.Severity.String()
		if colored {
			sev = SeverityColor(sev, sev)
		}
		loc := displayPath(v.Root, s.File)
		if s.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, s.Line)
		}
		rows = append(rows, []string{sev, string(s.Type), loc, s.Message})
	}
	return rows
}

func (v *SmellsView) summaryText() string {
	parts := []string{fmt.Sprintf("Total: %d", v.Summary.Total)}
	for _, sev := range []models.Severity{models.SeveritySevere, models.SeverityWarning, models.SeverityInfo} {
		parts = append(parts, fmt.Sprintf("%s: %d", sev, v.Summary.BySeverity[sev.String()]))
	}
	return strings.Join(parts, "  ")
}

var smellHeaders = []string{"Severity", "Type", "Location", "Message"}

func (v *SmellsView) RenderText(w io.Writer, colored bool) error {
	r := &Report{Title: "Code Smells", Sections: []Renderable{
		&Section{Content: v.summaryText()},
		NewTable("", smellHeaders, v.rows(colored), nil, nil),
	}}
	return r.RenderText(w, colored)
}

func (v *SmellsView) RenderMarkdown(w io.Writer) error {
	r := &Report{Title: "Code Smells", Sections: []Renderable{
		&Section{Content: v.summaryText()},
		NewTable("", smellHeaders, v.rows(false), nil, nil),
	}}
	return r.RenderMarkdown(w)
}

func (v *SmellsView) RenderData() any {
	smells := v.Smells
	if smells == nil {
		smells = []models.CodeSmell{}
	}
	return struct {
		Summary models.SmellSummary `json:"summary" yaml:"summary" toon:"summary"`
		Smells  []models.CodeSmell  `json:"smells" yaml:"smells" toon:"smells"`
	}{v.Summary, smells}
}

// DOTMarshaler encodes a graph in Graphviz DOT format.
type DOTMarshaler interface {
	MarshalDOT() ([]byte, error)
}

// GraphData is the serialized form of a GraphView.
type GraphData struct {
	Report models.DependencyReport `json:"report" yaml:"report" toon:"report"`
	Graph  models.GraphExport      `json:"graph" yaml:"graph" toon:"graph"`
}

// GraphView renders the dependency report; it also draws the graph as DOT
// or Mermaid.
type GraphView struct {
	Report models.DependencyReport
	Export models.GraphExport
	Graph  DOTMarshaler
}

func (v *GraphView) report(colored bool) *Report {
	summary := &Section{
		Title:   "Summary",
		Content: fmt.Sprintf("Modules: %d\nDependencies: %d\nCircular dependencies: %d", v.Report.TotalModules, v.Report.TotalDependencies, len(v.Report.CircularDependencies)),
	}

	cycleRows := make([][]string, 0, len(v.Report.CircularDependencies))
	for i, c := range v.Report.CircularDependencies {
		path := strings.Join(append(append([]string{}, c...), c[0]), " -> ")
		if colored {
			path = color.RedString(path)
		}
		cycleRows = append(cycleRows, []string{strconv.Itoa(i + 1), path})
	}

	upon := make([][]string, 0, len(v.Report.MostDependedUpon))
	for _, m := range v.Report.MostDependedUpon {
		upon = append(upon, []string{m.Module, strconv.Itoa(m.Dependents)})
	}
	deps := make([][]string, 0, len(v.Report.MostDependencies))
	for _, m := range v.Report.MostDependencies {
		deps = append(deps, []string{m.Module, strconv.Itoa(m.Dependencies)})
	}

	return &Report{Title: "Dependency Graph", Sections: []Renderable{
		summary,
		NewTable("Circular Dependencies", []string{"#", "Cycle"}, cycleRows, nil, nil),
		NewTable("Most Depended Upon", []string{"Module", "Dependents"}, upon, nil, nil),
		NewTable("Most Dependencies", []string{"Module", "Dependencies"}, deps, nil, nil),
	}}
}

func (v *GraphView) RenderText(w io.Writer, colored bool) error {
	return v.report(colored).RenderText(w, colored)
}

func (v *GraphView) RenderMarkdown(w io.Writer) error { return v.report(false).RenderMarkdown(w) }

func (v *GraphView) RenderData() any {
	return GraphData{Report: v.Report, Graph: v.Export}
}

func (v *GraphView) RenderDOT(w io.Writer) error {
	if v.Graph == nil {
		return fmt.Errorf("%w: no graph to draw", ErrUnsupportedFormat)
	}
	out, err := v.Graph.MarshalDOT()
	if err != nil {
		return fmt.Errorf("encoding dot: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

func (v *GraphView) RenderMermaid(w io.Writer) error {
	_, err := io.WriteString(w, v.Export.ToMermaid())
	return err
}

// AnalysisView combines every pass of a full run. Nil parts are omitted.
type AnalysisView struct {
	Metrics *MetricsView
	Smells  *SmellsView
	Graph   *GraphView
	// Failures lists files that could not be analyzed.
	Failures []string
	// Data is serialized for JSON, TOON and YAML.
	Data any
}

func (v *AnalysisView) parts() []Renderable {
	var parts []Renderable
	if v.Metrics != nil {
		parts = append(parts, v.Metrics)
	}
	if v.Smells != nil {
		parts = append(parts, v.Smells)
	}
	if v.Graph != nil {
		parts = append(parts, v.Graph)
	}
	if len(v.Failures) > 0 {
		parts = append(parts, &Section{Title: "Failures", Content: strings.Join(v.Failures, "\n")})
	}
	return parts
}

func (v *AnalysisView) RenderText(w io.Writer, colored bool) error {
	return (&Report{Sections: v.parts()}).RenderText(w, colored)
}

func (v *AnalysisView) RenderMarkdown(w io.Writer) error {
	return (&Report{Title: "Code Analysis", Sections: v.parts()}).RenderMarkdown(w)
}

func (v *AnalysisView) RenderData() any { return v.Data }

func (v *AnalysisView) RenderDOT(w io.Writer) error {
	if v.Graph == nil {
		return fmt.Errorf("%w: dependency graph was not built", ErrUnsupportedFormat)
	}
	return v.Graph.RenderDOT(w)
}

func (v *AnalysisView) RenderMermaid(w io.Writer) error {
	if v.Graph == nil {
		return fmt.Errorf("%w: dependency graph was not built", ErrUnsupportedFormat)
	}
	return v.Graph.RenderMermaid(w)
}

// displayPath shortens path relative to root when possible.
func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	if rel == "." {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
