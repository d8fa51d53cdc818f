package smells

import (
	"errors"
	"testing"

	"github.com/panbanda/inspector/pkg/analyzer/metrics"
	"github.com/panbanda/inspector/pkg/config"
	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTrees serves parsed snippets by path.
type fakeTrees map[string]*parser.ParseResult

func (f fakeTrees) Tree(path string) (*parser.ParseResult, error) {
	if t, ok := f[path]; ok {
		return t, nil
	}
	return nil, errors.New("no tree")
}

func parseInto(t *testing.T, trees fakeTrees, path, src string) {
	t.Helper()
	p := parser.New()
	defer p.Close()

	res, err := p.Parse([]byte(src), parser.DetectLanguage(path), path)
	require.NoError(t, err)
	t.Cleanup(res.Close)
	trees[path] = res
}

func fnWithLOC(loc int) models.FunctionMetrics {
	return models.NewFunctionMetrics("f", "a.py", 1, loc, 1, 0, 0)
}

func TestLongFunction(t *testing.T) {
	th := config.DefaultThresholds()

	tests := []struct {
		name    string
		loc     int
		wantOK  bool
		wantSev models.Severity
	}{
		{"severe", 201, true, models.SeveritySevere},
		{"warning", 50, true, models.SeverityWarning},
		{"at warning threshold", 30, false, 0},
		{"short", 10, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := LongFunction(fnWithLOC(tt.loc), th)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantSev, s.Severity)
				assert.Equal(t, models.SmellLongFunction, s.Type)
			}
		})
	}
}

func TestDetect_LongFunctionYieldsExactlyOneSmell(t *testing.T) {
	d := New(WithDuplicates(false))

	for loc, want := range map[int][]models.Severity{
		201: {models.SeveritySevere},
		50:  {models.SeverityWarning},
		10:  nil,
	} {
		files := []models.FileMetrics{{Path: "a.py", LOC: loc, Functions: []models.FunctionMetrics{fnWithLOC(loc)}}}
		smells := d.Detect(files)

		var got []models.Severity
		for _, s := range smells {
			got = append(got, s.Severity)
		}
		assert.Equal(t, want, got, "loc=%d", loc)
	}
}

func TestDetect_SevereMessage(t *testing.T) {
	fn := models.NewFunctionMetrics("process", "svc.py", 10, 210, 1, 0, 0)
	smells := New(WithDuplicates(false)).CheckFunction(fn)

	require.Len(t, smells, 1)
	s := smells[0]
	assert.Equal(t, "Function 'process' is very long (201 LOC, threshold: 200)", s.Message)
	assert.Equal(t, "svc.py", s.File)
	assert.Equal(t, 10, s.Line)
	assert.Equal(t, "process", s.Function)
}

func TestDetect_OtherFunctionChecks(t *testing.T) {
	fn := models.NewFunctionMetrics("busy", "b.js", 1, 5, 11, 8, 6)
	smells := New().CheckFunction(fn)

	types := map[models.SmellType]models.CodeSmell{}
	for _, s := range smells {
		types[s.Type] = s
	}
	require.Len(t, types, 3)
	assert.Equal(t, "Function 'busy' has high complexity (11, threshold: 10)", types[models.SmellHighComplexity].Message)
	assert.Equal(t, "Function 'busy' has too many parameters (8, threshold: 7)", types[models.SmellTooManyParameters].Message)
	assert.Equal(t, "Function 'busy' has deep nesting (6, threshold: 5)", types[models.SmellDeepNesting].Message)
	for _, s := range smells {
		assert.Equal(t, models.SeverityWarning, s.Severity)
	}
}

func TestDetect_AtThresholdsNoSmells(t *testing.T) {
	fn := models.NewFunctionMetrics("ok", "b.js", 1, 30, 10, 7, 5)
	assert.Empty(t, New().CheckFunction(fn))
}

func TestLargeFile(t *testing.T) {
	d := New(WithDuplicates(false))

	smells := d.Detect([]models.FileMetrics{{Path: "big.java", LOC: 1001}})
	require.Len(t, smells, 1)
	assert.Equal(t, models.SmellLargeFile, smells[0].Type)
	assert.Equal(t, 0, smells[0].Line)
	assert.Empty(t, smells[0].Function)
	assert.Equal(t, "File is very large (1001 LOC, threshold: 1000)", smells[0].Message)

	assert.Empty(t, d.Detect([]models.FileMetrics{{Path: "ok.java", LOC: 1000}}))
}

func TestCustomThresholds(t *testing.T) {
	th := config.DefaultThresholds()
	th.ComplexityWarning = 2

	smells := New(WithThresholds(th)).CheckFunction(models.NewFunctionMetrics("f", "a.py", 1, 2, 3, 0, 0))
	require.Len(t, smells, 1)
	assert.Equal(t, models.SmellHighComplexity, smells[0].Type)
}

func TestDetectDuplicates_AcrossFiles(t *testing.T) {
	trees := fakeTrees{}
	parseInto(t, trees, "a.py", "def add(a, b):\n    return a + b\n")
	parseInto(t, trees, "b.py", "x = 1\n\n\ndef add(a,   b):\n        return a + b\n")

	files := []models.FileMetrics{
		{Path: "a.py", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("add", "a.py", 1, 2, 1, 2, 0)}},
		{Path: "b.py", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("add", "b.py", 4, 5, 1, 2, 0)}},
	}

	smells := New(WithTreeSource(trees)).DetectDuplicates(files)
	require.Len(t, smells, 2)

	for _, s := range smells {
		assert.Equal(t, models.SmellCodeDuplication, s.Type)
		assert.Equal(t, models.SeverityInfo, s.Severity)
		assert.Contains(t, s.Message, "a.py:1")
		assert.Contains(t, s.Message, "b.py:4")
	}
	assert.Equal(t, "a.py", smells[0].File)
	assert.Equal(t, 1, smells[0].Line)
	assert.Equal(t, "b.py", smells[1].File)
	assert.Equal(t, 4, smells[1].Line)
	assert.Equal(t, "Function 'add' appears duplicated. Also found at: a.py:1, b.py:4", smells[0].Message)
}

func TestDetectDuplicates_DifferentBodies(t *testing.T) {
	trees := fakeTrees{}
	parseInto(t, trees, "a.py", "def add(a, b):\n    return a + b\n")
	parseInto(t, trees, "b.py", "def add(a, b):\n    return a - b\n")

	files := []models.FileMetrics{
		{Path: "a.py", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("add", "a.py", 1, 2, 1, 2, 0)}},
		{Path: "b.py", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("add", "b.py", 1, 2, 1, 2, 0)}},
	}

	assert.Empty(t, New(WithTreeSource(trees)).DetectDuplicates(files))
}

func TestDetectDuplicates_MissingTreesAreSkipped(t *testing.T) {
	trees := fakeTrees{}
	parseInto(t, trees, "a.js", "function f() { return 1; }\n")

	files := []models.FileMetrics{
		{Path: "a.js", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("f", "a.js", 1, 1, 1, 0, 0)}},
		{Path: "gone.js", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("f", "gone.js", 1, 1, 1, 0, 0)}},
		// Recorded start line no longer matches any function node.
		{Path: "a.js", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("f", "a.js", 9, 9, 1, 0, 0)}},
	}

	assert.NotPanics(t, func() {
		assert.Empty(t, New(WithTreeSource(trees)).DetectDuplicates(files))
	})
	assert.Empty(t, New().DetectDuplicates(files), "no tree source, no duplicates")
}

// computeAll parses every source and runs the metrics pass on it, so the
// detector sees the same records a real run produces.
func computeAll(t *testing.T, sources map[string]string, order ...string) (fakeTrees, []models.FileMetrics) {
	t.Helper()
	trees := fakeTrees{}
	var files []models.FileMetrics
	for _, path := range order {
		parseInto(t, trees, path, sources[path])
		lang := parser.DetectLanguage(path)
		files = append(files, metrics.Compute(trees[path], models.SourceFile{Path: path, Language: lang.String()}))
	}
	return trees, files
}

func TestDetectDuplicates_ComputedMetrics(t *testing.T) {
	tests := []struct {
		name    string
		sources map[string]string
		order   []string
		want    int
	}{
		{
			name: "single javascript file with unique functions",
			sources: map[string]string{
				"only.js": "function unique(a) {\n  return a * 42;\n}\n\nconst other = function (b) { return b - 1; };\n",
			},
			order: []string{"only.js"},
			want:  0,
		},
		{
			name: "single typescript file",
			sources: map[string]string{
				"only.ts": "export function typed(a: number): number {\n  return a;\n}\n",
			},
			order: []string{"only.ts"},
			want:  0,
		},
		{
			name: "single python file with unique functions",
			sources: map[string]string{
				"only.py": "def one(a):\n    return a\n\n\ndef two(b):\n    return b * 2\n",
			},
			order: []string{"only.py"},
			want:  0,
		},
		{
			name: "javascript function shared by two files",
			sources: map[string]string{
				"a.js": "function shared(x) {\n  return x + 1;\n}\n\nfunction onlyA() { return 0; }\n",
				"b.js": "function shared(x) { return x + 1; }\n",
			},
			order: []string{"a.js", "b.js"},
			want:  2,
		},
		{
			name: "python function shared by two files",
			sources: map[string]string{
				"a.py": "def shared(x):\n    return x + 1\n",
				"b.py": "import os\n\n\ndef shared(x):\n        return x + 1\n",
			},
			order: []string{"a.py", "b.py"},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trees, files := computeAll(t, tt.sources, tt.order...)

			smells := New(WithTreeSource(trees)).DetectDuplicates(files)
			require.Len(t, smells, tt.want)
			for _, s := range smells {
				assert.Equal(t, "shared", s.Function)
				for _, other := range tt.order {
					assert.Contains(t, s.Message, other+":", "each smell lists every copy")
				}
			}
		})
	}
}

func TestDetect_IncludesDuplicatesByDefault(t *testing.T) {
	trees := fakeTrees{}
	parseInto(t, trees, "a.js", "function f() { return 1; }\n")
	parseInto(t, trees, "b.js", "function f() {\n  return 1;\n}\n")

	files := []models.FileMetrics{
		{Path: "a.js", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("f", "a.js", 1, 1, 1, 0, 0)}},
		{Path: "b.js", Functions: []models.FunctionMetrics{models.NewFunctionMetrics("f", "b.js", 1, 3, 1, 0, 0)}},
	}

	smells := New(WithTreeSource(trees)).Detect(files)
	assert.Len(t, smells, 2)

	smells = New(WithTreeSource(trees), WithDuplicates(false)).Detect(files)
	assert.Empty(t, smells)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "def f(): return 1", NormalizeWhitespace("def f():\n\t  return   1\n"))
	assert.Equal(t, "", NormalizeWhitespace(" \n\t "))
}

func TestUnusedDetectorsReportNothing(t *testing.T) {
	fm := models.FileMetrics{Path: "a.py", ImportsCount: 3}
	assert.Empty(t, DetectUnusedVariables(fm))
	assert.Empty(t, DetectUnusedImports(fm))
}

func TestSortSmells(t *testing.T) {
	smells := []models.CodeSmell{
		{Type: models.SmellCodeDuplication, Severity: models.SeverityInfo, File: "a.py", Line: 1},
		{Type: models.SmellLongFunction, Severity: models.SeverityWarning, File: "b.py", Line: 3},
		{Type: models.SmellLongFunction, Severity: models.SeveritySevere, File: "c.py", Line: 9},
		{Type: models.SmellDeepNesting, Severity: models.SeverityWarning, File: "a.py", Line: 7},
	}
	SortSmells(smells)

	assert.Equal(t, models.SeveritySevere, smells[0].Severity)
	assert.Equal(t, "a.py", smells[1].File)
	assert.Equal(t, "b.py", smells[2].File)
	assert.Equal(t, models.SeverityInfo, smells[3].Severity)
}

func TestFilterAndSummary(t *testing.T) {
	smells := []models.CodeSmell{
		{Type: models.SmellCodeDuplication, Severity: models.SeverityInfo},
		{Type: models.SmellLongFunction, Severity: models.SeverityWarning},
		{Type: models.SmellLongFunction, Severity: models.SeveritySevere},
	}

	assert.Len(t, Filter(smells, models.SeverityWarning), 2)
	assert.Len(t, Filter(smells, models.SeverityInfo), 3)

	sum := Summary(smells)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.ByType[models.SmellLongFunction])
}
