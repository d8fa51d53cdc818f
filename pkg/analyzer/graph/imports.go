package graph

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/panbanda/inspector/pkg/analyzer/metrics"
	"github.com/panbanda/inspector/pkg/parser"
)

var (
	pyFromImport = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import`)

	jsFrom       = regexp.MustCompile(`from\s+['"]([^'"]+)['"]`)
	jsSideEffect = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	jsRequire    = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)

	javaImport = regexp.MustCompile(`import\s+(?:static\s+)?([\w.]+(?:\.\*)?)\s*;`)

	goImportPath = regexp.MustCompile("[\"`]([^\"`]+)[\"`]")
)

// ModuleName returns the module identifier of a file: its base name
// without the extension.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ExtractImports returns the raw import targets of a parsed file in
// document order. Targets are not resolved to files.
func ExtractImports(tree *parser.ParseResult) []string {
	var targets []string
	for _, n := range metrics.ImportNodes(tree) {
		text := parser.GetNodeText(n, tree.Source)
		targets = append(targets, importTargets(tree.Language, n.Type(), text)...)
	}
	return targets
}

func importTargets(lang parser.Language, kind, text string) []string {
	switch lang {
	case parser.LangPython:
		return pythonTargets(kind, text)
	case parser.LangJavaScript, parser.LangTypeScript, parser.LangTSX:
		if kind != "import_statement" {
			return submatches(jsRequire, text)
		}
		if m := jsFrom.FindStringSubmatch(text); m != nil {
			return []string{m[1]}
		}
		if m := jsSideEffect.FindStringSubmatch(text); m != nil {
			return []string{m[1]}
		}
	case parser.LangJava:
		if m := javaImport.FindStringSubmatch(text); m != nil {
			return []string{m[1]}
		}
	case parser.LangGo:
		if m := goImportPath.FindStringSubmatch(text); m != nil {
			return []string{m[1]}
		}
	}
	return nil
}

// pythonTargets handles `import a, b.c as d` and `from x import y`.
func pythonTargets(kind, text string) []string {
	if kind == "import_from_statement" {
		if m := pyFromImport.FindStringSubmatch(text); m != nil {
			return []string{m[1]}
		}
		return nil
	}

	rest, ok := strings.CutPrefix(strings.TrimSpace(text), "import ")
	if !ok {
		return nil
	}
	var targets []string
	for part := range strings.SplitSeq(rest, ",") {
		if fields := strings.Fields(part); len(fields) > 0 {
			targets = append(targets, fields[0])
		}
	}
	return targets
}

func submatches(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
