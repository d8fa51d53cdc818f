package metrics

import (
	"regexp"

	"github.com/panbanda/inspector/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Tables holds the node kinds the metrics pass looks for in one language.
type Tables struct {
	Functions map[string]bool
	Decisions map[string]bool
	Nesting   map[string]bool
	Logical   map[string]bool

	// ParamLists are the kinds of a function's parameter-list child and
	// Params the kinds of its children that count as parameters.
	ParamLists map[string]bool
	Params     map[string]bool
	// ParamNames counts the identifiers declared by each parameter node
	// instead of the node itself, for grammars that group `a, b int`.
	ParamNames bool

	Imports map[string]bool
	// Requires are statement kinds that import only when their text
	// contains a CommonJS require call.
	Requires map[string]bool
}

// logicalKinds are binary expression nodes whose text is scanned for
// short-circuit operators.
var logicalKinds = parser.MakeSet("boolean_operator", "binary_expression")

var jsTables = Tables{
	Decisions: parser.MakeSet(
		"if_statement", "while_statement", "do_statement", "for_statement",
		"for_in_statement", "switch_case", "catch_clause", "ternary_expression",
	),
	Nesting: parser.MakeSet(
		"if_statement", "while_statement", "do_statement", "for_statement",
		"for_in_statement", "try_statement", "switch_statement",
	),
	ParamLists: parser.MakeSet("formal_parameters"),
	Params: parser.MakeSet(
		"identifier", "assignment_pattern", "rest_pattern", "object_pattern",
		"array_pattern", "required_parameter", "optional_parameter",
	),
	Imports:  parser.MakeSet("import_statement"),
	Requires: parser.MakeSet("lexical_declaration", "variable_declaration", "expression_statement"),
}

var tables = map[parser.Language]Tables{
	parser.LangPython: {
		Decisions: parser.MakeSet(
			"if_statement", "elif_clause", "while_statement", "for_statement", "except_clause",
		),
		Nesting: parser.MakeSet(
			"if_statement", "while_statement", "for_statement", "try_statement", "with_statement",
		),
		ParamLists: parser.MakeSet("parameters"),
		Params: parser.MakeSet(
			"identifier", "typed_parameter", "default_parameter", "typed_default_parameter",
			"list_splat_pattern", "dictionary_splat_pattern",
		),
		Imports: parser.MakeSet("import_statement", "import_from_statement"),
	},
	parser.LangJavaScript: jsTables,
	parser.LangTypeScript: jsTables,
	parser.LangTSX:        jsTables,
	parser.LangJava: {
		Decisions: parser.MakeSet(
			"if_statement", "while_statement", "do_statement", "for_statement",
			"enhanced_for_statement", "switch_label", "catch_clause", "ternary_expression",
		),
		Nesting: parser.MakeSet(
			"if_statement", "while_statement", "do_statement", "for_statement",
			"enhanced_for_statement", "try_statement", "try_with_resources_statement",
			"switch_expression",
		),
		ParamLists: parser.MakeSet("formal_parameters", "inferred_parameters"),
		Params:     parser.MakeSet("formal_parameter", "spread_parameter", "identifier"),
		Imports:    parser.MakeSet("import_declaration"),
	},
	parser.LangGo: {
		Decisions: parser.MakeSet(
			"if_statement", "for_statement", "expression_case", "type_case", "communication_case",
		),
		Nesting: parser.MakeSet(
			"if_statement", "for_statement", "expression_switch_statement",
			"type_switch_statement", "select_statement",
		),
		ParamLists: parser.MakeSet("parameter_list"),
		Params:     parser.MakeSet("parameter_declaration", "variadic_parameter_declaration"),
		ParamNames: true,
		Imports:    parser.MakeSet("import_spec"),
	},
}

// TablesFor returns the lookup tables for lang. Unknown languages get
// empty tables, which yield no functions and no imports.
func TablesFor(lang parser.Language) Tables {
	t, ok := tables[lang]
	if !ok {
		return Tables{}
	}
	t.Functions = parser.FunctionKinds(lang)
	t.Logical = logicalKinds
	return t
}

var requireCall = regexp.MustCompile(`\brequire\s*\(`)

// ImportNodes returns the import statement nodes of a tree in document order.
// Both the metrics pass (for ImportsCount) and the dependency graph use it.
func ImportNodes(tree *parser.ParseResult) []*sitter.Node {
	root := tree.Root()
	if root == nil {
		return nil
	}
	t := TablesFor(tree.Language)
	if len(t.Imports) == 0 && len(t.Requires) == 0 {
		return nil
	}

	var nodes []*sitter.Node
	parser.WalkTyped(root, tree.Source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if t.Imports[nodeType] {
			nodes = append(nodes, n)
			return false
		}
		if t.Requires[nodeType] && requireCall.MatchString(parser.GetNodeText(n, src)) {
			nodes = append(nodes, n)
			return false
		}
		return true
	})
	return nodes
}
