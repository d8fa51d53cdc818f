package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// AnonymousName is reported for function nodes without an identifier child.
const AnonymousName = "<anonymous>"

var functionKinds = map[Language]map[string]bool{
	LangPython: MakeSet("function_definition"),
	LangJavaScript: MakeSet(
		"function_declaration", "function_expression",
		"arrow_function", "method_definition", "generator_function_declaration",
	),
	LangTypeScript: MakeSet(
		"function_declaration", "function_expression",
		"arrow_function", "method_definition", "generator_function_declaration",
	),
	LangTSX: MakeSet(
		"function_declaration", "function_expression",
		"arrow_function", "method_definition", "generator_function_declaration",
	),
	LangJava: MakeSet("method_declaration", "constructor_declaration", "lambda_expression"),
	LangGo:   MakeSet("function_declaration", "method_declaration", "func_literal"),
}

// FunctionKinds returns the node kinds treated as functions for lang.
// Unknown languages yield an empty set.
func FunctionKinds(lang Language) map[string]bool {
	return functionKinds[lang]
}

// FunctionNodes returns every function-like node in the tree, nested ones
// included, in document order.
func FunctionNodes(result *ParseResult) []*sitter.Node {
	root := result.Root()
	if root == nil {
		return nil
	}
	return FindNodesOfKind(root, result.Source, FunctionKinds(result.Language))
}

// FunctionsByStartLine indexes function nodes by their 1-indexed start
// line. When several functions start on one line the first one wins.
func FunctionsByStartLine(result *ParseResult) map[int]*sitter.Node {
	nodes := FunctionNodes(result)
	byLine := make(map[int]*sitter.Node, len(nodes))
	for _, fn := range nodes {
		line := StartLine(fn)
		if _, ok := byLine[line]; !ok {
			byLine[line] = fn
		}
	}
	return byLine
}

// FunctionName returns the text of the first identifier child of a function
// node, or AnonymousName. A bare lambda parameter (`x => x` in JavaScript,
// `x -> x` in Java) is not a name.
func FunctionName(node *sitter.Node, source []byte) string {
	params := []*sitter.Node{
		node.ChildByFieldName("parameter"),
		node.ChildByFieldName("parameters"),
	}

	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child == nil || !IsIdentifier(child.Type()) || isParameter(child, params) {
			continue
		}
		return GetNodeText(child, source)
	}
	return AnonymousName
}

func isParameter(child *sitter.Node, params []*sitter.Node) bool {
	for _, p := range params {
		if p != nil && p.StartByte() == child.StartByte() && p.EndByte() == child.EndByte() {
			return true
		}
	}
	return false
}
