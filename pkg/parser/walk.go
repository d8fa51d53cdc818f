package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// WalkTyped traverses the AST in document order with cached node types to
// reduce CGO overhead. Returning false skips the node's children. The
// traversal keeps its own stack, so depth is bounded by heap rather than by
// the goroutine stack.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	stack := []*sitter.Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visitor(n, n.Type(), source) {
			continue
		}

		// Push in reverse so the first child is visited first.
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// FindNodesOfKind returns all named nodes whose type is in kinds, in
// document order. Anonymous tokens such as the `function` keyword never
// match.
func FindNodesOfKind(root *sitter.Node, source []byte, kinds map[string]bool) []*sitter.Node {
	if len(kinds) == 0 {
		return nil
	}
	var results []*sitter.Node
	WalkTyped(root, source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if kinds[nodeType] && node.IsNamed() {
			results = append(results, node)
		}
		return true
	})
	return results
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// StartLine returns the 1-indexed line the node starts on.
func StartLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// EndLine returns the 1-indexed line the node ends on.
func EndLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

var identifierKinds = map[string]bool{
	"identifier":          true,
	"property_identifier": true,
	"field_identifier":    true,
}

// IsIdentifier reports whether a node kind names something.
func IsIdentifier(nodeType string) bool {
	return identifierKinds[nodeType]
}

// MakeSet converts a slice to a map for O(1) lookups.
func MakeSet(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
