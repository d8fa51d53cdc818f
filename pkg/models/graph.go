package models

import "strings"

// GraphEdge is a single import edge between two modules.
type GraphEdge struct {
	Source string `json:"source" yaml:"source" toon:"source"`
	Target string `json:"target" yaml:"target" toon:"target"`
}

// GraphExport is the serializable form of a dependency graph.
type GraphExport struct {
	Nodes                []string    `json:"nodes" yaml:"nodes" toon:"nodes"`
	Edges                []GraphEdge `json:"edges" yaml:"edges" toon:"edges"`
	CircularDependencies [][]string  `json:"circular_dependencies" yaml:"circular_dependencies" toon:"circular_dependencies"`
}

// ModuleDependents ranks a module by how many edges point at it.
type ModuleDependents struct {
	Module     string `json:"module" yaml:"module" toon:"module"`
	Dependents int    `json:"dependents" yaml:"dependents" toon:"dependents"`
}

// ModuleDependencies ranks a module by how many edges leave it.
type ModuleDependencies struct {
	Module       string `json:"module" yaml:"module" toon:"module"`
	Dependencies int    `json:"dependencies" yaml:"dependencies" toon:"dependencies"`
}

// DependencyReport summarizes a dependency graph.
type DependencyReport struct {
	TotalModules         int                  `json:"total_modules" yaml:"total_modules" toon:"total_modules"`
	TotalDependencies    int                  `json:"total_dependencies" yaml:"total_dependencies" toon:"total_dependencies"`
	CircularDependencies [][]string           `json:"circular_dependencies" yaml:"circular_dependencies" toon:"circular_dependencies"`
	MostDependedUpon     []ModuleDependents   `json:"most_depended_upon" yaml:"most_depended_upon" toon:"most_depended_upon"`
	MostDependencies     []ModuleDependencies `json:"most_dependencies" yaml:"most_dependencies" toon:"most_dependencies"`
}

// HasCycles reports whether the report lists any circular dependency.
func (r DependencyReport) HasCycles() bool {
	return len(r.CircularDependencies) > 0
}

// ToMermaid generates Mermaid flowchart syntax from the export.
// Modules that take part in a cycle are highlighted.
func (g GraphExport) ToMermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		b.WriteString("    ")
		b.WriteString(sanitizeMermaidID(node))
		b.WriteString("[\"")
		b.WriteString(strings.ReplaceAll(node, "\"", "'"))
		b.WriteString("\"]\n")
	}

	for _, edge := range g.Edges {
		b.WriteString("    ")
		b.WriteString(sanitizeMermaidID(edge.Source))
		b.WriteString(" --> ")
		b.WriteString(sanitizeMermaidID(edge.Target))
		b.WriteString("\n")
	}

	inCycle := make(map[string]bool)
	for _, cycle := range g.CircularDependencies {
		for _, m := range cycle {
			inCycle[m] = true
		}
	}
	if len(inCycle) > 0 {
		b.WriteString("    classDef cycle fill:#f96,stroke:#c00\n")
		for _, node := range g.Nodes {
			if inCycle[node] {
				b.WriteString("    class ")
				b.WriteString(sanitizeMermaidID(node))
				b.WriteString(" cycle\n")
			}
		}
	}

	return b.String()
}

// sanitizeMermaidID makes an ID safe for Mermaid.
func sanitizeMermaidID(id string) string {
	var b strings.Builder
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
