// Package graph builds module dependency graphs from import statements and
// analyzes them for cycles and fan-in/fan-out rankings.
package graph

import (
	"cmp"
	"slices"

	"github.com/panbanda/inspector/pkg/models"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TopN is the number of modules listed in each report ranking.
const TopN = 10

// DependencyGraph is a directed multigraph of module identifiers.
// Nodes keep discovery order. Targets that were never scanned are valid
// leaf nodes. Construction must happen on a single goroutine; once built,
// every query is read-only and safe for concurrent use.
type DependencyGraph struct {
	nodes []string
	index map[string]int
	edges []models.GraphEdge
	out   map[string][]string
	in    map[string][]string
}

// New creates an empty graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		index: make(map[string]int),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// AddModule adds a node if it is not present yet.
func (g *DependencyGraph) AddModule(module string) {
	if _, ok := g.index[module]; ok {
		return
	}
	g.index[module] = len(g.nodes)
	g.nodes = append(g.nodes, module)
}

// AddDependency records one edge source -> target, adding both endpoints.
// Repeated edges are kept.
func (g *DependencyGraph) AddDependency(source, target string) {
	g.AddModule(source)
	g.AddModule(target)
	g.edges = append(g.edges, models.GraphEdge{Source: source, Target: target})
	g.out[source] = append(g.out[source], target)
	g.in[target] = append(g.in[target], source)
}

// Modules returns every node in discovery order.
func (g *DependencyGraph) Modules() []string {
	return slices.Clone(g.nodes)
}

// Edges returns every edge in insertion order.
func (g *DependencyGraph) Edges() []models.GraphEdge {
	return slices.Clone(g.edges)
}

// Has reports whether module is a node.
func (g *DependencyGraph) Has(module string) bool {
	_, ok := g.index[module]
	return ok
}

// NumModules returns the node count.
func (g *DependencyGraph) NumModules() int { return len(g.nodes) }

// NumDependencies returns the edge count, repeated edges included.
func (g *DependencyGraph) NumDependencies() int { return len(g.edges) }

// InDegree returns the number of edges pointing at module.
func (g *DependencyGraph) InDegree(module string) int { return len(g.in[module]) }

// OutDegree returns the number of edges leaving module.
func (g *DependencyGraph) OutDegree(module string) int { return len(g.out[module]) }

// DependenciesOf returns the distinct modules that module imports, in the
// order they were first seen. Unknown modules have none.
func (g *DependencyGraph) DependenciesOf(module string) []string {
	return unique(g.out[module])
}

// DependentsOf returns the distinct modules importing module.
func (g *DependencyGraph) DependentsOf(module string) []string {
	return unique(g.in[module])
}

func unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Cycles enumerates every elementary cycle. A module importing itself is a
// one-node cycle. Each cycle lists its modules once, starting from the
// earliest discovered one; cycles are ordered by length, then by their
// modules' discovery order. The count is not capped, so densely cyclic
// graphs can produce very many cycles.
func (g *DependencyGraph) Cycles() [][]string {
	var cycles [][]int

	directed := simple.NewDirectedGraph()
	for i := range g.nodes {
		directed.AddNode(simple.Node(int64(i)))
	}
	selfLoops := make(map[int]bool)
	for _, e := range g.edges {
		from, to := g.index[e.Source], g.index[e.Target]
		if from == to {
			// simple graphs reject self edges.
			selfLoops[from] = true
			continue
		}
		directed.SetEdge(simple.Edge{F: simple.Node(int64(from)), T: simple.Node(int64(to))})
	}

	for i := range g.nodes {
		if selfLoops[i] {
			cycles = append(cycles, []int{i})
		}
	}

	for _, c := range topo.DirectedCyclesIn(directed) {
		// gonum repeats the first node at the end.
		ids := make([]int, 0, len(c)-1)
		for _, n := range c[:len(c)-1] {
			ids = append(ids, int(n.ID()))
		}
		cycles = append(cycles, rotateToMin(ids))
	}

	slices.SortStableFunc(cycles, func(a, b []int) int {
		return cmp.Or(cmp.Compare(len(a), len(b)), slices.Compare(a, b))
	})

	out := make([][]string, len(cycles))
	for i, c := range cycles {
		names := make([]string, len(c))
		for j, id := range c {
			names[j] = g.nodes[id]
		}
		out[i] = names
	}
	return out
}

func rotateToMin(ids []int) []int {
	if len(ids) == 0 {
		return ids
	}
	start := 0
	for i, id := range ids {
		if id < ids[start] {
			start = i
		}
	}
	return append(slices.Clone(ids[start:]), ids[:start]...)
}

// Export returns the node/edge interchange form, cycles included.
func (g *DependencyGraph) Export() models.GraphExport {
	cycles := g.Cycles()
	if cycles == nil {
		cycles = [][]string{}
	}
	return models.GraphExport{
		Nodes:                g.Modules(),
		Edges:                g.Edges(),
		CircularDependencies: cycles,
	}
}

// dotNode labels gonum nodes with the module name.
type dotNode struct {
	id   int64
	name string
}

func (n dotNode) ID() int64      { return n.id }
func (n dotNode) DOTID() string  { return n.name }
func (n dotNode) String() string { return n.name }

var _ dot.Node = dotNode{}

// MarshalDOT encodes the graph, repeated edges and self-imports included,
// in Graphviz DOT format.
func (g *DependencyGraph) MarshalDOT() ([]byte, error) {
	mg := multi.NewDirectedGraph()
	nodes := make([]graph.Node, len(g.nodes))
	for i, name := range g.nodes {
		nodes[i] = dotNode{id: int64(i), name: name}
		mg.AddNode(nodes[i])
	}
	for _, e := range g.edges {
		mg.SetLine(mg.NewLine(nodes[g.index[e.Source]], nodes[g.index[e.Target]]))
	}
	return dot.MarshalMulti(mg, "dependencies", "", "  ")
}

// Report summarizes the graph. It is recomputed on every call.
func Report(g *DependencyGraph) models.DependencyReport {
	report := models.DependencyReport{
		TotalModules:         g.NumModules(),
		TotalDependencies:    g.NumDependencies(),
		CircularDependencies: g.Cycles(),
		MostDependedUpon:     []models.ModuleDependents{},
		MostDependencies:     []models.ModuleDependencies{},
	}
	if report.CircularDependencies == nil {
		report.CircularDependencies = [][]string{}
	}

	for _, m := range rank(g.nodes, g.InDegree) {
		report.MostDependedUpon = append(report.MostDependedUpon,
			models.ModuleDependents{Module: m, Dependents: g.InDegree(m)})
	}
	for _, m := range rank(g.nodes, g.OutDegree) {
		report.MostDependencies = append(report.MostDependencies,
			models.ModuleDependencies{Module: m, Dependencies: g.OutDegree(m)})
	}
	return report
}

// rank returns up to TopN modules with a positive degree, highest first.
// The stable sort keeps discovery order among ties.
func rank(nodes []string, degree func(string) int) []string {
	ranked := make([]string, 0, len(nodes))
	for _, m := range nodes {
		if degree(m) > 0 {
			ranked = append(ranked, m)
		}
	}
	slices.SortStableFunc(ranked, func(a, b string) int {
		return cmp.Compare(degree(b), degree(a))
	})
	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}
	return ranked
}
