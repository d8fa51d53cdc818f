package graph

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/panbanda/inspector/pkg/models"
	"github.com/panbanda/inspector/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrees map[string]*parser.ParseResult

func (f fakeTrees) Tree(path string) (*parser.ParseResult, error) {
	if t, ok := f[path]; ok {
		return t, nil
	}
	return nil, errors.New("no tree")
}

func parse(t *testing.T, path, src string) *parser.ParseResult {
	t.Helper()
	p := parser.New()
	defer p.Close()

	res, err := p.Parse([]byte(src), parser.DetectLanguage(path), path)
	require.NoError(t, err)
	t.Cleanup(res.Close)
	return res
}

func TestDependencyGraph_AddDependency(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("a", "c")

	assert.Equal(t, 3, g.NumModules())
	assert.Equal(t, 2, g.NumDependencies())
	assert.Equal(t, []string{"a", "b", "c"}, g.Modules())
	assert.Equal(t, []string{"b", "c"}, g.DependenciesOf("a"))
	assert.Equal(t, []string{"a"}, g.DependentsOf("b"))
	assert.Empty(t, g.DependenciesOf("missing"))
	assert.True(t, g.Has("c"))
	assert.False(t, g.Has("d"))
}

func TestDependencyGraph_RepeatedEdgesAreKept(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("a", "b")

	assert.Equal(t, 2, g.NumDependencies())
	assert.Equal(t, 2, g.OutDegree("a"))
	assert.Equal(t, 2, g.InDegree("b"))
	assert.Equal(t, []string{"b"}, g.DependenciesOf("a"))
}

func TestCycles_None(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "c")

	assert.Empty(t, g.Cycles())
}

func TestCycles_TwoNodes(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b"}, cycles[0])
}

func TestCycles_SelfLoop(t *testing.T) {
	g := New()
	g.AddDependency("a", "a")
	g.AddDependency("a", "b")

	assert.Equal(t, [][]string{{"a"}}, g.Cycles())
}

func TestCycles_SelfLoopInsideLargerCycle(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")
	g.AddDependency("b", "b")

	assert.Equal(t, [][]string{{"b"}, {"a", "b"}}, g.Cycles())
}

func TestCycles_DeterministicOrder(t *testing.T) {
	g := New()
	g.AddDependency("x", "y")
	g.AddDependency("y", "z")
	g.AddDependency("z", "x")
	g.AddDependency("p", "q")
	g.AddDependency("q", "p")
	g.AddDependency("y", "x")

	want := [][]string{
		{"x", "y"},
		{"p", "q"},
		{"x", "y", "z"},
	}
	for range 5 {
		assert.Equal(t, want, g.Cycles())
	}
}

func TestCycles_RepeatedEdgesDoNotDuplicateCycles(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")

	assert.Len(t, g.Cycles(), 1)
}

func TestExport(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")

	exp := g.Export()
	assert.Equal(t, []string{"a", "b"}, exp.Nodes)
	assert.Equal(t, []models.GraphEdge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}}, exp.Edges)
	assert.Equal(t, [][]string{{"a", "b"}}, exp.CircularDependencies)

	empty := New().Export()
	assert.NotNil(t, empty.CircularDependencies)
}

func TestMarshalDOT(t *testing.T) {
	g := New()
	g.AddDependency("app", "os.path")
	g.AddDependency("app", "os.path")
	g.AddDependency("util", "util")

	out, err := g.MarshalDOT()
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "digraph dependencies {")
	assert.Contains(t, s, `app -> "os.path";`)
	assert.Contains(t, s, "util -> util;")
	assert.Equal(t, 2, strings.Count(s, `app -> "os.path"`))
}

func TestReport(t *testing.T) {
	g := New()
	// 3 modules, 2 edges.
	g.AddDependency("main", "utils")
	g.AddDependency("main", "models")

	r := Report(g)
	assert.Equal(t, 3, r.TotalModules)
	assert.Equal(t, 2, r.TotalDependencies)
	assert.Empty(t, r.CircularDependencies)
	assert.False(t, r.HasCycles())

	require.Len(t, r.MostDependencies, 1)
	assert.Equal(t, models.ModuleDependencies{Module: "main", Dependencies: 2}, r.MostDependencies[0])

	// Ties keep discovery order; zero in-degree is excluded.
	assert.Equal(t, []models.ModuleDependents{
		{Module: "utils", Dependents: 1},
		{Module: "models", Dependents: 1},
	}, r.MostDependedUpon)
}

func TestReport_Cycle(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")

	r := Report(g)
	assert.True(t, r.HasCycles())
	assert.Equal(t, [][]string{{"a", "b"}}, r.CircularDependencies)
}

func TestReport_TopN(t *testing.T) {
	g := New()
	for i := range 15 {
		for j := 0; j <= i; j++ {
			g.AddDependency("hub", fmt.Sprintf("m%02d", i))
		}
	}

	r := Report(g)
	require.Len(t, r.MostDependedUpon, TopN)
	assert.Equal(t, "m14", r.MostDependedUpon[0].Module)
	assert.Equal(t, 15, r.MostDependedUpon[0].Dependents)
	for i := 1; i < len(r.MostDependedUpon); i++ {
		assert.GreaterOrEqual(t, r.MostDependedUpon[i-1].Dependents, r.MostDependedUpon[i].Dependents)
	}
}

func TestReport_Empty(t *testing.T) {
	r := Report(New())
	assert.Zero(t, r.TotalModules)
	assert.NotNil(t, r.MostDependedUpon)
	assert.NotNil(t, r.MostDependencies)
	assert.NotNil(t, r.CircularDependencies)
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "utils", ModuleName("src/pkg/utils.py"))
	assert.Equal(t, "Main", ModuleName("Main.java"))
	assert.Equal(t, "app.test", ModuleName("web/app.test.ts"))
	assert.Equal(t, "Makefile", ModuleName("Makefile"))
}

func TestExtractImports(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want []string
	}{
		{
			name: "python",
			path: "main.py",
			src:  "import os, sys as system\nimport a.b\nfrom utils import helper\nfrom . import sibling\n",
			want: []string{"os", "sys", "a.b", "utils", "."},
		},
		{
			name: "javascript",
			path: "app.js",
			src: "import React from 'react';\nimport './styles.css';\n" +
				"const fs = require(\"fs\");\nrequire('dotenv');\nconst x = 1;\n",
			want: []string{"react", "./styles.css", "fs", "dotenv"},
		},
		{
			name: "typescript",
			path: "svc.ts",
			src:  "import { A } from \"./a\";\nimport type { B } from './b';\n",
			want: []string{"./a", "./b"},
		},
		{
			name: "java",
			path: "Main.java",
			src:  "import java.util.List;\nimport static org.junit.Assert.assertEquals;\nimport java.io.*;\nclass Main {}\n",
			want: []string{"java.util.List", "org.junit.Assert.assertEquals", "java.io.*"},
		},
		{
			name: "go",
			path: "main.go",
			src:  "package main\n\nimport (\n\t\"fmt\"\n\tlog \"github.com/x/log\"\n)\n",
			want: []string{"fmt", "github.com/x/log"},
		},
		{
			name: "no imports",
			path: "empty.py",
			src:  "x = 1\n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractImports(parse(t, tt.path, tt.src)))
		})
	}
}

func TestExtractImports_NilTree(t *testing.T) {
	assert.Empty(t, ExtractImports(nil))
}

func TestBuilder_Build(t *testing.T) {
	trees := fakeTrees{
		"src/main.py":  parse(t, "src/main.py", "import utils\nimport models\n"),
		"src/utils.py": parse(t, "src/utils.py", "import main\n"),
		"src/plain.py": parse(t, "src/plain.py", "x = 1\n"),
	}
	files := []models.FileMetrics{
		{Path: "src/main.py"},
		{Path: "src/utils.py"},
		{Path: "src/plain.py"},
		{Path: "src/missing.py"},
	}

	g := NewBuilder(trees).Build(files)

	assert.Equal(t, []string{"main", "utils", "models"}, g.Modules())
	assert.Equal(t, 3, g.NumDependencies())
	assert.False(t, g.Has("plain"), "files without imports are not nodes")
	assert.Equal(t, [][]string{{"main", "utils"}}, g.Cycles())
}

func TestBuilder_NoTreeSource(t *testing.T) {
	g := NewBuilder(nil).Build([]models.FileMetrics{{Path: "a.py"}})
	assert.Zero(t, g.NumModules())
}
