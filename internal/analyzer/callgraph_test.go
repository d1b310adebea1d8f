package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallGraph_SCCs(t *testing.T) {
	g := NewCallGraph()
	for _, n := range []string{ModuleUnit, "a", "b", "c"} {
		g.AddNode(n)
	}
	g.AddEdge(ModuleUnit, "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	g.AddEdge("b", "c")

	assert.Equal(t, [][]string{{"c"}, {"a", "b"}, {ModuleUnit}}, g.SCCs())

	rank, recursive := g.Order()
	assert.Equal(t, 0, rank["c"])
	assert.Equal(t, rank["a"], rank["b"])
	assert.Less(t, rank["c"], rank["a"])
	assert.Less(t, rank["a"], rank[ModuleUnit])
	assert.True(t, recursive["a"])
	assert.True(t, recursive["b"])
	assert.False(t, recursive["c"])
	assert.False(t, recursive[ModuleUnit])
}

func TestCallGraph_SelfRecursion(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("fact", "fact")
	g.AddNode("leaf")

	_, recursive := g.Order()
	assert.True(t, recursive["fact"])
	assert.False(t, recursive["leaf"])
}

func TestCallGraph_ModuleAlwaysLast(t *testing.T) {
	g := NewCallGraph()
	g.AddNode(ModuleUnit)
	g.AddNode("late")
	g.AddEdge("late", "later")

	rank, _ := g.Order()
	for n, r := range rank {
		if n != ModuleUnit {
			assert.Less(t, r, rank[ModuleUnit], n)
		}
	}
	assert.Equal(t, []string{ModuleUnit, "late", "later"}, g.Nodes())
}
