package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEdge(t *testing.T) {
	g := New()
	g.AddNode("lr")
	g.AddNode("optimizer.lr")

	require.NoError(t, g.AddEdge("lr", "optimizer.lr"))
	assert.Equal(t, []string{"optimizer.lr"}, g.Children("lr"))
	assert.Equal(t, []string{"lr"}, g.Parents("optimizer.lr"))

	// Duplicate edges collapse.
	require.NoError(t, g.AddEdge("lr", "optimizer.lr"))
	assert.Equal(t, 1, g.EdgeCount())
}

func TestAddEdgeErrors(t *testing.T) {
	g := New()
	g.AddNode("a")

	err := g.AddEdge("a", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	err = g.AddEdge("a", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-reference")
}

func TestHasCycle(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	hasCycle, _ := g.HasCycle()
	assert.False(t, hasCycle)

	require.NoError(t, g.AddEdge("c", "a"))
	hasCycle, path := g.HasCycle()
	assert.True(t, hasCycle)
	// Path starts and ends at the same node.
	require.GreaterOrEqual(t, len(path), 2)
	assert.Equal(t, path[0], path[len(path)-1])
}

func TestTopologicalSort(t *testing.T) {
	g := New()
	for _, id := range []string{"seed", "max_seq_len", "train_loader.dataset.max_seq_len", "train_loader.dataset.shuffle_seed"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("max_seq_len", "train_loader.dataset.max_seq_len"))
	require.NoError(t, g.AddEdge("seed", "train_loader.dataset.shuffle_seed"))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["max_seq_len"], pos["train_loader.dataset.max_seq_len"])
	assert.Less(t, pos["seed"], pos["train_loader.dataset.shuffle_seed"])
}

func TestTopologicalSortCycle(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	_, err := g.TopologicalSort()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestRoots(t *testing.T) {
	g := New()
	g.AddNode("lr")
	g.AddNode("optimizer.lr")
	g.AddNode("seed")
	require.NoError(t, g.AddEdge("lr", "optimizer.lr"))

	assert.Equal(t, []string{"lr", "seed"}, g.Roots())
}
