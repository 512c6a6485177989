package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/core"
)

// TestGraph_DirectedEdges checks orientation, dedup and sorted enumeration.
func TestGraph_DirectedEdges(t *testing.T) {
	g := core.NewGraph()
	require.NoError(t, g.AddEdge("B:1", "A:1"))
	require.NoError(t, g.AddEdge("B:1", "C:1"))
	require.NoError(t, g.AddEdge("B:1", "A:1")) // collapses

	require.Equal(t, []string{"A:1", "B:1", "C:1"}, g.Vertices())

	nbrs, err := g.NeighborIDs("B:1")
	require.NoError(t, err)
	require.Equal(t, []string{"A:1", "C:1"}, nbrs)

	nbrs, err = g.NeighborIDs("A:1")
	require.NoError(t, err)
	require.Empty(t, nbrs)

	_, err = g.NeighborIDs("Z:1")
	require.ErrorIs(t, err, core.ErrVertexNotFound)
}

// TestGraph_LoopsAndEmptyIDs keeps self-loops and rejects empty IDs.
func TestGraph_LoopsAndEmptyIDs(t *testing.T) {
	g := core.NewGraph()
	require.NoError(t, g.AddEdge("x", "x"))
	require.NoError(t, g.AddVertex("x"))
	require.Equal(t, []string{"x"}, g.Vertices())
	nbrs, err := g.NeighborIDs("x")
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, nbrs)

	require.ErrorIs(t, g.AddVertex(""), core.ErrEmptyVertexID)
	require.ErrorIs(t, g.AddEdge("x", ""), core.ErrEmptyVertexID)
}
