package dfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/core"
	"github.com/katalvlaran/emuflux/dfs"
)

// graph builds a directed graph from an edge list.
func graph(t *testing.T, edges ...[2]string) *core.Graph {
	t.Helper()
	g := core.NewGraph()
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}

	return g
}

// TestTopo_Errors covers nil, cyclic and self-looped inputs.
func TestTopo_Errors(t *testing.T) {
	_, err := dfs.TopologicalSort(nil)
	require.ErrorIs(t, err, dfs.ErrGraphNil)

	_, err = dfs.TopologicalSort(graph(t, [2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"B", "C"}))
	require.ErrorIs(t, err, dfs.ErrCycleDetected)
	require.ErrorContains(t, err, "[A B C]")

	_, err = dfs.TopologicalSort(graph(t, [2]string{"A", "A"}))
	require.ErrorIs(t, err, dfs.ErrCycleDetected)
}

// TestTopo_Diamond orders a diamond with ties broken by ID.
func TestTopo_Diamond(t *testing.T) {
	g := graph(t, [2]string{"A", "C"}, [2]string{"A", "B"}, [2]string{"B", "D"}, [2]string{"C", "D"})
	order, err := dfs.TopologicalSort(g)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D"}, order)
}

// TestTopo_ReleasedVertexWaitsItsTurn emits a late-released small ID after
// larger IDs that were ready earlier.
func TestTopo_ReleasedVertexWaitsItsTurn(t *testing.T) {
	g := graph(t, [2]string{"Z", "A"})
	require.NoError(t, g.AddVertex("M"))
	order, err := dfs.TopologicalSort(g)
	require.NoError(t, err)
	require.Equal(t, []string{"M", "Z", "A"}, order)
}

// TestSCC_Components finds two cycles and a self-looped vertex.
func TestSCC_Components(t *testing.T) {
	// {C,D} -> {A,B} -> E
	g := graph(t, [2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"C", "D"}, [2]string{"D", "C"},
		[2]string{"D", "A"}, [2]string{"B", "E"}, [2]string{"E", "E"})
	comps, err := dfs.StronglyConnected(g)
	require.NoError(t, err)
	require.ElementsMatch(t, [][]string{{"C", "D"}, {"A", "B"}, {"E"}}, comps)
}

// TestCanceled stops both traversals on a canceled context.
func TestCanceled(t *testing.T) {
	g := graph(t, [2]string{"A", "B"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dfs.StronglyConnected(g, dfs.WithCancelContext(ctx))
	require.ErrorIs(t, err, context.Canceled)
	_, err = dfs.TopologicalSort(g, dfs.WithCancelContext(ctx))
	require.ErrorIs(t, err, context.Canceled)
}
