package dfs

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/emuflux/core"
)

// TopologicalSort orders the vertices of g so that every edge points
// forward. Among vertices that are ready at the same time the smallest ID
// comes first, so the order is a pure function of the graph.
//
// Implementation:
//   - Stage 1: count in-degrees from the sorted adjacency.
//   - Stage 2: repeatedly emit the smallest ready vertex and release its
//     successors.
//   - Stage 3: vertices never released lie on a cycle (self-loops
//     included) and are reported with ErrCycleDetected.
//
// Complexity: O((V+E) log V).
func TopologicalSort(g *core.Graph, opts ...Option) ([]string, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// Stage 1
	verts := g.Vertices()
	indegree := make(map[string]int, len(verts))
	succ := make(map[string][]string, len(verts))
	for _, v := range verts {
		nbrs, err := g.NeighborIDs(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNeighborFetch, err)
		}
		succ[v] = nbrs
		for _, w := range nbrs {
			indegree[w]++
		}
	}

	// Stage 2
	var ready []string
	for _, v := range verts {
		if indegree[v] == 0 {
			ready = append(ready, v)
		}
	}
	order := make([]string, 0, len(verts))
	for len(ready) > 0 {
		if err := o.canceled(); err != nil {
			return nil, err
		}
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)
		for _, w := range succ[v] {
			indegree[w]--
			if indegree[w] == 0 {
				ready = insertSorted(ready, w)
			}
		}
	}

	// Stage 3
	if len(order) < len(verts) {
		var stuck []string
		for _, v := range verts {
			if indegree[v] > 0 {
				stuck = append(stuck, v)
			}
		}
		return nil, fmt.Errorf("%w: among %v", ErrCycleDetected, stuck)
	}

	return order, nil
}

// insertSorted inserts v into the ascending slice s.
func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v

	return s
}
