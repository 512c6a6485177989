package dfs

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/emuflux/core"
)

// tarjan holds the mutable state of one StronglyConnected run.
type tarjan struct {
	graph   *core.Graph
	opts    options
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	next    int
	comps   [][]string
}

// StronglyConnected returns the strongly connected components of g in
// the order Tarjan's algorithm completes them, members sorted. Callers that
// need a solve order run TopologicalSort over the condensation.
//
// Implementation:
//   - Stage 1: Tarjan DFS from every unvisited vertex in sorted order.
//   - Stage 2: sort each component's members.
//
// Complexity: O(V+E).
func StronglyConnected(g *core.Graph, opts ...Option) ([][]string, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	verts := g.Vertices()
	t := &tarjan{
		graph:   g,
		opts:    o,
		index:   make(map[string]int, len(verts)),
		low:     make(map[string]int, len(verts)),
		onStack: make(map[string]bool, len(verts)),
	}
	for _, v := range verts {
		if _, seen := t.index[v]; !seen {
			if err := t.connect(v); err != nil {
				return nil, err
			}
		}
	}
	for _, c := range t.comps {
		sort.Strings(c)
	}

	return t.comps, nil
}

// connect is the recursive Tarjan step for v.
func (t *tarjan) connect(v string) error {
	if err := t.opts.canceled(); err != nil {
		return err
	}
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	neighbors, err := t.graph.NeighborIDs(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNeighborFetch, err)
	}
	for _, w := range neighbors {
		if _, seen := t.index[w]; !seen {
			if err = t.connect(w); err != nil {
				return err
			}
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.onStack[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] == t.index[v] {
		var comp []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.comps = append(t.comps, comp)
	}

	return nil
}
