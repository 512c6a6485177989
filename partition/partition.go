package partition

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/emuflux/core"
	"github.com/katalvlaran/emuflux/dfs"
	"github.com/katalvlaran/emuflux/emu"
)

// ErrSizeOrder is returned when a left unit is larger than its product.
var ErrSizeOrder = fmt.Errorf("%w: partition: substrate larger than product", emu.ErrStructural)

// BySize groups reactions by product size in ascending order, dropping empty
// sizes and keeping the input order inside each network.
// Returns ErrSizeOrder when any left unit outgrows its product.
func BySize(reactions []emu.Reaction) ([]emu.Network, error) {
	groups := make(map[int]emu.Network)
	for _, r := range reactions {
		size := r.Right.Unit.Size()
		for _, s := range r.Left {
			if s.Unit.Size() > size {
				return nil, fmt.Errorf("%w: %s in %s", ErrSizeOrder, s.Unit, r)
			}
		}
		groups[size] = append(groups[size], r)
	}
	sizes := make([]int, 0, len(groups))
	for s := range groups {
		sizes = append(sizes, s)
	}
	sort.Ints(sizes)

	out := make([]emu.Network, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, groups[s])
	}

	return out, nil
}

// Components splits every network into strongly connected components of its
// transfer graph and returns them in solve order.
//
// Implementation:
//   - Stage 1: one vertex per product unit; an edge substrate→product for
//     every transfer whose substrate is also produced in the network.
//   - Stage 2: dfs.StronglyConnected finds the components; each is named
//     by its smallest unit and the edges between them form the condensation.
//   - Stage 3: dfs.TopologicalSort orders the condensation; each component
//     keeps the reactions producing its units, in their original order.
func Components(networks []emu.Network) ([]emu.Network, error) {
	var out []emu.Network
	for _, n := range networks {
		parts, err := split(n)
		if err != nil {
			return nil, err
		}
		out = append(out, parts...)
	}

	return out, nil
}

// split refines one network.
func split(n emu.Network) ([]emu.Network, error) {
	// Stage 1
	g := core.NewGraph()
	produced := make(map[string]bool)
	for _, r := range n {
		id := r.Right.Unit.String()
		produced[id] = true
		if err := g.AddVertex(id); err != nil {
			return nil, err
		}
	}
	var edges [][2]string
	for _, r := range n {
		if r.IsCondensation() {
			continue
		}
		from := r.Left[0].Unit.String()
		if !produced[from] {
			continue
		}
		to := r.Right.Unit.String()
		if err := g.AddEdge(from, to); err != nil {
			return nil, err
		}
		edges = append(edges, [2]string{from, to})
	}

	// Stage 2
	comps, err := dfs.StronglyConnected(g)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	owner := make(map[string]string, len(produced))
	dag := core.NewGraph()
	for _, c := range comps {
		for _, id := range c {
			owner[id] = c[0]
		}
		if err = dag.AddVertex(c[0]); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if a, b := owner[e[0]], owner[e[1]]; a != b {
			if err = dag.AddEdge(a, b); err != nil {
				return nil, err
			}
		}
	}

	// Stage 3
	order, err := dfs.TopologicalSort(dag)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	slot := make(map[string]int, len(order))
	for i, id := range order {
		slot[id] = i
	}
	parts := make([]emu.Network, len(order))
	for _, r := range n {
		i := slot[owner[r.Right.Unit.String()]]
		parts[i] = append(parts[i], r)
	}

	return parts, nil
}
