package core

import "sort"

// AddVertex inserts id if missing. Adding an existing vertex is a no-op.
func (g *Graph) AddVertex(id string) error {
	if id == "" {
		return ErrEmptyVertexID
	}
	g.ensure(id)

	return nil
}

// ensure creates the adjacency bucket for id.
func (g *Graph) ensure(id string) {
	if _, ok := g.adjacency[id]; !ok {
		g.adjacency[id] = make(map[string]struct{})
	}
}

// AddEdge links from→to, creating missing endpoints.
func (g *Graph) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return ErrEmptyVertexID
	}
	g.ensure(from)
	g.ensure(to)
	g.adjacency[from][to] = struct{}{}

	return nil
}

// Vertices returns all vertex IDs sorted ascending.
func (g *Graph) Vertices() []string {
	out := make([]string, 0, len(g.adjacency))
	for id := range g.adjacency {
		out = append(out, id)
	}
	sort.Strings(out)

	return out
}

// NeighborIDs returns the sorted successors of id.
func (g *Graph) NeighborIDs(id string) ([]string, error) {
	bucket, ok := g.adjacency[id]
	if !ok {
		return nil, ErrVertexNotFound
	}
	out := make([]string, 0, len(bucket))
	for to := range bucket {
		out = append(out, to)
	}
	sort.Strings(out)

	return out, nil
}
