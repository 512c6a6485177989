package core

import "errors"

// Sentinel errors for core graph operations.
var (
	// ErrEmptyVertexID indicates that the provided vertex ID is empty.
	ErrEmptyVertexID = errors.New("core: vertex ID is empty")

	// ErrVertexNotFound indicates an operation referenced a non-existent vertex.
	ErrVertexNotFound = errors.New("core: vertex not found")
)

// Graph is a directed, unweighted graph keyed by string vertex IDs.
// Self-loops are kept; parallel edges collapse into one.
type Graph struct {
	// adjacency[from][to] = struct{}{}; every vertex owns a (possibly empty) bucket
	adjacency map[string]map[string]struct{}
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{adjacency: make(map[string]map[string]struct{})}
}
