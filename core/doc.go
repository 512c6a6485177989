// Package core provides the in-memory directed Graph used to reason about
// dependencies between elementary metabolite units.
//
// Vertices are string IDs (unit text such as "PYR:110"); an edge u→v means
// "v is computed from u". The graph carries no weights: EMU dependency
// analysis only needs reachability. A reaction that regenerates its own
// substrate unit is a self-loop, so loops are always allowed.
//
// A Graph is built and read by one goroutine; it has no locking.
//
// Determinism: Vertices() and NeighborIDs() return sorted IDs, so every
// algorithm built on top is reproducible.
//
// Errors:
//
//	ErrEmptyVertexID   - vertex ID is the empty string.
//	ErrVertexNotFound  - requested vertex does not exist.
package core
