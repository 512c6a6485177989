// Package dfs implements the ordering algorithms the EMU partitioner runs
// on a directed core.Graph.
//
// What:
//
//   - TopologicalSort: linear order of vertices such that every edge u→v has
//     u before v, ties broken by smallest ID; ErrCycleDetected on cycles.
//   - StronglyConnected: Tarjan's algorithm. Components come back in
//     completion order, each sorted by vertex ID.
//
// Why: the EMU partitioner splits a same-size network into its cyclic
// cores, condenses them, and solves the condensation in topological order.
//
// Complexity:
//
//   - TopologicalSort:   Time O((V+E) log V), Memory O(V)
//   - StronglyConnected: Time O(V+E), Memory O(V)
//
// Errors:
//
//   - ErrGraphNil        graph pointer is nil
//   - ErrCycleDetected   cycle discovered by TopologicalSort
//   - ErrNeighborFetch   neighbor lookup failed
//   - context.Canceled   traversal canceled via WithCancelContext
package dfs
