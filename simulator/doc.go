// Package simulator evaluates a symbolic.Model for concrete flux values.
//
// CalculateMids walks the networks in order. For each one it substitutes the
// fluxes into A and B, assembles Y from the input MIDs, the saved rows of
// earlier networks and their convolutions, and solves A·X = B·Y. Small
// systems go through a column-pivoted Householder QR; systems with more
// unknowns than the sparse threshold go through a sparse LU. Rows other
// networks need are saved, measured rows are corrected and written to the
// output.
//
// With derivatives enabled, every free flux v also solves
//
//	A·dX = dB·Y + B·dY − dA·X
//
// reusing the factorization of A. dY follows the product rule through
// convolutions; input MIDs do not depend on fluxes and contribute zero.
//
// A Simulator holds no per-call state: every scratch value lives inside one
// CalculateMids call, so one Simulator may serve concurrent callers.
package simulator
