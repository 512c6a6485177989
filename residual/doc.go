// Package residual adapts a simulator to a least-squares optimizer.
//
// An Adapter owns one immutable simulator, the flux layout and the measured
// MIDs. Given the free fluxes it expands the full flux vector, simulates and
// returns the weighted residuals
//
//	r[i] = (simulated[i] − measured[i]) / error[i]
//
// packed in (measurement, mass shift) order, and optionally the Jacobian
// jac[i][v] = ∂simulated[i]/∂free[v] / error[i].
//
// IsTransient and IsStructural classify errors for the caller: transient
// failures reject a single trial point, structural ones abort the run.
package residual
