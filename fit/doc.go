// Package fit estimates free fluxes by bounded multi-start
// Levenberg–Marquardt least squares.
//
// Each restart draws a start point uniformly inside the bounds from its own
// seeded source, then iterates
//
//	(JᵀJ + λ·diag(JᵀJ))·δ = −Jᵀr,   x ← clamp(x + δ, lower, upper)
//
// accepting a step when it lowers the SSR (λ ÷ 10) and retrying with
// λ × 10 otherwise. A trial rejected by a numeric simulation failure counts
// as a rejected step; a structural failure aborts the whole run.
//
// Restarts share one immutable evaluator and run concurrently, bounded by
// WithWorkers. The Fitter exports Prometheus collectors and opens one
// OpenTelemetry span per restart.
package fit
