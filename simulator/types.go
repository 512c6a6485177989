package simulator

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/emuflux/emu"
)

// Defaults.
const (
	// DefaultSparseThreshold is the number of unknowns above which a network
	// is solved along the sparse path.
	DefaultSparseThreshold = 10

	// DefaultResidualTolerance bounds ‖A·X − B·Y‖∞ / max(‖B·Y‖∞, 1).
	DefaultResidualTolerance = 1e-8
)

// Sentinel errors. Numeric ones reject one flux trial; structural ones mean
// the simulator was built from inconsistent data.
var (
	// ErrSolve is returned when a network's system cannot be factored or solved.
	ErrSolve = fmt.Errorf("%w: simulator: linear solve failed", emu.ErrNumeric)

	// ErrResidual is returned when a solution fails the residual check.
	ErrResidual = fmt.Errorf("%w: simulator: residual check failed", emu.ErrNumeric)

	// ErrNotFinite is returned for NaN or Inf fluxes or results.
	ErrNotFinite = fmt.Errorf("%w: simulator: non-finite value", emu.ErrNumeric)

	// ErrInputMismatch is returned when input MIDs do not match the model.
	ErrInputMismatch = fmt.Errorf("%w: simulator: input MIDs do not match model", emu.ErrStructural)

	// ErrFluxLength is returned when the flux vector does not match the layout.
	ErrFluxLength = fmt.Errorf("%w: simulator: flux vector length", emu.ErrStructural)

	// ErrNoDerivatives is returned when derivatives are requested from a
	// model generated without them.
	ErrNoDerivatives = fmt.Errorf("%w: simulator: model has no derivatives", emu.ErrStructural)

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("simulator: invalid option supplied")
)

// Option configures a Simulator.
type Option func(*Options)

// Options holds Simulator settings.
type Options struct {
	// SparseThreshold: networks with more unknowns use the sparse path.
	SparseThreshold int

	// ResidualTolerance is the largest accepted relative residual.
	ResidualTolerance float64

	err error
}

// DefaultOptions returns the default threshold and tolerance.
func DefaultOptions() Options {
	return Options{
		SparseThreshold:   DefaultSparseThreshold,
		ResidualTolerance: DefaultResidualTolerance,
	}
}

// WithSparseThreshold sets the unknown count above which the sparse path is
// used. n must be ≥ 0; 0 sends every network down the sparse path.
func WithSparseThreshold(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = fmt.Errorf("%w: sparse threshold cannot be negative (%d)", ErrOptionViolation, n)
			return
		}
		o.SparseThreshold = n
	}
}

// WithResidualTolerance sets the residual check bound; tol must be > 0.
func WithResidualTolerance(tol float64) Option {
	return func(o *Options) {
		if !(tol > 0) {
			o.err = fmt.Errorf("%w: residual tolerance must be > 0 (%g)", ErrOptionViolation, tol)
			return
		}
		o.ResidualTolerance = tol
	}
}

// Result is the output of one CalculateMids call.
type Result struct {
	// MIDs holds one simulated MID per measurement slot.
	MIDs []emu.MID
	// Derivatives[v][slot] is ∂MIDs[slot]/∂free[v]; nil unless requested.
	Derivatives [][]emu.MID
}
