package symbolic

import (
	"fmt"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/flux"
	"github.com/katalvlaran/emuflux/matrix"
)

// Sentinel errors for model generation. All are structural.
var (
	// ErrUnresolvedUnit is returned when a substrate is neither known from an
	// earlier network or the inputs nor produced in its own network.
	ErrUnresolvedUnit = fmt.Errorf("%w: symbolic: unresolved unit", emu.ErrStructural)

	// ErrDuplicateConvolution is returned when one network defines the same
	// convolution (same flux, same elements) twice.
	ErrDuplicateConvolution = fmt.Errorf("%w: symbolic: duplicate convolution", emu.ErrStructural)

	// ErrMeasurementNotSimulated is returned when no network produces a
	// measured unit.
	ErrMeasurementNotSimulated = fmt.Errorf("%w: symbolic: measurement is never simulated", emu.ErrStructural)

	// ErrBadCorrection is returned for a correction matrix of the wrong shape.
	ErrBadCorrection = fmt.Errorf("%w: symbolic: invalid correction matrix", emu.ErrStructural)

	// ErrUnknownFlux is returned when a reaction id is outside the flux layout.
	ErrUnknownFlux = fmt.Errorf("%w: symbolic: reaction id outside flux layout", emu.ErrStructural)
)

// FluxTerm is coefficient × flux[ID].
type FluxTerm struct {
	ID          int
	Coefficient float64
}

// Entry is one non-empty cell of a symbolic matrix.
type Entry struct {
	Row, Col int
	Terms    []FluxTerm
}

// Eval returns Σ coefficient·fluxes[id].
func (e Entry) Eval(fluxes []float64) float64 {
	var s float64
	for _, t := range e.Terms {
		s += t.Coefficient * fluxes[t.ID]
	}

	return s
}

// Position locates a saved unit: the network that solved it (or
// emu.InputNetwork) and its index in that network's useful list, or in the
// input table.
type Position struct {
	Network int
	Index   int
}

// Convolution is a Y row computed as the convolution of saved units.
type Convolution struct {
	Elements []Position
	FluxID   int
}

// FinalUnit maps a solved unit onto an output slot.
type FinalUnit struct {
	Unit       emu.Unit
	Row        int           // row of X
	Slot       int           // index in the measurement list
	Correction *matrix.Dense // nil when the MID is copied as is
}

// Derivative holds ∂A/∂free[v] and ∂B/∂free[v] for one free flux.
type Derivative struct {
	DA []matrix.Triplet
	DB []matrix.Triplet
}

// NetworkData is the frozen, numerically evaluable form of one network.
type NetworkData struct {
	Unknown      []emu.Unit    // rows/cols of A, rows of X
	Known        []emu.Unit    // first len(Known) rows of Y
	YData        []Position    // source of every Known row
	Convolutions []Convolution // rows len(Known).. of Y
	A            []Entry       // Unknown × Unknown
	B            []Entry       // Unknown × (Known + Convolutions)
	Useful       []int         // rows of X kept for later networks
	Finals       []FinalUnit
	Derivatives  []Derivative // one per free flux, empty when disabled
	MIDSize      int          // columns of X and Y
}

// KnownRows returns the number of rows of Y.
func (n *NetworkData) KnownRows() int { return len(n.Known) + len(n.Convolutions) }

// Measurement names a measured unit and its optional correction matrix.
type Measurement struct {
	Unit       emu.Unit
	Correction *matrix.Dense
}

// Parameters is everything Generate needs.
type Parameters struct {
	Networks     []emu.Network
	Inputs       []emu.Unit // order of the input MID table
	Measurements []Measurement
	Layout       flux.Layout
	Derivatives  bool
}

// Model is the immutable result of Generate, shared by every simulator.
type Model struct {
	Networks     []NetworkData
	Inputs       []emu.Unit
	Measurements []emu.Unit
	Layout       flux.Layout
	Derivatives  bool
}

// NumFree returns the number of free fluxes.
func (m *Model) NumFree() int { return m.Layout.NumFree() }

// Residuals returns Σ (size+1) over measured units.
func (m *Model) Residuals() int {
	var n int
	for _, u := range m.Measurements {
		n += u.Size() + 1
	}

	return n
}
