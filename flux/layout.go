// Package flux maps the optimizer's free-flux vector onto the full flux
// vector of a network.
//
// Every reaction id is one of:
//
//   - free: an optimization variable, copied through;
//   - dependent: a row of the nullspace, value −(N·free)[row];
//   - fixed: neither of the above (isotopomer-balance-only reactions),
//     value 1.
//
// Because dependent fluxes are affine in the free ones, their partial
// derivatives are constants; Partial exposes them to the symbolic
// derivative generator.
package flux

import (
	"fmt"
	"math"

	"github.com/katalvlaran/emuflux/emu"
)

// ErrBadLayout is returned by Validate.
var ErrBadLayout = fmt.Errorf("%w: flux: invalid layout", emu.ErrStructural)

// FixedValue is the flux assigned to reactions that are neither free nor
// dependent.
const FixedValue = 1.0

// Kind classifies a flux id.
type Kind int

const (
	// Fixed fluxes are held at FixedValue.
	Fixed Kind = iota
	// Free fluxes are optimization variables.
	Free
	// Dependent fluxes follow from the free ones through the nullspace.
	Dependent
)

// Layout ties flux ids to free positions and nullspace rows.
type Layout struct {
	// Free holds the flux id of each free position.
	Free []int
	// IDToPos maps a flux id to its nullspace row, -1 for free or fixed.
	// Its length is the total number of fluxes.
	IDToPos []int
	// Nullspace has one row per dependent flux and one column per free flux.
	Nullspace [][]float64
}

// Len returns the total number of fluxes.
func (l Layout) Len() int { return len(l.IDToPos) }

// NumFree returns the number of free fluxes.
func (l Layout) NumFree() int { return len(l.Free) }

// Kind classifies id. Ids out of range are Fixed.
func (l Layout) Kind(id int) Kind {
	if id < 0 || id >= len(l.IDToPos) {
		return Fixed
	}
	if l.IDToPos[id] >= 0 {
		return Dependent
	}
	for _, f := range l.Free {
		if f == id {
			return Free
		}
	}

	return Fixed
}

// Validate checks ranges, uniqueness and the nullspace shape.
func (l Layout) Validate() error {
	n := len(l.IDToPos)
	seen := make(map[int]bool, len(l.Free))
	for v, id := range l.Free {
		if id < 0 || id >= n {
			return fmt.Errorf("%w: free position %d has id %d outside [0,%d)", ErrBadLayout, v, id, n)
		}
		if seen[id] {
			return fmt.Errorf("%w: flux %d is free twice", ErrBadLayout, id)
		}
		seen[id] = true
		if l.IDToPos[id] >= 0 {
			return fmt.Errorf("%w: flux %d is both free and dependent", ErrBadLayout, id)
		}
	}
	rows := make(map[int]bool, len(l.Nullspace))
	for id, row := range l.IDToPos {
		if row < 0 {
			continue
		}
		if row >= len(l.Nullspace) {
			return fmt.Errorf("%w: flux %d maps to row %d of %d", ErrBadLayout, id, row, len(l.Nullspace))
		}
		if rows[row] {
			return fmt.Errorf("%w: nullspace row %d used twice", ErrBadLayout, row)
		}
		rows[row] = true
	}
	for r, row := range l.Nullspace {
		if len(row) != len(l.Free) {
			return fmt.Errorf("%w: nullspace row %d has %d columns, want %d", ErrBadLayout, r, len(row), len(l.Free))
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: nullspace row %d is not finite", ErrBadLayout, r)
			}
		}
	}

	return nil
}

// Expand returns the full flux vector for free.
func (l Layout) Expand(free []float64) ([]float64, error) {
	if len(free) != len(l.Free) {
		return nil, fmt.Errorf("flux: got %d free fluxes, want %d", len(free), len(l.Free))
	}
	out := make([]float64, len(l.IDToPos))
	for id, row := range l.IDToPos {
		if row < 0 {
			out[id] = FixedValue
			continue
		}
		var s float64
		for v, x := range free {
			s += l.Nullspace[row][v] * x
		}
		out[id] = -s
	}
	for v, id := range l.Free {
		out[id] = free[v]
	}

	return out, nil
}

// Partial returns ∂flux[id]/∂free[v].
func (l Layout) Partial(id, v int) float64 {
	if id >= 0 && id < len(l.IDToPos) && l.IDToPos[id] >= 0 {
		return -l.Nullspace[l.IDToPos[id]][v]
	}
	if v >= 0 && v < len(l.Free) && l.Free[v] == id {
		return 1
	}

	return 0
}
