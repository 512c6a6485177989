package emu

import (
	"fmt"
	"math"
)

// DefaultSumTolerance bounds |Σ mid - 1| for a fully known distribution.
const DefaultSumTolerance = 1e-4

// ErrBadMID is returned by MID.Validate.
var ErrBadMID = fmt.Errorf("%w: invalid mass isotopomer distribution", ErrStructural)

// MID is a mass isotopomer distribution; index k is the fraction carrying k
// heavy atoms.
type MID []float64

// UnitMID pairs a unit with its distribution.
type UnitMID struct {
	Unit Unit
	MID  MID
}

// Convolve returns the discrete convolution a*b of length len(a)+len(b)-1.
// Convolving with an empty operand returns nil.
func Convolve(a, b MID) MID {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make(MID, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}

	return out
}

// ConvolveAll folds Convolve over mids left to right.
func ConvolveAll(mids ...MID) MID {
	if len(mids) == 0 {
		return nil
	}
	out := mids[0].Clone()
	for _, m := range mids[1:] {
		out = Convolve(out, m)
	}

	return out
}

// Sum returns the total mass of m.
func (m MID) Sum() float64 {
	var s float64
	for _, v := range m {
		s += v
	}

	return s
}

// Clone returns a copy of m.
func (m MID) Clone() MID {
	if m == nil {
		return nil
	}
	out := make(MID, len(m))
	copy(out, m)

	return out
}

// Validate checks that m is non-empty, finite, non-negative and sums to one
// within tol.
func (m MID) Validate(tol float64) error {
	if len(m) == 0 {
		return fmt.Errorf("%w: empty", ErrBadMID)
	}
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: m+%d = %g", ErrBadMID, k, v)
		}
	}
	if s := m.Sum(); math.Abs(s-1) > tol {
		return fmt.Errorf("%w: sum %g", ErrBadMID, s)
	}

	return nil
}
