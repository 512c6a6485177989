// SPDX-License-Identifier: MIT

package matrix

import "fmt"

// ValidateNotNil ensures every operand is non-nil.
func ValidateNotNil(ms ...*Dense) error {
	for _, m := range ms {
		if m == nil {
			return ErrNilMatrix
		}
	}

	return nil
}

// ValidateSameShape ensures a and b have equal dimensions.
func ValidateSameShape(a, b *Dense) error {
	if err := ValidateNotNil(a, b); err != nil {
		return err
	}
	if a.r != b.r || a.c != b.c {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, a.r, a.c, b.r, b.c)
	}

	return nil
}

// ValidateMulCompatible ensures a.Cols == b.Rows.
func ValidateMulCompatible(a, b *Dense) error {
	if err := ValidateNotNil(a, b); err != nil {
		return err
	}
	if a.c != b.r {
		return fmt.Errorf("%w: %dx%d × %dx%d", ErrDimensionMismatch, a.r, a.c, b.r, b.c)
	}

	return nil
}

// ValidateSquare ensures m is n×n.
func ValidateSquare(m *Dense) error {
	if m == nil {
		return ErrNilMatrix
	}
	if m.r != m.c {
		return fmt.Errorf("%w: %dx%d", ErrNonSquare, m.r, m.c)
	}

	return nil
}

// ValidateFinite ensures every element of m is finite.
func ValidateFinite(m *Dense) error {
	if m == nil {
		return ErrNilMatrix
	}
	if !m.IsFinite() {
		return ErrNaNInf
	}

	return nil
}
