// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
	"strings"
)

// Dense is a row-major matrix of float64 values.
// r is rows, c is columns, and data holds r*c elements in row-major order.
type Dense struct {
	r, c int       // number of rows and columns
	data []float64 // flat backing storage, length == r*c
}

// NewDense creates an r×c Dense matrix initialized to zeros.
// Zero-sized dimensions are allowed (an empty B block is legal); negative
// ones return ErrBadShape.
// Complexity: O(r*c) time and memory.
func NewDense(rows, cols int) (*Dense, error) {
	if rows < 0 || cols < 0 {
		return nil, matrixErrorf(opNewDense, ErrBadShape)
	}

	return &Dense{r: rows, c: cols, data: make([]float64, rows*cols)}, nil
}

// NewDenseFromRows copies a rectangular [][]float64 into a Dense.
func NewDenseFromRows(rows [][]float64) (*Dense, error) {
	r := len(rows)
	c := 0
	if r > 0 {
		c = len(rows[0])
	}
	m, err := NewDense(r, c)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != c {
			return nil, matrixErrorf(opNewDense, fmt.Errorf("%w: row %d has %d columns, want %d", ErrBadShape, i, len(row), c))
		}
		copy(m.data[i*c:(i+1)*c], row)
	}

	return m, nil
}

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.r }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.c }

// indexOf computes the flat index for (row, col) or returns ErrOutOfRange.
func (m *Dense) indexOf(op string, row, col int) (int, error) {
	if row < 0 || row >= m.r || col < 0 || col >= m.c {
		return 0, fmt.Errorf("Dense.%s(%d,%d): %w", op, row, col, ErrOutOfRange)
	}

	return row*m.c + col, nil
}

// Set assigns v at (row, col).
func (m *Dense) Set(row, col int, v float64) error {
	idx, err := m.indexOf(opSet, row, col)
	if err != nil {
		return err
	}
	m.data[idx] = v

	return nil
}

// Row returns a copy of row i, or nil when i is out of range.
func (m *Dense) Row(i int) []float64 {
	if i < 0 || i >= m.r {
		return nil
	}
	out := make([]float64, m.c)
	copy(out, m.data[i*m.c:(i+1)*m.c])

	return out
}

// SetRow overwrites row i with v.
func (m *Dense) SetRow(i int, v []float64) error {
	if i < 0 || i >= m.r {
		return fmt.Errorf("Dense.SetRow(%d): %w", i, ErrOutOfRange)
	}
	if len(v) != m.c {
		return fmt.Errorf("Dense.SetRow(%d): %w: len %d, want %d", i, ErrDimensionMismatch, len(v), m.c)
	}
	copy(m.data[i*m.c:(i+1)*m.c], v)

	return nil
}

// Clone returns a deep copy of m.
func (m *Dense) Clone() *Dense {
	out := &Dense{r: m.r, c: m.c, data: make([]float64, len(m.data))}
	copy(out.data, m.data)

	return out
}

// IsFinite reports whether every element is finite.
func (m *Dense) IsFinite() bool {
	for _, v := range m.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// MaxAbs returns max |m[i][j]|, or 0 for an empty matrix.
func (m *Dense) MaxAbs() float64 {
	var best float64
	for _, v := range m.data {
		if a := math.Abs(v); a > best {
			best = a
		}
	}

	return best
}

// MulDense returns m × x. It makes *Dense an Operator.
func (m *Dense) MulDense(x *Dense) (*Dense, error) { return Mul(m, x) }

// String implements fmt.Stringer for debugging.
func (m *Dense) String() string {
	var b strings.Builder
	for i := 0; i < m.r; i++ {
		b.WriteByte('[')
		for j := 0; j < m.c; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%g", m.data[i*m.c+j])
		}
		b.WriteString("]\n")
	}

	return b.String()
}

// Mul performs C = A × B into a fresh Dense.
//
// Implementation:
//   - Stage 1: validate non-nil operands and a.Cols == b.Rows.
//   - Stage 2: i-k-j loop order so the inner loop walks both b and c rows.
//
// Complexity: O(r·k·c).
func Mul(a, b *Dense) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	out, err := NewDense(a.r, b.c)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	var i, k, j int
	var aik float64
	for i = 0; i < a.r; i++ {
		ci := out.data[i*b.c : (i+1)*b.c]
		for k = 0; k < a.c; k++ {
			aik = a.data[i*a.c+k]
			if aik == 0 {
				continue
			}
			bk := b.data[k*b.c : (k+1)*b.c]
			for j = 0; j < b.c; j++ {
				ci[j] += aik * bk[j]
			}
		}
	}

	return out, nil
}

// MulVec returns m × v.
func MulVec(m *Dense, v []float64) ([]float64, error) {
	if m == nil {
		return nil, matrixErrorf(opMulVec, ErrNilMatrix)
	}
	if len(v) != m.c {
		return nil, matrixErrorf(opMulVec, fmt.Errorf("%w: %dx%d × len %d", ErrDimensionMismatch, m.r, m.c, len(v)))
	}
	out := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		var s float64
		row := m.data[i*m.c : (i+1)*m.c]
		for j, x := range row {
			s += x * v[j]
		}
		out[i] = s
	}

	return out, nil
}

// AddScaled performs m += alpha·o in place.
func (m *Dense) AddScaled(alpha float64, o *Dense) error {
	if err := ValidateSameShape(m, o); err != nil {
		return matrixErrorf(opAddScaled, err)
	}
	for i, v := range o.data {
		m.data[i] += alpha * v
	}

	return nil
}
