// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"sort"
)

// Triplet is one (row, col, value) cell of a sparse matrix.
type Triplet struct {
	Row, Col int
	Value    float64
}

// Sparse is a compressed-sparse-row matrix assembled from triplets.
// Duplicate cells are summed during assembly; explicit zeros are dropped.
type Sparse struct {
	r, c   int
	rowPtr []int // len r+1
	colIdx []int
	vals   []float64
}

// NewSparse assembles an r×c Sparse from triplets.
//
// Implementation:
//   - Stage 1: bounds-check every triplet.
//   - Stage 2: stable sort by (row, col) so summation order is fixed.
//   - Stage 3: merge duplicates, drop zero sums, fill CSR arrays.
//
// Complexity: O(t log t) for t triplets.
func NewSparse(rows, cols int, ts []Triplet) (*Sparse, error) {
	if rows < 0 || cols < 0 {
		return nil, matrixErrorf(opSparse, ErrBadShape)
	}
	for _, t := range ts {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, matrixErrorf(opSparse, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfRange, t.Row, t.Col, rows, cols))
		}
	}
	sorted := make([]Triplet, len(ts))
	copy(sorted, ts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	s := &Sparse{r: rows, c: cols, rowPtr: make([]int, rows+1)}
	for i := 0; i < len(sorted); {
		t := sorted[i]
		sum := t.Value
		j := i + 1
		for ; j < len(sorted) && sorted[j].Row == t.Row && sorted[j].Col == t.Col; j++ {
			sum += sorted[j].Value
		}
		if sum != 0 {
			s.colIdx = append(s.colIdx, t.Col)
			s.vals = append(s.vals, sum)
			s.rowPtr[t.Row+1]++
		}
		i = j
	}
	for i := 0; i < rows; i++ {
		s.rowPtr[i+1] += s.rowPtr[i]
	}

	return s, nil
}

// Rows returns the number of rows.
func (s *Sparse) Rows() int { return s.r }

// Cols returns the number of columns.
func (s *Sparse) Cols() int { return s.c }

// MulDense returns s × x.
func (s *Sparse) MulDense(x *Dense) (*Dense, error) {
	if x == nil {
		return nil, matrixErrorf(opMul, ErrNilMatrix)
	}
	if s.c != x.r {
		return nil, matrixErrorf(opMul, fmt.Errorf("%w: %dx%d × %dx%d", ErrDimensionMismatch, s.r, s.c, x.r, x.c))
	}
	out := &Dense{r: s.r, c: x.c, data: make([]float64, s.r*x.c)}
	for i := 0; i < s.r; i++ {
		oi := out.data[i*x.c : (i+1)*x.c]
		for k := s.rowPtr[i]; k < s.rowPtr[i+1]; k++ {
			v := s.vals[k]
			xr := x.data[s.colIdx[k]*x.c : (s.colIdx[k]+1)*x.c]
			for j := range oi {
				oi[j] += v * xr[j]
			}
		}
	}

	return out, nil
}

// rowEntries returns the column indices and values of row i.
func (s *Sparse) rowEntries(i int) ([]int, []float64) {
	return s.colIdx[s.rowPtr[i]:s.rowPtr[i+1]], s.vals[s.rowPtr[i]:s.rowPtr[i+1]]
}

// DenseFromTriplets assembles triplets straight into a Dense, summing
// duplicates in input order.
func DenseFromTriplets(rows, cols int, ts []Triplet) (*Dense, error) {
	out, err := NewDense(rows, cols)
	if err != nil {
		return nil, err
	}
	for _, t := range ts {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, matrixErrorf(opSparse, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfRange, t.Row, t.Col, rows, cols))
		}
		out.data[t.Row*cols+t.Col] += t.Value
	}

	return out, nil
}
