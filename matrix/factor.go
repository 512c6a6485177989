// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
	"sort"
)

// Operator is anything that can multiply a Dense from the left.
type Operator interface {
	Rows() int
	Cols() int
	MulDense(x *Dense) (*Dense, error)
}

// Factorization solves A·X = B for the matrix it was built from.
// Solve may be called any number of times; it never mutates the factors.
type Factorization interface {
	Solve(b *Dense) (*Dense, error)
}

// RankTolerance is the relative threshold below which a pivot counts as zero.
const RankTolerance = 1e-12

// QR is a Householder QR factorization with column pivoting, A·P = Q·R.
type QR struct {
	n    int
	qr   []float64 // R in the upper triangle, Householder vectors below
	beta []float64 // 2 / (v·v) per reflector, 0 for identity reflectors
	diag []float64 // diagonal of R
	perm []int     // perm[k] = original column at position k
}

// FactorQR factors a square dense matrix.
//
// Implementation:
//   - Stage 1: copy a; compute column norms.
//   - Stage 2: for each k, move the column of largest remaining norm to k,
//     build the reflector zeroing rows k+1.. of column k and apply it to
//     the trailing columns.
//   - Stage 3: reject when |R[k][k]| ≤ RankTolerance·|R[0][0]|.
//
// Errors: ErrNilMatrix, ErrNonSquare, ErrNaNInf, ErrSingular.
// Complexity: O(n³).
func FactorQR(a *Dense) (*QR, error) {
	if err := ValidateSquare(a); err != nil {
		return nil, matrixErrorf(opQR, err)
	}
	if !a.IsFinite() {
		return nil, matrixErrorf(opQR, ErrNaNInf)
	}
	n := a.r
	f := &QR{
		n:    n,
		qr:   make([]float64, n*n),
		beta: make([]float64, n),
		diag: make([]float64, n),
		perm: make([]int, n),
	}
	copy(f.qr, a.data)
	for j := range f.perm {
		f.perm[j] = j
	}

	var i, j, k, p int
	var norm, best, alpha, s float64
	for k = 0; k < n; k++ {
		// pivot: largest trailing column norm
		p, best = k, -1
		for j = k; j < n; j++ {
			norm = 0
			for i = k; i < n; i++ {
				norm += f.qr[i*n+j] * f.qr[i*n+j]
			}
			if norm > best {
				p, best = j, norm
			}
		}
		if p != k {
			for i = 0; i < n; i++ {
				f.qr[i*n+k], f.qr[i*n+p] = f.qr[i*n+p], f.qr[i*n+k]
			}
			f.perm[k], f.perm[p] = f.perm[p], f.perm[k]
		}

		norm = math.Sqrt(best)
		if norm == 0 {
			f.diag[k] = 0
			continue
		}
		alpha = -norm
		if f.qr[k*n+k] < 0 {
			alpha = norm
		}
		// v = x - alpha·e1, stored in place
		f.qr[k*n+k] -= alpha
		var vv float64
		for i = k; i < n; i++ {
			vv += f.qr[i*n+k] * f.qr[i*n+k]
		}
		f.diag[k] = alpha
		if vv == 0 {
			continue
		}
		f.beta[k] = 2 / vv
		for j = k + 1; j < n; j++ {
			s = 0
			for i = k; i < n; i++ {
				s += f.qr[i*n+k] * f.qr[i*n+j]
			}
			s *= f.beta[k]
			for i = k; i < n; i++ {
				f.qr[i*n+j] -= s * f.qr[i*n+k]
			}
		}
	}

	if n == 0 {
		return f, nil
	}
	scale := math.Abs(f.diag[0])
	for k = 0; k < n; k++ {
		if math.Abs(f.diag[k]) <= RankTolerance*scale || f.diag[k] == 0 {
			return nil, matrixErrorf(opQR, fmt.Errorf("%w: rank %d of %d", ErrSingular, k, n))
		}
	}

	return f, nil
}

// Solve returns X with A·X = B.
func (f *QR) Solve(b *Dense) (*Dense, error) {
	if b == nil {
		return nil, matrixErrorf(opSolve, ErrNilMatrix)
	}
	n := f.n
	if b.r != n {
		return nil, matrixErrorf(opSolve, fmt.Errorf("%w: rhs has %d rows, want %d", ErrDimensionMismatch, b.r, n))
	}
	y := b.Clone()
	var i, j, k int
	var s float64
	// y = Qᵀ·b
	for k = 0; k < n; k++ {
		if f.beta[k] == 0 {
			continue
		}
		for j = 0; j < y.c; j++ {
			s = 0
			for i = k; i < n; i++ {
				s += f.qr[i*n+k] * y.data[i*y.c+j]
			}
			s *= f.beta[k]
			for i = k; i < n; i++ {
				y.data[i*y.c+j] -= s * f.qr[i*n+k]
			}
		}
	}
	// R·z = y, then undo the column permutation
	out := &Dense{r: n, c: y.c, data: make([]float64, n*y.c)}
	z := make([]float64, n)
	for j = 0; j < y.c; j++ {
		for k = n - 1; k >= 0; k-- {
			s = y.data[k*y.c+j]
			for i = k + 1; i < n; i++ {
				s -= f.qr[k*n+i] * z[i]
			}
			z[k] = s / f.diag[k]
		}
		for k = 0; k < n; k++ {
			out.data[f.perm[k]*y.c+j] = z[k]
		}
	}
	if !out.IsFinite() {
		return nil, matrixErrorf(opSolve, ErrNaNInf)
	}

	return out, nil
}

// sparseRow is one row of a factor, sorted by column.
type sparseRow struct {
	cols []int
	vals []float64
}

// LU is a sparse LU factorization with partial (row) pivoting, P·A = L·U.
type LU struct {
	n    int
	perm []int // perm[i] = original row now at position i
	l    []sparseRow
	u    []sparseRow
	diag []float64
}

// FactorLU factors a square sparse matrix.
//
// Implementation:
//   - Stage 1: unpack CSR rows into maps.
//   - Stage 2: for each column k pick the row with the largest |a[i][k]|
//     among i ≥ k, swap, and eliminate below the pivot.
//   - Stage 3: freeze L and U rows into column-sorted slices so Solve sums
//     in a fixed order.
//
// Errors: ErrNilMatrix, ErrNonSquare, ErrNaNInf, ErrSingular.
func FactorLU(a *Sparse) (*LU, error) {
	if a == nil {
		return nil, matrixErrorf(opLU, ErrNilMatrix)
	}
	if a.r != a.c {
		return nil, matrixErrorf(opLU, fmt.Errorf("%w: %dx%d", ErrNonSquare, a.r, a.c))
	}
	n := a.r
	rows := make([]map[int]float64, n)
	lower := make([]map[int]float64, n)
	perm := make([]int, n)
	var scale float64
	for i := 0; i < n; i++ {
		perm[i] = i
		lower[i] = map[int]float64{}
		rows[i] = map[int]float64{}
		cols, vals := a.rowEntries(i)
		for k, c := range cols {
			v := vals[k]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, matrixErrorf(opLU, ErrNaNInf)
			}
			rows[i][c] = v
			if math.Abs(v) > scale {
				scale = math.Abs(v)
			}
		}
	}

	for k := 0; k < n; k++ {
		p, best := -1, 0.0
		for i := k; i < n; i++ {
			if v := math.Abs(rows[i][k]); v > best {
				p, best = i, v
			}
		}
		if p < 0 || best <= RankTolerance*scale {
			return nil, matrixErrorf(opLU, fmt.Errorf("%w: zero pivot in column %d", ErrSingular, k))
		}
		if p != k {
			rows[k], rows[p] = rows[p], rows[k]
			lower[k], lower[p] = lower[p], lower[k]
			perm[k], perm[p] = perm[p], perm[k]
		}
		pivot := rows[k][k]
		for i := k + 1; i < n; i++ {
			v, ok := rows[i][k]
			if !ok || v == 0 {
				continue
			}
			factor := v / pivot
			lower[i][k] = factor
			for c, u := range rows[k] {
				if c <= k {
					continue
				}
				rows[i][c] -= factor * u
			}
			delete(rows[i], k)
		}
	}

	f := &LU{n: n, perm: perm, l: make([]sparseRow, n), u: make([]sparseRow, n), diag: make([]float64, n)}
	for i := 0; i < n; i++ {
		f.diag[i] = rows[i][i]
		delete(rows[i], i)
		f.l[i] = freezeRow(lower[i])
		f.u[i] = freezeRow(rows[i])
	}

	return f, nil
}

// freezeRow turns a map row into a column-sorted sparseRow.
func freezeRow(m map[int]float64) sparseRow {
	r := sparseRow{cols: make([]int, 0, len(m)), vals: make([]float64, 0, len(m))}
	for c := range m {
		r.cols = append(r.cols, c)
	}
	sort.Ints(r.cols)
	for _, c := range r.cols {
		r.vals = append(r.vals, m[c])
	}

	return r
}

// Solve returns X with A·X = B.
func (f *LU) Solve(b *Dense) (*Dense, error) {
	if b == nil {
		return nil, matrixErrorf(opSolve, ErrNilMatrix)
	}
	n := f.n
	if b.r != n {
		return nil, matrixErrorf(opSolve, fmt.Errorf("%w: rhs has %d rows, want %d", ErrDimensionMismatch, b.r, n))
	}
	out := &Dense{r: n, c: b.c, data: make([]float64, n*b.c)}
	y := make([]float64, n)
	var s float64
	for j := 0; j < b.c; j++ {
		for i := 0; i < n; i++ {
			s = b.data[f.perm[i]*b.c+j]
			for k, c := range f.l[i].cols {
				s -= f.l[i].vals[k] * y[c]
			}
			y[i] = s
		}
		for i := n - 1; i >= 0; i-- {
			s = y[i]
			for k, c := range f.u[i].cols {
				s -= f.u[i].vals[k] * out.data[c*b.c+j]
			}
			out.data[i*b.c+j] = s / f.diag[i]
		}
	}
	if !out.IsFinite() {
		return nil, matrixErrorf(opSolve, ErrNaNInf)
	}

	return out, nil
}

// RelativeResidual returns ‖A·X − B‖∞ / max(‖B‖∞, 1).
func RelativeResidual(a Operator, x, b *Dense) (float64, error) {
	ax, err := a.MulDense(x)
	if err != nil {
		return 0, matrixErrorf(opResidual, err)
	}
	if err = ax.AddScaled(-1, b); err != nil {
		return 0, matrixErrorf(opResidual, err)
	}

	return ax.MaxAbs() / math.Max(b.MaxAbs(), 1), nil
}
