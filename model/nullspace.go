package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/emuflux/flux"
	"github.com/katalvlaran/emuflux/network"
)

// rankTolerance is relative to the largest singular value.
const rankTolerance = 1e-10

// Stoichiometry returns the balanced metabolites, the flux-carrying
// reaction ids and S[metabolite][column] = produced − consumed.
// Isotopomer-balance reactions carry no flux and excluded metabolites are
// not balanced.
func Stoichiometry(reactions []network.Reaction, excluded []string) ([]string, []int, [][]float64) {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}
	var columns []int
	var carrying []network.Reaction
	for _, r := range reactions {
		if r.Type == network.IsotopomerBalance {
			continue
		}
		columns = append(columns, r.ID)
		carrying = append(carrying, r)
	}
	var rows []string
	for _, name := range network.Metabolites(carrying) {
		if !skip[name] {
			rows = append(rows, name)
		}
	}
	index := make(map[string]int, len(rows))
	for i, name := range rows {
		index[name] = i
	}

	s := make([][]float64, len(rows))
	for i := range s {
		s[i] = make([]float64, len(columns))
	}
	for j, r := range carrying {
		for _, m := range r.Equation.Left {
			if i, ok := index[m.Name]; ok {
				s[i][j] -= m.Coefficient
			}
		}
		for _, m := range r.Equation.Right {
			if i, ok := index[m.Name]; ok {
				s[i][j] += m.Coefficient
			}
		}
	}

	return rows, columns, s
}

// layout builds the flux layout from the nullspace block, computing N when
// the file gives only the free reactions.
func layout(f *File, reactions []network.Reaction) (flux.Layout, error) {
	byName := make(map[string]int, len(reactions))
	for _, r := range reactions {
		byName[r.Name] = r.ID
	}
	ids := func(names []string) ([]int, error) {
		out := make([]int, len(names))
		for i, n := range names {
			id, ok := byName[n]
			if !ok {
				return nil, fmt.Errorf("%w: nullspace names unknown reaction %q", ErrInvalidModel, n)
			}
			out[i] = id
		}
		return out, nil
	}

	free, err := ids(f.Nullspace.Free)
	if err != nil {
		return flux.Layout{}, err
	}
	l := flux.Layout{Free: free, IDToPos: make([]int, len(reactions))}
	for i := range l.IDToPos {
		l.IDToPos[i] = -1
	}

	var dependent []int
	if f.Nullspace.Matrix != nil {
		if dependent, err = ids(f.Nullspace.Dependent); err != nil {
			return flux.Layout{}, err
		}
		if len(f.Nullspace.Matrix) != len(dependent) {
			return flux.Layout{}, fmt.Errorf("%w: nullspace has %d rows for %d dependent reactions",
				ErrInvalidModel, len(f.Nullspace.Matrix), len(dependent))
		}
		l.Nullspace = f.Nullspace.Matrix
	} else {
		if dependent, l.Nullspace, err = solveNullspace(reactions, f.Excluded, free); err != nil {
			return flux.Layout{}, err
		}
	}
	for row, id := range dependent {
		l.IDToPos[id] = row
	}
	if err = l.Validate(); err != nil {
		return flux.Layout{}, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}

	return l, nil
}

// solveNullspace returns the dependent ids (every flux-carrying reaction
// that is not free, in id order) and N = S_D⁺·S_F, so that
// S_D·v_D + S_F·v_F = 0 gives v_D = −N·v_F.
//
// Errors: ErrNullspace when S_D is rank deficient, or when the free fluxes
// are themselves constrained (S_D·N ≠ S_F).
func solveNullspace(reactions []network.Reaction, excluded []string, free []int) ([]int, [][]float64, error) {
	rows, columns, s := Stoichiometry(reactions, excluded)
	isFree := make(map[int]int, len(free))
	for v, id := range free {
		isFree[id] = v
	}
	for _, id := range free {
		if columnOf(columns, id) < 0 {
			return nil, nil, fmt.Errorf("%w: free reaction %d carries no flux", ErrNullspace, id)
		}
	}
	var depCols, dependent []int
	for j, id := range columns {
		if _, ok := isFree[id]; !ok {
			depCols = append(depCols, j)
			dependent = append(dependent, id)
		}
	}
	m, d, nf := len(rows), len(dependent), len(free)
	if d == 0 {
		return nil, nil, nil
	}
	if m < d {
		return nil, nil, fmt.Errorf("%w: %d balances for %d dependent fluxes", ErrNullspace, m, d)
	}

	sd := mat.NewDense(m, d, nil)
	for i := 0; i < m; i++ {
		for k, j := range depCols {
			sd.Set(i, k, s[i][j])
		}
	}
	var svd mat.SVD
	if !svd.Factorize(sd, mat.SVDNone) {
		return nil, nil, fmt.Errorf("%w: SVD did not converge", ErrNullspace)
	}
	values := svd.Values(nil)
	for k, sv := range values {
		if sv <= rankTolerance*values[0] {
			return nil, nil, fmt.Errorf("%w: stoichiometry rank %d of %d", ErrNullspace, k, d)
		}
	}

	n := make([][]float64, d)
	for i := range n {
		n[i] = make([]float64, nf)
	}
	if nf == 0 {
		return dependent, n, nil
	}

	sf := mat.NewDense(m, nf, nil)
	for i := 0; i < m; i++ {
		for id, v := range isFree {
			sf.Set(i, v, s[i][columnOf(columns, id)])
		}
	}
	var x mat.Dense
	if err := x.Solve(sd, sf); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNullspace, err)
	}
	var check mat.Dense
	check.Mul(sd, &x)
	check.Sub(&check, sf)
	if mat.Norm(&check, math.Inf(1)) > 1e-9*math.Max(1, mat.Norm(sf, math.Inf(1))) {
		return nil, nil, fmt.Errorf("%w: free fluxes are not independent", ErrNullspace)
	}
	for i := 0; i < d; i++ {
		for v := 0; v < nf; v++ {
			n[i][v] = x.At(i, v)
		}
	}

	return dependent, n, nil
}

// columnOf returns the stoichiometry column of reaction id.
func columnOf(columns []int, id int) int {
	for j, c := range columns {
		if c == id {
			return j
		}
	}

	return -1
}
