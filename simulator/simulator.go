package simulator

import (
	"fmt"
	"math"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/matrix"
	"github.com/katalvlaran/emuflux/symbolic"
)

// Simulator evaluates one immutable model.
type Simulator struct {
	model  *symbolic.Model
	inputs []emu.MID
	opts   Options
}

// New binds model to its input MIDs, which must list model.Inputs in order.
func New(model *symbolic.Model, inputs []emu.UnitMID, opts ...Option) (*Simulator, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInputMismatch)
	}
	if len(inputs) != len(model.Inputs) {
		return nil, fmt.Errorf("%w: %d MIDs for %d inputs", ErrInputMismatch, len(inputs), len(model.Inputs))
	}
	mids := make([]emu.MID, len(inputs))
	for i, in := range inputs {
		want := model.Inputs[i]
		if in.Unit != want {
			return nil, fmt.Errorf("%w: position %d holds %s, want %s", ErrInputMismatch, i, in.Unit, want)
		}
		if len(in.MID) != want.Size()+1 {
			return nil, fmt.Errorf("%w: %s has %d mass shifts, want %d", ErrInputMismatch, want, len(in.MID), want.Size()+1)
		}
		mids[i] = in.MID.Clone()
	}

	return &Simulator{model: model, inputs: mids, opts: o}, nil
}

// Model returns the model the simulator evaluates.
func (s *Simulator) Model() *symbolic.Model { return s.model }

// run holds the scratch state of one CalculateMids call.
type run struct {
	sim       *Simulator
	fluxes    []float64
	withDiff  bool
	saved     [][]emu.MID   // [network][useful]
	savedDiff [][][]emu.MID // [network][free][useful]
	result    *Result
	numFree   int
}

// CalculateMids simulates every measured unit for fluxes (indexed by flux
// id) and, if withDerivatives, their derivatives with respect to each free
// flux. Numeric failures wrap emu.ErrNumeric.
func (s *Simulator) CalculateMids(fluxes []float64, withDerivatives bool) (*Result, error) {
	m := s.model
	if len(fluxes) != m.Layout.Len() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFluxLength, len(fluxes), m.Layout.Len())
	}
	for id, f := range fluxes {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: flux %d = %g", ErrNotFinite, id, f)
		}
	}
	if withDerivatives && !m.Derivatives {
		return nil, ErrNoDerivatives
	}

	r := &run{
		sim:       s,
		fluxes:    fluxes,
		withDiff:  withDerivatives,
		saved:     make([][]emu.MID, len(m.Networks)),
		savedDiff: make([][][]emu.MID, len(m.Networks)),
		result:    &Result{MIDs: make([]emu.MID, len(m.Measurements))},
		numFree:   m.NumFree(),
	}
	if withDerivatives {
		r.result.Derivatives = make([][]emu.MID, r.numFree)
		for v := range r.result.Derivatives {
			r.result.Derivatives[v] = make([]emu.MID, len(m.Measurements))
		}
	}

	for ni := range m.Networks {
		if err := r.network(ni, &m.Networks[ni]); err != nil {
			return nil, fmt.Errorf("network %d: %w", ni, err)
		}
	}

	return r.result, nil
}

// operator evaluates symbolic entries into a dense or sparse matrix.
func (r *run) operator(rows, cols int, ts []matrix.Triplet, sparse bool) (matrix.Operator, error) {
	if sparse {
		return matrix.NewSparse(rows, cols, ts)
	}

	return matrix.DenseFromTriplets(rows, cols, ts)
}

// eval substitutes the fluxes into entries.
func (r *run) eval(entries []symbolic.Entry) []matrix.Triplet {
	out := make([]matrix.Triplet, len(entries))
	for i, e := range entries {
		out[i] = matrix.Triplet{Row: e.Row, Col: e.Col, Value: e.Eval(r.fluxes)}
	}

	return out
}

// factor builds the factorization matching the operator's representation.
func factor(a matrix.Operator) (matrix.Factorization, error) {
	switch m := a.(type) {
	case *matrix.Sparse:
		return matrix.FactorLU(m)
	case *matrix.Dense:
		return matrix.FactorQR(m)
	default:
		return nil, fmt.Errorf("unsupported operator %T", a)
	}
}

// network solves one network and, when requested, its derivatives.
func (r *run) network(ni int, nd *symbolic.NetworkData) error {
	n := len(nd.Unknown)
	if n == 0 {
		return nil
	}
	k := nd.KnownRows()
	sparse := n > r.sim.opts.SparseThreshold

	// Stage 1: numeric A, B, Y
	a, err := r.operator(n, n, r.eval(nd.A), sparse)
	if err != nil {
		return err
	}
	b, err := r.operator(n, k, r.eval(nd.B), sparse)
	if err != nil {
		return err
	}
	y, err := r.buildY(nd)
	if err != nil {
		return err
	}

	// Stage 2: solve A·X = B·Y
	rhs, err := b.MulDense(y)
	if err != nil {
		return err
	}
	f, err := factor(a)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSolve, err)
	}
	x, err := r.solve(f, a, rhs)
	if err != nil {
		return err
	}

	// Stage 3: save useful rows and write finals
	r.saved[ni] = rows(x, nd.Useful)
	for _, fu := range nd.Finals {
		out, err := correct(x.Row(fu.Row), fu.Correction)
		if err != nil {
			return fmt.Errorf("%s: %w", fu.Unit, err)
		}
		r.result.MIDs[fu.Slot] = out
	}
	if !r.withDiff {
		return nil
	}

	// Stage 4: A·dX = dB·Y + B·dY − dA·X for every free flux
	r.savedDiff[ni] = make([][]emu.MID, r.numFree)
	for v := 0; v < r.numFree; v++ {
		d := nd.Derivatives[v]
		dA, err := r.operator(n, n, d.DA, sparse)
		if err != nil {
			return err
		}
		dB, err := r.operator(n, k, d.DB, sparse)
		if err != nil {
			return err
		}
		dY, err := r.buildDY(nd, v)
		if err != nil {
			return err
		}
		drhs, err := dB.MulDense(y)
		if err != nil {
			return err
		}
		bdy, err := b.MulDense(dY)
		if err != nil {
			return err
		}
		dax, err := dA.MulDense(x)
		if err != nil {
			return err
		}
		if err = drhs.AddScaled(1, bdy); err != nil {
			return err
		}
		if err = drhs.AddScaled(-1, dax); err != nil {
			return err
		}
		dx, err := r.solve(f, a, drhs)
		if err != nil {
			return fmt.Errorf("free flux %d: %w", v, err)
		}

		r.savedDiff[ni][v] = rows(dx, nd.Useful)
		for _, fu := range nd.Finals {
			out, err := correctDiff(x.Row(fu.Row), dx.Row(fu.Row), fu.Correction)
			if err != nil {
				return fmt.Errorf("%s: %w", fu.Unit, err)
			}
			r.result.Derivatives[v][fu.Slot] = out
		}
	}

	return nil
}

// solve runs f.Solve and checks finiteness and the residual.
func (r *run) solve(f matrix.Factorization, a matrix.Operator, rhs *matrix.Dense) (*matrix.Dense, error) {
	x, err := f.Solve(rhs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolve, err)
	}
	if !x.IsFinite() {
		return nil, ErrNotFinite
	}
	res, err := matrix.RelativeResidual(a, x, rhs)
	if err != nil {
		return nil, err
	}
	if res > r.sim.opts.ResidualTolerance {
		return nil, fmt.Errorf("%w: relative residual %.3g", ErrResidual, res)
	}

	return x, nil
}

// rows copies the given rows of x as MIDs.
func rows(x *matrix.Dense, idx []int) []emu.MID {
	out := make([]emu.MID, len(idx))
	for i, row := range idx {
		out[i] = emu.MID(x.Row(row))
	}

	return out
}
