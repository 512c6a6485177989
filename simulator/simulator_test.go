package simulator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/flux"
	"github.com/katalvlaran/emuflux/matrix"
	"github.com/katalvlaran/emuflux/simulator"
	"github.com/katalvlaran/emuflux/symbolic"
)

func unit(t *testing.T, s string) emu.Unit {
	t.Helper()
	u, err := emu.ParseUnit(s)
	require.NoError(t, err)

	return u
}

func transfer(t *testing.T, id int, from, to string) emu.Reaction {
	return emu.Reaction{
		ID:    id,
		Left:  []emu.Substrate{{Unit: unit(t, from), Coefficient: 1}},
		Right: emu.Substrate{Unit: unit(t, to), Coefficient: 1},
		Rate:  1,
	}
}

// params describes A -> B (v0), B -> C (v1), E -> C (v2), B + C -> D (v3)
// with v0, v2 free, v1 = v0 + v2 and v3 fixed. A is unlabeled, E fully
// labeled, so C:1 = [v1, v2] / (v1 + v2).
func params(t *testing.T) symbolic.Parameters {
	cond := emu.Reaction{
		ID: 3,
		Left: []emu.Substrate{
			{Unit: unit(t, "B:1"), Coefficient: 1},
			{Unit: unit(t, "C:1"), Coefficient: 1},
		},
		Right: emu.Substrate{Unit: unit(t, "D:11"), Coefficient: 1},
		Rate:  1,
	}

	return symbolic.Parameters{
		Networks: []emu.Network{
			{transfer(t, 0, "A:1", "B:1"), transfer(t, 1, "B:1", "C:1"), transfer(t, 2, "E:1", "C:1")},
			{cond},
		},
		Inputs:       []emu.Unit{unit(t, "A:1"), unit(t, "E:1")},
		Measurements: []symbolic.Measurement{{Unit: unit(t, "C:1")}, {Unit: unit(t, "D:11")}},
		Layout: flux.Layout{
			Free:      []int{0, 2},
			IDToPos:   []int{-1, 0, -1, -1},
			Nullspace: [][]float64{{-1, -1}},
		},
		Derivatives: true,
	}
}

func inputs(t *testing.T) []emu.UnitMID {
	return []emu.UnitMID{
		{Unit: unit(t, "A:1"), MID: emu.MID{1, 0}},
		{Unit: unit(t, "E:1"), MID: emu.MID{0, 1}},
	}
}

func newSim(t *testing.T, p symbolic.Parameters, opts ...simulator.Option) *simulator.Simulator {
	t.Helper()
	m, err := symbolic.Generate(p)
	require.NoError(t, err)
	s, err := simulator.New(m, inputs(t), opts...)
	require.NoError(t, err)

	return s
}

func fluxes(t *testing.T, s *simulator.Simulator, free ...float64) []float64 {
	t.Helper()
	f, err := s.Model().Layout.Expand(free)
	require.NoError(t, err)

	return f
}

func requireMIDs(t *testing.T, want, got []emu.MID, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Len(t, got[i], len(want[i]), "slot %d", i)
		for k := range want[i] {
			require.InDelta(t, want[i][k], got[i][k], delta, "slot %d shift %d", i, k)
		}
	}
}

// TestCalculateMids_Mixing checks the flux-weighted mixing at C and the
// convolution at D.
func TestCalculateMids_Mixing(t *testing.T) {
	s := newSim(t, params(t))
	res, err := s.CalculateMids(fluxes(t, s, 1, 1), false)
	require.NoError(t, err)
	require.Nil(t, res.Derivatives)
	requireMIDs(t, []emu.MID{{2.0 / 3, 1.0 / 3}, {2.0 / 3, 1.0 / 3, 0}}, res.MIDs, 1e-12)
	for _, mid := range res.MIDs {
		require.InDelta(t, 1, mid.Sum(), 1e-12)
	}
}

// TestCalculateMids_Identity copies an input unchanged through one reaction.
func TestCalculateMids_Identity(t *testing.T) {
	p := symbolic.Parameters{
		Networks:     []emu.Network{{transfer(t, 0, "A:1", "B:1")}},
		Inputs:       []emu.Unit{unit(t, "A:1")},
		Measurements: []symbolic.Measurement{{Unit: unit(t, "B:1")}},
		Layout:       flux.Layout{Free: []int{0}, IDToPos: []int{-1}},
	}
	m, err := symbolic.Generate(p)
	require.NoError(t, err)
	s, err := simulator.New(m, []emu.UnitMID{{Unit: unit(t, "A:1"), MID: emu.MID{0.3, 0.7}}})
	require.NoError(t, err)

	res, err := s.CalculateMids([]float64{2.5}, false)
	require.NoError(t, err)
	requireMIDs(t, []emu.MID{{0.3, 0.7}}, res.MIDs, 1e-12)

	_, err = s.CalculateMids([]float64{1}, true)
	require.ErrorIs(t, err, simulator.ErrNoDerivatives)
}

// TestCalculateMids_Derivatives compares analytic derivatives with central
// finite differences.
func TestCalculateMids_Derivatives(t *testing.T) {
	s := newSim(t, params(t))
	free := []float64{1.3, 0.7}
	res, err := s.CalculateMids(fluxes(t, s, free...), true)
	require.NoError(t, err)
	require.Len(t, res.Derivatives, 2)

	const h = 1e-6
	for v := range free {
		up := append([]float64(nil), free...)
		down := append([]float64(nil), free...)
		up[v] += h
		down[v] -= h
		ru, err := s.CalculateMids(fluxes(t, s, up...), false)
		require.NoError(t, err)
		rd, err := s.CalculateMids(fluxes(t, s, down...), false)
		require.NoError(t, err)

		fd := make([]emu.MID, len(ru.MIDs))
		for slot := range ru.MIDs {
			fd[slot] = make(emu.MID, len(ru.MIDs[slot]))
			for k := range fd[slot] {
				fd[slot][k] = (ru.MIDs[slot][k] - rd.MIDs[slot][k]) / (2 * h)
			}
		}
		requireMIDs(t, fd, res.Derivatives[v], 1e-6)
	}

	// closed form at (1, 1): ∂C1/∂v0 = -1/9, ∂C1/∂v2 = 1/9
	res, err = s.CalculateMids(fluxes(t, s, 1, 1), true)
	require.NoError(t, err)
	require.InDelta(t, -1.0/9, res.Derivatives[0][0][1], 1e-12)
	require.InDelta(t, 1.0/9, res.Derivatives[1][0][1], 1e-12)
	require.InDelta(t, -1.0/9, res.Derivatives[0][1][1], 1e-12)
}

// TestCalculateMids_SparseMatchesDense forces every network down the
// sparse path.
func TestCalculateMids_SparseMatchesDense(t *testing.T) {
	dense := newSim(t, params(t))
	sparse := newSim(t, params(t), simulator.WithSparseThreshold(0))
	f := fluxes(t, dense, 0.4, 2.1)

	want, err := dense.CalculateMids(f, true)
	require.NoError(t, err)
	got, err := sparse.CalculateMids(f, true)
	require.NoError(t, err)
	requireMIDs(t, want.MIDs, got.MIDs, 1e-12)
	for v := range want.Derivatives {
		requireMIDs(t, want.Derivatives[v], got.Derivatives[v], 1e-12)
	}
}

// TestCalculateMids_Deterministic repeats one call.
func TestCalculateMids_Deterministic(t *testing.T) {
	s := newSim(t, params(t))
	f := fluxes(t, s, 0.9, 0.2)
	first, err := s.CalculateMids(f, true)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.CalculateMids(f, true)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// TestCalculateMids_Correction renormalises C·m.
func TestCalculateMids_Correction(t *testing.T) {
	p := params(t)
	c, err := matrix.NewDenseFromRows([][]float64{{1, 0}, {0.5, 1}})
	require.NoError(t, err)
	p.Measurements[0].Correction = c
	s := newSim(t, p)

	// C = [2/3, 1/3] -> C·m = [2/3, 2/3]
	res, err := s.CalculateMids(fluxes(t, s, 1, 1), true)
	require.NoError(t, err)
	requireMIDs(t, []emu.MID{{0.5, 0.5}}, res.MIDs[:1], 1e-12)

	// out0 = (1 - c) / (1.5 - 0.5c), so ∂out0/∂c = -1/(1.5 - 0.5c)² = -9/16
	// at c = 1/3, and ∂c/∂v0 = -1/9.
	d := res.Derivatives[0][0]
	require.InDelta(t, (-9.0/16)*(-1.0/9), d[0], 1e-12)
	require.InDelta(t, 0, d.Sum(), 1e-12)
}

// TestCalculateMids_NumericFailures are per-trial errors.
func TestCalculateMids_NumericFailures(t *testing.T) {
	s := newSim(t, params(t))

	_, err := s.CalculateMids(fluxes(t, s, 0, 0), false)
	require.ErrorIs(t, err, emu.ErrNumeric)
	require.ErrorIs(t, err, simulator.ErrSolve)

	sparse := newSim(t, params(t), simulator.WithSparseThreshold(0))
	_, err = sparse.CalculateMids(fluxes(t, sparse, 0, 0), false)
	require.ErrorIs(t, err, emu.ErrNumeric)

	f := fluxes(t, s, 1, 1)
	f[0] = math.NaN()
	_, err = s.CalculateMids(f, false)
	require.ErrorIs(t, err, simulator.ErrNotFinite)
}

// TestNew_Validation rejects mismatched inputs and options.
func TestNew_Validation(t *testing.T) {
	m, err := symbolic.Generate(params(t))
	require.NoError(t, err)

	in := inputs(t)
	_, err = simulator.New(m, in[:1])
	require.ErrorIs(t, err, simulator.ErrInputMismatch)

	in = inputs(t)
	in[0], in[1] = in[1], in[0]
	_, err = simulator.New(m, in)
	require.ErrorIs(t, err, simulator.ErrInputMismatch)

	in = inputs(t)
	in[0].MID = emu.MID{1, 0, 0}
	_, err = simulator.New(m, in)
	require.ErrorIs(t, err, emu.ErrStructural)

	_, err = simulator.New(m, inputs(t), simulator.WithSparseThreshold(-1))
	require.ErrorIs(t, err, simulator.ErrOptionViolation)
	_, err = simulator.New(m, inputs(t), simulator.WithResidualTolerance(0))
	require.ErrorIs(t, err, simulator.ErrOptionViolation)

	s, err := simulator.New(m, inputs(t))
	require.NoError(t, err)
	_, err = s.CalculateMids([]float64{1, 1}, false)
	require.ErrorIs(t, err, simulator.ErrFluxLength)
}
