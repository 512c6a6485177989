package symbolic_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/flux"
	"github.com/katalvlaran/emuflux/matrix"
	"github.com/katalvlaran/emuflux/symbolic"
)

// unit parses a unit or fails the test.
func unit(t *testing.T, s string) emu.Unit {
	t.Helper()
	u, err := emu.ParseUnit(s)
	require.NoError(t, err)

	return u
}

// transfer builds a one-substrate reaction with unit coefficients.
func transfer(t *testing.T, id int, from, to string) emu.Reaction {
	return emu.Reaction{
		ID:    id,
		Left:  []emu.Substrate{{Unit: unit(t, from), Coefficient: 1}},
		Right: emu.Substrate{Unit: unit(t, to), Coefficient: 1},
		Rate:  1,
	}
}

// fixture is
//
//	size 1: A -> B (v0), B -> C (v1), E -> C (v2)
//	size 2: B + C -> D (v3)
//
// with free fluxes v0, v2; v1 = v0 + v2; v3 fixed.
func fixture(t *testing.T) symbolic.Parameters {
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
		Inputs: []emu.Unit{unit(t, "A:1"), unit(t, "E:1")},
		Measurements: []symbolic.Measurement{
			{Unit: unit(t, "C:1")},
			{Unit: unit(t, "D:11")},
		},
		Layout: flux.Layout{
			Free:      []int{0, 2},
			IDToPos:   []int{-1, 0, -1, -1},
			Nullspace: [][]float64{{-1, -1}},
		},
		Derivatives: true,
	}
}

// TestGenerate_Entries checks the classification and the A/B cells.
func TestGenerate_Entries(t *testing.T) {
	m, err := symbolic.Generate(fixture(t))
	require.NoError(t, err)
	require.Len(t, m.Networks, 2)
	require.Equal(t, 5, m.Residuals())
	require.Equal(t, 2, m.NumFree())

	n0 := m.Networks[0]
	require.Equal(t, []emu.Unit{unit(t, "B:1"), unit(t, "C:1")}, n0.Unknown)
	require.Equal(t, []emu.Unit{unit(t, "A:1"), unit(t, "E:1")}, n0.Known)
	require.Equal(t, []symbolic.Position{{Network: emu.InputNetwork, Index: 0}, {Network: emu.InputNetwork, Index: 1}}, n0.YData)
	require.Equal(t, 2, n0.MIDSize)
	require.Equal(t, []symbolic.Entry{
		{Row: 0, Col: 0, Terms: []symbolic.FluxTerm{{ID: 0, Coefficient: -1}}},
		{Row: 1, Col: 0, Terms: []symbolic.FluxTerm{{ID: 1, Coefficient: 1}}},
		{Row: 1, Col: 1, Terms: []symbolic.FluxTerm{{ID: 1, Coefficient: -1}, {ID: 2, Coefficient: -1}}},
	}, n0.A)
	require.Equal(t, []symbolic.Entry{
		{Row: 0, Col: 0, Terms: []symbolic.FluxTerm{{ID: 0, Coefficient: -1}}},
		{Row: 1, Col: 1, Terms: []symbolic.FluxTerm{{ID: 2, Coefficient: -1}}},
	}, n0.B)

	// B and C are consumed by the condensation, in that order.
	require.Equal(t, []int{0, 1}, n0.Useful)
	require.Equal(t, []symbolic.FinalUnit{{Unit: unit(t, "C:1"), Row: 1, Slot: 0}}, n0.Finals)

	n1 := m.Networks[1]
	require.Empty(t, n1.Known)
	require.Equal(t, []symbolic.Convolution{{FluxID: 3, Elements: []symbolic.Position{{Network: 0, Index: 0}, {Network: 0, Index: 1}}}}, n1.Convolutions)
	require.Equal(t, 1, n1.KnownRows())
	require.Equal(t, 3, n1.MIDSize)
	require.Equal(t, []symbolic.FinalUnit{{Unit: unit(t, "D:11"), Row: 0, Slot: 1}}, n1.Finals)
}

// TestGenerate_Derivatives checks the constant dA/dB triplets.
func TestGenerate_Derivatives(t *testing.T) {
	m, err := symbolic.Generate(fixture(t))
	require.NoError(t, err)

	d := m.Networks[0].Derivatives
	require.Len(t, d, 2)
	require.Equal(t, []matrix.Triplet{{Row: 0, Col: 0, Value: -1}, {Row: 1, Col: 0, Value: 1}, {Row: 1, Col: 1, Value: -1}}, d[0].DA)
	require.Equal(t, []matrix.Triplet{{Row: 0, Col: 0, Value: -1}}, d[0].DB)
	require.Equal(t, []matrix.Triplet{{Row: 1, Col: 0, Value: 1}, {Row: 1, Col: 1, Value: -2}}, d[1].DA)
	require.Equal(t, []matrix.Triplet{{Row: 1, Col: 1, Value: -1}}, d[1].DB)

	// v3 is fixed, so the condensation network does not move.
	for _, dv := range m.Networks[1].Derivatives {
		require.Empty(t, dv.DA)
		require.Empty(t, dv.DB)
	}

	p := fixture(t)
	p.Derivatives = false
	m, err = symbolic.Generate(p)
	require.NoError(t, err)
	require.Empty(t, m.Networks[0].Derivatives)
}

// TestGenerate_MergesRates sums duplicate flux terms in one cell.
func TestGenerate_MergesRates(t *testing.T) {
	p := fixture(t)
	twice := transfer(t, 0, "A:1", "B:1")
	twice.Rate = 0.5
	p.Networks[0] = append(p.Networks[0], twice)

	m, err := symbolic.Generate(p)
	require.NoError(t, err)
	require.Equal(t, []symbolic.FluxTerm{{ID: 0, Coefficient: -1.5}}, m.Networks[0].A[0].Terms)
	require.Equal(t, []symbolic.FluxTerm{{ID: 0, Coefficient: -1.5}}, m.Networks[0].B[0].Terms)
}

// TestGenerate_Errors covers every structural failure.
func TestGenerate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *symbolic.Parameters)
		want   error
	}{
		{"unresolved", func(p *symbolic.Parameters) { p.Inputs = p.Inputs[:1] }, symbolic.ErrUnresolvedUnit},
		{"unresolved condensation", func(p *symbolic.Parameters) { p.Networks = p.Networks[1:] }, symbolic.ErrUnresolvedUnit},
		{"duplicate convolution", func(p *symbolic.Parameters) {
			p.Networks[1] = append(p.Networks[1], p.Networks[1][0])
		}, symbolic.ErrDuplicateConvolution},
		{"not simulated", func(p *symbolic.Parameters) {
			p.Measurements = append(p.Measurements, symbolic.Measurement{Unit: unit(t, "Z:1")})
		}, symbolic.ErrMeasurementNotSimulated},
		{"bad correction", func(p *symbolic.Parameters) {
			c, _ := matrix.NewDenseFromRows([][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
			p.Measurements[0].Correction = c
		}, symbolic.ErrBadCorrection},
		{"unknown flux", func(p *symbolic.Parameters) { p.Networks[0][0].ID = 9 }, symbolic.ErrUnknownFlux},
		{"bad layout", func(p *symbolic.Parameters) { p.Layout.Free = []int{1} }, flux.ErrBadLayout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := fixture(t)
			tc.mutate(&p)
			_, err := symbolic.Generate(p)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, emu.ErrStructural)
		})
	}
}
