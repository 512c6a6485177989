package labeling_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/labeling"
)

// TestInputMID_SingleMixture is the two-atom [0.1, 0.3] feed.
func TestInputMID_SingleMixture(t *testing.T) {
	u, _ := emu.ParseUnit("Glc:11")
	mid, err := labeling.InputMID(u, []labeling.Mixture{{Ratio: 1, Fractions: []float64{0.1, 0.3}}})
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.63, 0.34, 0.03}, []float64(mid), 1e-12)
}

// TestInputMID_TwoMixtures averages two feeds over one tracked atom.
func TestInputMID_TwoMixtures(t *testing.T) {
	u, _ := emu.ParseUnit("Glc:01")
	mid, err := labeling.InputMID(u, []labeling.Mixture{
		{Ratio: 0.3333, Fractions: []float64{0.1, 0.3}},
		{Ratio: 0.6666, Fractions: []float64{0.6, 0.1}},
	})
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.83, 0.16}, []float64(mid), 0.1)
	require.InDelta(t, 1.0, mid.Sum(), 1e-3)
}

// TestInputMIDs_Errors covers missing feeds and malformed mixtures.
func TestInputMIDs_Errors(t *testing.T) {
	u, _ := emu.ParseUnit("Glc:11")
	_, err := labeling.InputMIDs([]emu.Unit{u}, nil)
	require.ErrorIs(t, err, labeling.ErrUnknownSubstrate)

	_, err = labeling.InputMIDs([]emu.Unit{u}, []labeling.Substrate{{Name: "Glc",
		Mixtures: []labeling.Mixture{{Ratio: 1, Fractions: []float64{0.1}}}}})
	require.ErrorIs(t, err, labeling.ErrBadMixture)

	_, err = labeling.InputMID(u, []labeling.Mixture{{Ratio: 1, Fractions: []float64{0.1, 1.2}}})
	require.ErrorIs(t, err, labeling.ErrBadMixture)

	got, err := labeling.InputMIDs([]emu.Unit{u}, []labeling.Substrate{{Name: "Glc",
		Mixtures: []labeling.Mixture{{Ratio: 1, Fractions: []float64{0, 0}}}}})
	require.NoError(t, err)
	require.Equal(t, emu.MID{1, 0, 0}, got[0].MID)
}
