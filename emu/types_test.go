package emu_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/emu"
)

// TestParseUnit covers the text form and its failure modes.
func TestParseUnit(t *testing.T) {
	u, err := emu.ParseUnit("PYR:101")
	require.NoError(t, err)
	require.Equal(t, "PYR", u.Name())
	require.Equal(t, 3, u.Len())
	require.Equal(t, 2, u.Size())
	require.True(t, u.Tracked(2))
	require.False(t, u.Tracked(1))
	require.Equal(t, "PYR:101", u.String())

	for _, bad := range []string{"PYR", "PYR:", ":101", "PYR:1a1"} {
		_, err = emu.ParseUnit(bad)
		require.ErrorIs(t, err, emu.ErrBadUnit, bad)
	}
}

// TestUnit_MapKeyAndOrder checks equality, hashing and lexicographic order.
func TestUnit_MapKeyAndOrder(t *testing.T) {
	a1, _ := emu.NewUnit("A", "01")
	a2, _ := emu.UnitFromPositions("A", 2, 1)
	b, _ := emu.NewUnit("B", "00")
	a3, _ := emu.NewUnit("A", "10")

	seen := map[emu.Unit]int{a1: 1}
	require.Equal(t, 1, seen[a2]) // same key
	require.True(t, a1.Less(a3))
	require.True(t, a3.Less(b))
	require.Equal(t, []emu.Unit{a1, a3, b}, emu.SortUnits([]emu.Unit{b, a3, a1}))

	_, err := emu.UnitFromPositions("A", 2, 2)
	require.ErrorIs(t, err, emu.ErrBadUnit)
}

// TestReaction_Key ignores rate and depends on left order only after SortLeft.
func TestReaction_Key(t *testing.T) {
	a, _ := emu.ParseUnit("A:01")
	b, _ := emu.ParseUnit("B:01")
	c, _ := emu.ParseUnit("C:11")
	r1 := emu.Reaction{ID: 3, Left: []emu.Substrate{{b, 1}, {a, 1}}, Right: emu.Substrate{c, 1}, Rate: 1}
	r2 := emu.Reaction{ID: 3, Left: []emu.Substrate{{a, 1}, {b, 1}}, Right: emu.Substrate{c, 1}, Rate: 2}
	r1.SortLeft()
	require.Equal(t, r1.Key(), r2.Key())
	require.True(t, r1.IsCondensation())
	require.Equal(t, "#3 A:01 + B:01 -> C:11 (2)", r2.String())
	require.Equal(t, 2, emu.Network{r1, r2}.Size())
}
