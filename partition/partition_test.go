package partition_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/partition"
)

// transfer builds a single-substrate reaction from unit texts.
func transfer(t *testing.T, id int, from, to string) emu.Reaction {
	t.Helper()
	a, err := emu.ParseUnit(from)
	require.NoError(t, err)
	b, err := emu.ParseUnit(to)
	require.NoError(t, err)

	return emu.Reaction{ID: id, Left: []emu.Substrate{{Unit: a, Coefficient: 1}}, Right: emu.Substrate{Unit: b, Coefficient: 1}, Rate: 1}
}

// condense builds a two-substrate reaction.
func condense(t *testing.T, id int, a, b, to string) emu.Reaction {
	t.Helper()
	r := transfer(t, id, a, to)
	u, err := emu.ParseUnit(b)
	require.NoError(t, err)
	r.Left = append(r.Left, emu.Substrate{Unit: u, Coefficient: 1})

	return r
}

// TestBySize_Ordering groups by product size ascending and keeps order.
func TestBySize_Ordering(t *testing.T) {
	rs := []emu.Reaction{
		condense(t, 0, "A:10", "B:01", "C:11"),
		transfer(t, 1, "X:1", "A:10"),
		transfer(t, 2, "Y:1", "B:01"),
		transfer(t, 3, "C:11", "D:011"),
	}
	nets, err := partition.BySize(rs)
	require.NoError(t, err)
	require.Len(t, nets, 2)
	require.Equal(t, 1, nets[0].Size())
	require.Equal(t, []int{1, 2}, []int{nets[0][0].ID, nets[0][1].ID})
	require.Equal(t, 2, nets[1].Size())
	require.Len(t, nets[1], 2)

	// every left unit is known by the time its network is solved
	for i, n := range nets {
		for _, r := range n {
			for _, s := range r.Left {
				require.LessOrEqual(t, s.Unit.Size(), n.Size(), "network %d", i)
			}
		}
	}
}

// TestBySize_RejectsGrowingSubstrate reports a substrate bigger than its product.
func TestBySize_RejectsGrowingSubstrate(t *testing.T) {
	_, err := partition.BySize([]emu.Reaction{transfer(t, 0, "A:11", "B:10")})
	require.ErrorIs(t, err, partition.ErrSizeOrder)
	require.ErrorIs(t, err, emu.ErrStructural)
}

// TestComponents_SplitsCycles separates a cycle from the chain that feeds it.
func TestComponents_SplitsCycles(t *testing.T) {
	// In -> P ; P <-> Q (cycle) ; Q -> R
	rs := []emu.Reaction{
		transfer(t, 0, "Q:1", "R:1"),
		transfer(t, 1, "P:1", "Q:1"),
		transfer(t, 2, "Q:1", "P:1"),
		transfer(t, 3, "In:1", "P:1"),
	}
	nets, err := partition.BySize(rs)
	require.NoError(t, err)
	parts, err := partition.Components(nets)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, []int{1, 2, 3}, []int{parts[0][0].ID, parts[0][1].ID, parts[0][2].ID})
	require.Equal(t, 0, parts[1][0].ID)
}

// TestComponents_FollowsDependencies solves a feeding unit before the unit
// it feeds even when the fed unit sorts first by name.
func TestComponents_FollowsDependencies(t *testing.T) {
	// In -> Z -> A ; In -> M
	rs := []emu.Reaction{
		transfer(t, 0, "Z:1", "A:1"),
		transfer(t, 1, "In:1", "M:1"),
		transfer(t, 2, "In:1", "Z:1"),
	}
	parts, err := partition.Components([]emu.Network{rs})
	require.NoError(t, err)
	require.Len(t, parts, 3)

	solved := make(map[string]bool)
	for _, part := range parts {
		require.Len(t, part, 1)
		r := part[0]
		if from := r.Left[0].Unit.String(); from != "In:1" {
			require.True(t, solved[from], "%s solved before %s", r.Right.Unit, from)
		}
		solved[r.Right.Unit.String()] = true
	}
	require.Equal(t, []int{1, 2, 0}, []int{parts[0][0].ID, parts[1][0].ID, parts[2][0].ID})
}
