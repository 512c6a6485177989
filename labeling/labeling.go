// Package labeling computes the MIDs of labeled input units from the
// isotopic mixtures fed to the experiment.
//
// A mixture gives, per atom position, the fraction of heavy isotope, plus
// the share of the feed it makes up. Positions are independent, so the MID
// of a unit is the convolution of one Bernoulli distribution per tracked
// atom, averaged over mixtures by ratio.
package labeling

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/emuflux/emu"
)

// Sentinel errors for input MID computation.
var (
	// ErrUnknownSubstrate is returned when an input unit has no declared feed.
	ErrUnknownSubstrate = fmt.Errorf("%w: labeling: unknown input substrate", emu.ErrStructural)

	// ErrBadMixture is returned for negative ratios, fractions outside [0,1]
	// or a fraction vector that does not match the unit.
	ErrBadMixture = errors.New("labeling: invalid mixture")
)

// Mixture is one labeled species of a substrate feed.
type Mixture struct {
	Ratio     float64   // share of the feed
	Fractions []float64 // heavy fraction per atom position
}

// Substrate is a labeled input metabolite and its feed.
type Substrate struct {
	Name     string
	Mixtures []Mixture
}

// InputMID returns the MID of u for the given mixtures.
//
// Implementation:
//   - Stage 1: validate every mixture against u.
//   - Stage 2: per mixture, fold [1-f, f] over the tracked positions.
//   - Stage 3: sum the mixture MIDs weighted by ratio.
//
// Complexity: O(M·k²) for M mixtures and k tracked atoms.
func InputMID(u emu.Unit, mixtures []Mixture) (emu.MID, error) {
	out := make(emu.MID, u.Size()+1)
	for i, mx := range mixtures {
		if mx.Ratio < 0 {
			return nil, fmt.Errorf("%w: mixture %d of %s has ratio %g", ErrBadMixture, i, u.Name(), mx.Ratio)
		}
		if len(mx.Fractions) != u.Len() {
			return nil, fmt.Errorf("%w: mixture %d of %s has %d fractions, want %d",
				ErrBadMixture, i, u.Name(), len(mx.Fractions), u.Len())
		}
		mid := emu.MID{1}
		for pos, f := range mx.Fractions {
			if f < 0 || f > 1 {
				return nil, fmt.Errorf("%w: mixture %d of %s has fraction %g", ErrBadMixture, i, u.Name(), f)
			}
			if u.Tracked(pos) {
				mid = emu.Convolve(mid, emu.MID{1 - f, f})
			}
		}
		for k, v := range mid {
			out[k] += mx.Ratio * v
		}
	}

	return out, nil
}

// InputMIDs computes the MID of every unit from the substrate feeds.
// Returns ErrUnknownSubstrate when a unit's metabolite has no feed.
func InputMIDs(units []emu.Unit, substrates []Substrate) ([]emu.UnitMID, error) {
	feeds := make(map[string][]Mixture, len(substrates))
	for _, s := range substrates {
		feeds[s.Name] = s.Mixtures
	}
	out := make([]emu.UnitMID, 0, len(units))
	for _, u := range units {
		mixtures, ok := feeds[u.Name()]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSubstrate, u)
		}
		mid, err := InputMID(u, mixtures)
		if err != nil {
			return nil, err
		}
		out = append(out, emu.UnitMID{Unit: u, MID: mid})
	}

	return out, nil
}
