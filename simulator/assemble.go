package simulator

import (
	"fmt"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/matrix"
	"github.com/katalvlaran/emuflux/symbolic"
)

// lookup returns the saved MID at p.
func (r *run) lookup(p symbolic.Position) emu.MID {
	if p.Network == emu.InputNetwork {
		return r.sim.inputs[p.Index]
	}

	return r.saved[p.Network][p.Index]
}

// lookupDiff returns ∂(saved MID at p)/∂free[v]; nil for inputs.
func (r *run) lookupDiff(p symbolic.Position, v int) emu.MID {
	if p.Network == emu.InputNetwork {
		return nil
	}

	return r.savedDiff[p.Network][v][p.Index]
}

// buildY stacks known MIDs over convolution MIDs.
func (r *run) buildY(nd *symbolic.NetworkData) (*matrix.Dense, error) {
	y, err := matrix.NewDense(nd.KnownRows(), nd.MIDSize)
	if err != nil {
		return nil, err
	}
	for i, p := range nd.YData {
		if err = y.SetRow(i, r.lookup(p)); err != nil {
			return nil, fmt.Errorf("%w: known %s: %v", ErrInputMismatch, nd.Known[i], err)
		}
	}
	for i, c := range nd.Convolutions {
		mids := make([]emu.MID, len(c.Elements))
		for j, p := range c.Elements {
			mids[j] = r.lookup(p)
		}
		if err = y.SetRow(len(nd.YData)+i, emu.ConvolveAll(mids...)); err != nil {
			return nil, fmt.Errorf("%w: convolution %d: %v", ErrInputMismatch, i, err)
		}
	}

	return y, nil
}

// buildDY is buildY differentiated with respect to free[v]. A convolution
// row follows the product rule: Σ_j (d_j * Π_{k≠j} m_k).
func (r *run) buildDY(nd *symbolic.NetworkData, v int) (*matrix.Dense, error) {
	dy, err := matrix.NewDense(nd.KnownRows(), nd.MIDSize)
	if err != nil {
		return nil, err
	}
	for i, p := range nd.YData {
		if d := r.lookupDiff(p, v); d != nil {
			if err = dy.SetRow(i, d); err != nil {
				return nil, err
			}
		}
	}
	for i, c := range nd.Convolutions {
		row := make(emu.MID, nd.MIDSize)
		for j, pj := range c.Elements {
			d := r.lookupDiff(pj, v)
			if d == nil {
				continue
			}
			mids := make([]emu.MID, len(c.Elements))
			for k, pk := range c.Elements {
				if k == j {
					mids[k] = d
				} else {
					mids[k] = r.lookup(pk)
				}
			}
			term := emu.ConvolveAll(mids...)
			if len(term) != len(row) {
				return nil, fmt.Errorf("%w: convolution %d derivative length %d, want %d",
					ErrInputMismatch, i, len(term), len(row))
			}
			for t := range row {
				row[t] += term[t]
			}
		}
		if err = dy.SetRow(len(nd.YData)+i, row); err != nil {
			return nil, err
		}
	}

	return dy, nil
}

// correct applies c to mid and renormalises: out = C·m / Σ(C·m).
// A nil c returns a copy of mid.
func correct(mid []float64, c *matrix.Dense) (emu.MID, error) {
	if c == nil {
		return emu.MID(mid), nil
	}
	cm, err := matrix.MulVec(c, mid)
	if err != nil {
		return nil, err
	}
	s := emu.MID(cm).Sum()
	if s == 0 {
		return nil, fmt.Errorf("%w: corrected MID sums to zero", ErrNotFinite)
	}
	for i := range cm {
		cm[i] /= s
	}

	return cm, nil
}

// correctDiff differentiates correct: (C·dm − out·Σ(C·dm)) / Σ(C·m).
func correctDiff(mid, dmid []float64, c *matrix.Dense) (emu.MID, error) {
	if c == nil {
		return emu.MID(dmid), nil
	}
	cm, err := matrix.MulVec(c, mid)
	if err != nil {
		return nil, err
	}
	cdm, err := matrix.MulVec(c, dmid)
	if err != nil {
		return nil, err
	}
	s, ds := emu.MID(cm).Sum(), emu.MID(cdm).Sum()
	if s == 0 {
		return nil, fmt.Errorf("%w: corrected MID sums to zero", ErrNotFinite)
	}
	out := make(emu.MID, len(cm))
	for i := range cm {
		out[i] = (cdm[i] - cm[i]/s*ds) / s
	}

	return out, nil
}
