package residual

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/flux"
	"github.com/katalvlaran/emuflux/simulator"
)

// Sentinel errors.
var (
	// ErrMeasurement is returned for a measurement that does not match the
	// simulated unit list or has non-positive errors.
	ErrMeasurement = fmt.Errorf("%w: residual: invalid measurement", emu.ErrStructural)

	// ErrFreeLength is returned when the free-flux vector has the wrong length.
	ErrFreeLength = fmt.Errorf("%w: residual: free flux vector length", emu.ErrStructural)
)

// Measurement is one measured MID with its per-shift standard errors.
type Measurement struct {
	Unit   emu.Unit
	MID    emu.MID
	Errors []float64
}

// Adapter evaluates residuals and Jacobians. It holds no mutable state and
// may be shared by concurrent callers.
type Adapter struct {
	sim    *simulator.Simulator
	layout flux.Layout
	meas   []Measurement
	count  int
}

// New checks measurements against the simulated units of sim, slot by slot.
func New(sim *simulator.Simulator, layout flux.Layout, measurements []Measurement) (*Adapter, error) {
	if sim == nil {
		return nil, fmt.Errorf("%w: nil simulator", ErrMeasurement)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	units := sim.Model().Measurements
	if len(measurements) != len(units) {
		return nil, fmt.Errorf("%w: %d measurements for %d simulated units", ErrMeasurement, len(measurements), len(units))
	}
	a := &Adapter{sim: sim, layout: layout, meas: make([]Measurement, len(measurements))}
	for i, m := range measurements {
		if m.Unit != units[i] {
			return nil, fmt.Errorf("%w: slot %d is %s, simulator has %s", ErrMeasurement, i, m.Unit, units[i])
		}
		want := m.Unit.Size() + 1
		if len(m.MID) != want || len(m.Errors) != want {
			return nil, fmt.Errorf("%w: %s needs %d shifts, got mid %d errors %d",
				ErrMeasurement, m.Unit, want, len(m.MID), len(m.Errors))
		}
		for k, e := range m.Errors {
			if !(e > 0) || math.IsInf(e, 0) {
				return nil, fmt.Errorf("%w: %s error[%d] = %g", ErrMeasurement, m.Unit, k, e)
			}
		}
		a.meas[i] = Measurement{Unit: m.Unit, MID: m.MID.Clone(), Errors: append([]float64(nil), m.Errors...)}
		a.count += want
	}

	return a, nil
}

// Count returns the number of residuals.
func (a *Adapter) Count() int { return a.count }

// NumFree returns the number of free fluxes.
func (a *Adapter) NumFree() int { return a.layout.NumFree() }

// Measurements returns the measured MIDs in slot order.
func (a *Adapter) Measurements() []Measurement { return a.meas }

// Expand maps free fluxes onto the full flux vector.
func (a *Adapter) Expand(free []float64) ([]float64, error) {
	if len(free) != a.layout.NumFree() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFreeLength, len(free), a.layout.NumFree())
	}

	return a.layout.Expand(free)
}

// Simulate returns the simulated MIDs at free.
func (a *Adapter) Simulate(free []float64) ([]emu.MID, error) {
	fluxes, err := a.Expand(free)
	if err != nil {
		return nil, err
	}
	res, err := a.sim.CalculateMids(fluxes, false)
	if err != nil {
		return nil, err
	}

	return res.MIDs, nil
}

// Evaluate returns the residual vector at free and, if withJacobian, the
// Count()×NumFree() Jacobian. The Jacobian is nil otherwise.
func (a *Adapter) Evaluate(free []float64, withJacobian bool) ([]float64, [][]float64, error) {
	fluxes, err := a.Expand(free)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.sim.CalculateMids(fluxes, withJacobian)
	if err != nil {
		return nil, nil, err
	}

	r, err := a.Residuals(res.MIDs)
	if err != nil {
		return nil, nil, err
	}
	if !withJacobian {
		return r, nil, nil
	}

	jac := make([][]float64, a.count)
	for i := range jac {
		jac[i] = make([]float64, len(free))
	}
	for v := range free {
		i := 0
		for slot, m := range a.meas {
			for k := range m.MID {
				jac[i][v] = res.Derivatives[v][slot][k] / m.Errors[k]
				i++
			}
		}
	}

	return r, jac, nil
}

// Residuals weights already simulated MIDs, one per measurement in order,
// against the measurements.
func (a *Adapter) Residuals(mids []emu.MID) ([]float64, error) {
	if len(mids) != len(a.meas) {
		return nil, fmt.Errorf("%w: %d simulated units for %d measurements", ErrMeasurement, len(mids), len(a.meas))
	}
	r := make([]float64, 0, a.count)
	for slot, m := range a.meas {
		if len(mids[slot]) != len(m.MID) {
			return nil, fmt.Errorf("%w: %s simulated with %d shifts, want %d", ErrMeasurement, m.Unit, len(mids[slot]), len(m.MID))
		}
		for k := range m.MID {
			r = append(r, (mids[slot][k]-m.MID[k])/m.Errors[k])
		}
	}

	return r, nil
}

// SSR returns Σ r².
func SSR(residuals []float64) float64 {
	var s float64
	for _, r := range residuals {
		s += r * r
	}

	return s
}

// IsTransient reports whether err rejects only the current trial point.
func IsTransient(err error) bool { return errors.Is(err, emu.ErrNumeric) }

// IsStructural reports whether err invalidates the whole model.
func IsStructural(err error) bool { return errors.Is(err, emu.ErrStructural) }
