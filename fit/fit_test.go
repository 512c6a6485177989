package fit_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/fit"
	"github.com/katalvlaran/emuflux/model"
)

// rosenbrock has residuals 10(y − x²) and 1 − x, minimum 0 at (1, 1).
type rosenbrock struct {
	fail func(x []float64) error
}

func (rosenbrock) Count() int   { return 2 }
func (rosenbrock) NumFree() int { return 2 }

func (r rosenbrock) Evaluate(x []float64, withJacobian bool) ([]float64, [][]float64, error) {
	if r.fail != nil {
		if err := r.fail(x); err != nil {
			return nil, nil, err
		}
	}
	res := []float64{10 * (x[1] - x[0]*x[0]), 1 - x[0]}
	if !withJacobian {
		return res, nil, nil
	}

	return res, [][]float64{{-20 * x[0], 10}, {-1, 0}}, nil
}

var bounds = [2][]float64{{-2, -2}, {2, 2}}

func run(t *testing.T, ev fit.Evaluator, opts ...fit.Option) []fit.Solution {
	t.Helper()
	f, err := fit.New(ev, bounds[0], bounds[1], opts...)
	require.NoError(t, err)
	sols, err := f.Run(context.Background())
	require.NoError(t, err)

	return sols
}

// TestRun_Rosenbrock finds the minimum with both Jacobians.
func TestRun_Rosenbrock(t *testing.T) {
	for _, analytic := range []bool{true, false} {
		t.Run(fmt.Sprintf("analytic=%v", analytic), func(t *testing.T) {
			sols := run(t, rosenbrock{},
				fit.WithRestarts(4), fit.WithIterations(500), fit.WithSeed(3),
				fit.WithAnalyticJacobian(analytic))
			require.Len(t, sols, 4)
			best, ok := fit.Best(sols)
			require.True(t, ok)
			require.InDelta(t, 1, best.Free[0], 1e-4)
			require.InDelta(t, 1, best.Free[1], 1e-4)
			require.Less(t, best.SSR, 1e-8)
			for i, s := range sols {
				require.Equal(t, i, s.Restart)
				require.Len(t, s.Start, 2)
				require.Positive(t, s.Evaluations)
			}
		})
	}
}

// TestRun_Deterministic gives the same solutions for any worker count.
func TestRun_Deterministic(t *testing.T) {
	one := run(t, rosenbrock{}, fit.WithRestarts(6), fit.WithSeed(11), fit.WithWorkers(1))
	many := run(t, rosenbrock{}, fit.WithRestarts(6), fit.WithSeed(11), fit.WithWorkers(4))
	require.Equal(t, one, many)

	other := run(t, rosenbrock{}, fit.WithRestarts(6), fit.WithSeed(12))
	require.NotEqual(t, one[0].Start, other[0].Start)
}

// TestRun_TransientFailures treats numeric errors as rejected trials.
func TestRun_TransientFailures(t *testing.T) {
	ev := rosenbrock{fail: func(x []float64) error {
		if x[0] < -1.5 {
			return fmt.Errorf("%w: outside simulable region", emu.ErrNumeric)
		}
		return nil
	}}
	sols := run(t, ev, fit.WithRestarts(5), fit.WithIterations(500), fit.WithSeed(5))
	best, ok := fit.Best(sols)
	require.True(t, ok)
	require.InDelta(t, 1, best.Free[0], 1e-4)
	for _, s := range sols {
		require.GreaterOrEqual(t, s.Start[0], -1.5)
	}

	always := rosenbrock{fail: func([]float64) error { return fmt.Errorf("%w: never", emu.ErrNumeric) }}
	sols = run(t, always, fit.WithRestarts(2))
	for _, s := range sols {
		require.Equal(t, fit.StopFailed, s.Stop)
		require.ErrorIs(t, s.Err, emu.ErrNumeric)
	}
	_, ok = fit.Best(sols)
	require.False(t, ok)
}

// TestRun_StructuralAborts stops the whole run.
func TestRun_StructuralAborts(t *testing.T) {
	ev := rosenbrock{fail: func([]float64) error { return fmt.Errorf("%w: broken", emu.ErrStructural) }}
	f, err := fit.New(ev, bounds[0], bounds[1], fit.WithRestarts(3))
	require.NoError(t, err)
	_, err = f.Run(context.Background())
	require.ErrorIs(t, err, emu.ErrStructural)
}

// TestRun_Cancelled honours the context.
func TestRun_Cancelled(t *testing.T) {
	f, err := fit.New(rosenbrock{}, bounds[0], bounds[1], fit.WithRestarts(2))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// TestRun_Metrics exports one restart count per restart.
func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	run(t, rosenbrock{}, fit.WithRestarts(3), fit.WithRegisterer(reg))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				values[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	require.Equal(t, 3.0, values["emuflux_fit_restarts_total"])
	require.Equal(t, 3.0, values["emuflux_fit_ssr"])
	require.Greater(t, values["emuflux_fit_evaluations_total"], 3.0)
}

// TestNew_Validation rejects bad bounds and options.
func TestNew_Validation(t *testing.T) {
	_, err := fit.New(rosenbrock{}, []float64{0}, []float64{1})
	require.ErrorIs(t, err, fit.ErrBounds)
	_, err = fit.New(rosenbrock{}, []float64{0, 2}, []float64{1, 1})
	require.ErrorIs(t, err, fit.ErrBounds)
	_, err = fit.New(nil, nil, nil)
	require.ErrorIs(t, err, fit.ErrBounds)

	for _, opt := range []fit.Option{
		fit.WithRestarts(0), fit.WithWorkers(0), fit.WithIterations(0),
		fit.WithTolerance(0), fit.WithLogger(nil), fit.WithTracer(nil),
	} {
		_, err = fit.New(rosenbrock{}, bounds[0], bounds[1], opt)
		require.ErrorIs(t, err, fit.ErrOptionViolation)
	}
}

// TestRun_RecoversToyFluxes fits MIDs simulated at known fluxes.
func TestRun_RecoversToyFluxes(t *testing.T) {
	f, err := model.Load("../model/testdata/toy.yaml")
	require.NoError(t, err)
	p, err := model.Compile(f)
	require.NoError(t, err)
	a, err := p.Adapter()
	require.NoError(t, err)

	truth := []float64{100, 60, 30}
	mids, err := a.Simulate(truth)
	require.NoError(t, err)
	for i := range p.Measurements {
		p.Measurements[i].MID = mids[i]
	}
	a, err = p.Adapter()
	require.NoError(t, err)

	fitter, err := fit.New(a, p.Lower, p.Upper, fit.WithRestarts(4), fit.WithSeed(1), fit.WithIterations(200))
	require.NoError(t, err)
	sols, err := fitter.Run(context.Background())
	require.NoError(t, err)
	best, ok := fit.Best(sols)
	require.True(t, ok)
	require.Less(t, best.SSR, 1e-6)
}
