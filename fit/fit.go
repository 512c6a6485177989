package fit

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/emuflux/residual"
)

// Fitter runs multi-start fits over one evaluator.
type Fitter struct {
	ev      Evaluator
	lower   []float64
	upper   []float64
	opts    Options
	metrics *metrics
}

// New validates the bounds against ev and applies opts.
func New(ev Evaluator, lower, upper []float64, opts ...Option) (*Fitter, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: nil evaluator", ErrBounds)
	}
	n := ev.NumFree()
	if len(lower) != n || len(upper) != n {
		return nil, fmt.Errorf("%w: %d/%d bounds for %d free fluxes", ErrBounds, len(lower), len(upper), n)
	}
	for i := range lower {
		if math.IsNaN(lower[i]) || math.IsInf(lower[i], 0) || math.IsNaN(upper[i]) || math.IsInf(upper[i], 0) || lower[i] > upper[i] {
			return nil, fmt.Errorf("%w: free flux %d in [%g, %g]", ErrBounds, i, lower[i], upper[i])
		}
	}

	return &Fitter{
		ev:      ev,
		lower:   append([]float64(nil), lower...),
		upper:   append([]float64(nil), upper...),
		opts:    o,
		metrics: newMetrics(o.Registerer),
	}, nil
}

// Run performs every restart and returns the solutions in restart order.
// It fails on the first structural error or when ctx is done; numeric
// failures only reject trial points.
func (f *Fitter) Run(ctx context.Context) ([]Solution, error) {
	out := make([]Solution, f.opts.Restarts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)
	for i := range out {
		g.Go(func() error {
			sol, err := f.restart(gctx, i)
			if err != nil {
				return fmt.Errorf("restart %d: %w", i, err)
			}
			out[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// restart runs one start point inside its own span.
func (f *Fitter) restart(ctx context.Context, i int) (Solution, error) {
	ctx, span := f.opts.Tracer.Start(ctx, "fit.Restart",
		trace.WithAttributes(attribute.Int("restart", i)))
	defer span.End()

	log := f.opts.Logger.With("restart", i)
	rng := rand.New(rand.NewPCG(f.opts.Seed, uint64(i)))
	sol := Solution{Restart: i, SSR: math.Inf(1)}

	var st *state
	for attempt := 0; attempt < maxStartAttempts; attempt++ {
		sol.Start = f.sample(rng)
		var err error
		st, err = f.newState(sol.Start, &sol.Evaluations)
		if err == nil {
			break
		}
		if !residual.IsTransient(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "start point")
			return sol, err
		}
		f.metrics.failed.Inc()
		sol.Err = err
		st = nil
	}
	if st == nil {
		sol.Stop = StopFailed
		f.metrics.restarts.WithLabelValues(string(sol.Stop)).Inc()
		span.SetStatus(codes.Error, "no start point could be simulated")
		log.Warn("restart failed", "err", sol.Err)
		return sol, nil
	}
	sol.Err = nil
	log.Info("restart started", "start", sol.Start, "ssr", st.ssr)

	stop, err := f.minimize(ctx, st, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "minimize")
		return sol, err
	}
	sol.Free, sol.SSR, sol.Iterations, sol.Stop = st.x, st.ssr, st.iterations, stop

	f.metrics.restarts.WithLabelValues(string(stop)).Inc()
	f.metrics.ssr.Observe(sol.SSR)
	span.SetAttributes(
		attribute.Float64("ssr", sol.SSR),
		attribute.Int("iterations", sol.Iterations),
		attribute.String("stop", string(stop)),
	)
	log.Info("restart finished", "free", sol.Free, "ssr", sol.SSR, "iterations", sol.Iterations, "stop", stop)

	return sol, nil
}

// sample draws a point uniformly inside the bounds.
func (f *Fitter) sample(rng *rand.Rand) []float64 {
	x := make([]float64, len(f.lower))
	for i := range x {
		x[i] = f.lower[i] + rng.Float64()*(f.upper[i]-f.lower[i])
	}

	return x
}
