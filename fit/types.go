package fit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Defaults.
const (
	DefaultRestarts   = 10
	DefaultIterations = 100
	DefaultTolerance  = 1e-10

	// initialDamping is λ at the start of every restart.
	initialDamping = 1e-3
	// maxDamping ends a restart that cannot find a descent step.
	maxDamping = 1e12
	// maxStartAttempts bounds resampling of start points that fail to simulate.
	maxStartAttempts = 20
)

// Sentinel errors.
var (
	// ErrBounds is returned for bounds that do not match the evaluator or
	// are not finite and ordered.
	ErrBounds = errors.New("fit: invalid bounds")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("fit: invalid option supplied")
)

// Evaluator computes weighted residuals and, on request, their Jacobian.
// *residual.Adapter implements it.
type Evaluator interface {
	Count() int
	NumFree() int
	Evaluate(free []float64, withJacobian bool) ([]float64, [][]float64, error)
}

// StopReason tells why a restart ended.
type StopReason string

const (
	StopTolerance  StopReason = "tolerance"  // relative SSR change below tolerance
	StopStep       StopReason = "step"       // step length below tolerance
	StopIterations StopReason = "iterations" // iteration cap reached
	StopStalled    StopReason = "stalled"    // no descent step up to the damping cap
	StopFailed     StopReason = "failed"     // no start point could be simulated
)

// Solution is the outcome of one restart.
type Solution struct {
	Restart     int
	Start       []float64
	Free        []float64
	SSR         float64
	Iterations  int
	Evaluations int
	Stop        StopReason
	Err         error // last numeric failure when Stop is StopFailed
}

// Best returns the solution with the lowest SSR, skipping failed restarts.
func Best(solutions []Solution) (Solution, bool) {
	best, ok := Solution{SSR: math.Inf(1)}, false
	for _, s := range solutions {
		if s.Stop != StopFailed && s.SSR < best.SSR {
			best, ok = s, true
		}
	}

	return best, ok
}

// Option configures a Fitter.
type Option func(*Options)

// Options holds Fitter settings.
type Options struct {
	Restarts   int
	Workers    int
	Iterations int
	Tolerance  float64
	Seed       uint64
	// Analytic selects the simulator's Jacobian; false uses forward
	// differences.
	Analytic   bool
	Logger     *slog.Logger
	Registerer prometheus.Registerer // nil leaves collectors unregistered
	Tracer     trace.Tracer

	err error
}

// DefaultOptions returns the defaults: analytic Jacobian, one worker per
// CPU, a discarding logger and the global tracer provider.
func DefaultOptions() Options {
	return Options{
		Restarts:   DefaultRestarts,
		Workers:    runtime.GOMAXPROCS(0),
		Iterations: DefaultIterations,
		Tolerance:  DefaultTolerance,
		Analytic:   true,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:     otel.Tracer("github.com/katalvlaran/emuflux/fit"),
	}
}

// WithRestarts sets the number of start points (≥ 1).
func WithRestarts(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.err = fmt.Errorf("%w: restarts must be ≥ 1 (%d)", ErrOptionViolation, n)
			return
		}
		o.Restarts = n
	}
}

// WithWorkers bounds the restarts running at once (≥ 1).
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.err = fmt.Errorf("%w: workers must be ≥ 1 (%d)", ErrOptionViolation, n)
			return
		}
		o.Workers = n
	}
}

// WithIterations caps LM iterations per restart (≥ 1).
func WithIterations(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.err = fmt.Errorf("%w: iterations must be ≥ 1 (%d)", ErrOptionViolation, n)
			return
		}
		o.Iterations = n
	}
}

// WithTolerance sets the relative SSR-change and step-length tolerance.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		if !(tol > 0) || math.IsInf(tol, 0) {
			o.err = fmt.Errorf("%w: tolerance must be finite and > 0 (%g)", ErrOptionViolation, tol)
			return
		}
		o.Tolerance = tol
	}
}

// WithSeed seeds the start point sources. Restart i uses (seed, i).
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithAnalyticJacobian toggles the simulator's derivatives.
func WithAnalyticJacobian(on bool) Option {
	return func(o *Options) { o.Analytic = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l == nil {
			o.err = fmt.Errorf("%w: nil logger", ErrOptionViolation)
			return
		}
		o.Logger = l
	}
}

// WithRegisterer registers the fit collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) { o.Registerer = reg }
}

// WithTracer sets the tracer used for restart spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Options) {
		if t == nil {
			o.err = fmt.Errorf("%w: nil tracer", ErrOptionViolation)
			return
		}
		o.Tracer = t
	}
}

// metrics are the fit collectors.
type metrics struct {
	evaluations prometheus.Counter
	failed      prometheus.Counter
	restarts    *prometheus.CounterVec
	ssr         prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		evaluations: f.NewCounter(prometheus.CounterOpts{
			Name: "emuflux_fit_evaluations_total",
			Help: "Residual evaluations, Jacobian columns included",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Name: "emuflux_fit_failed_trials_total",
			Help: "Trial points rejected by a numeric simulation failure",
		}),
		restarts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emuflux_fit_restarts_total",
			Help: "Finished restarts by stop reason",
		}, []string{"stop"}),
		ssr: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "emuflux_fit_ssr",
			Help:    "Final SSR of successful restarts",
			Buckets: prometheus.ExponentialBuckets(1e-3, 10, 10),
		}),
	}
}
