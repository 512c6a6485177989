package fit

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/emuflux/residual"
)

// fdStep is the relative forward-difference step.
const fdStep = 1e-7

// state is the current iterate of one restart.
type state struct {
	f           *Fitter
	x           []float64
	r           []float64
	jac         [][]float64
	ssr         float64
	iterations  int
	evaluations *int
}

// newState evaluates residuals and Jacobian at x.
func (f *Fitter) newState(x []float64, evaluations *int) (*state, error) {
	st := &state{f: f, x: x, evaluations: evaluations}
	r, jac, err := st.evaluate(x, true)
	if err != nil {
		return nil, err
	}
	st.r, st.jac, st.ssr = r, jac, residual.SSR(r)

	return st, nil
}

// evaluate returns residuals and, on request, the Jacobian, analytic or by
// forward differences.
func (st *state) evaluate(x []float64, withJacobian bool) ([]float64, [][]float64, error) {
	analytic := withJacobian && st.f.opts.Analytic
	r, jac, err := st.call(x, analytic)
	if err != nil || !withJacobian || analytic {
		return r, jac, err
	}

	jac = make([][]float64, len(r))
	for i := range jac {
		jac[i] = make([]float64, len(x))
	}
	probe := append([]float64(nil), x...)
	for v := range x {
		h := fdStep * math.Max(1, math.Abs(x[v]))
		if x[v]+h > st.f.upper[v] {
			h = -h
		}
		probe[v] = x[v] + h
		rv, _, err := st.call(probe, false)
		probe[v] = x[v]
		if err != nil {
			return nil, nil, err
		}
		for i := range r {
			jac[i][v] = (rv[i] - r[i]) / h
		}
	}

	return r, jac, nil
}

// call forwards to the evaluator and counts the evaluation.
func (st *state) call(x []float64, withJacobian bool) ([]float64, [][]float64, error) {
	*st.evaluations++
	st.f.metrics.evaluations.Inc()

	return st.f.ev.Evaluate(x, withJacobian)
}

// minimize runs bounded LM from st until a stop criterion holds.
//
// Implementation:
//   - Stage 1: g = Jᵀr; keep the fluxes not pinned at a bound and form
//     JᵀJ over them, once per accepted iterate.
//   - Stage 2: solve (JᵀJ + λ·D)·δ = −g by Cholesky, D = diag(JᵀJ) floored;
//     project x + δ onto the bounds and evaluate.
//   - Stage 3: accept on lower SSR (λ ÷ 10), otherwise λ × 10; numeric
//     failures count as rejections.
//
// Errors: structural evaluator errors and ctx.Err().
func (f *Fitter) minimize(ctx context.Context, st *state, log *slog.Logger) (StopReason, error) {
	n := len(st.x)
	if n == 0 || st.ssr == 0 {
		return StopTolerance, nil
	}
	lambda := initialDamping

	for st.iterations < f.opts.Iterations {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		st.iterations++

		// Stage 1
		m := len(st.r)
		flat := make([]float64, 0, m*n)
		for _, row := range st.jac {
			flat = append(flat, row...)
		}
		j := mat.NewDense(m, n, flat)
		var grad mat.VecDense
		grad.MulVec(j.T(), mat.NewVecDense(m, append([]float64(nil), st.r...)))
		act := f.active(st.x, &grad)
		if len(act) == 0 {
			return StopStep, nil
		}
		k := len(act)
		ja := mat.NewDense(m, k, nil)
		g := mat.NewVecDense(k, nil)
		for c, i := range act {
			ja.SetCol(c, mat.Col(nil, i, j))
			g.SetVec(c, grad.AtVec(i))
		}
		jtj := mat.NewSymDense(k, nil)
		jtj.SymOuterK(1, ja.T())

		accepted := false
		for !accepted {
			if lambda > maxDamping {
				return StopStalled, nil
			}

			// Stage 2
			damped := mat.NewSymDense(k, nil)
			damped.CopySym(jtj)
			for i := 0; i < k; i++ {
				d := math.Max(jtj.At(i, i), 1e-12)
				damped.SetSym(i, i, jtj.At(i, i)+lambda*d)
			}
			var chol mat.Cholesky
			if !chol.Factorize(damped) {
				lambda *= 10
				continue
			}
			var delta mat.VecDense
			if err := chol.SolveVecTo(&delta, g); err != nil {
				lambda *= 10
				continue
			}
			next := append([]float64(nil), st.x...)
			for c, i := range act {
				next[i] = clamp(st.x[i]-delta.AtVec(c), f.lower[i], f.upper[i])
			}

			// Stage 3
			r, _, err := st.evaluate(next, false)
			if err != nil {
				if !residual.IsTransient(err) {
					return "", err
				}
				f.metrics.failed.Inc()
				log.Debug("trial rejected", "iteration", st.iterations, "lambda", lambda, "err", err)
				lambda *= 10
				continue
			}
			ssr := residual.SSR(r)
			if !(ssr < st.ssr) {
				lambda *= 10
				continue
			}
			r, jac, err := st.evaluate(next, true)
			if err != nil {
				if !residual.IsTransient(err) {
					return "", err
				}
				f.metrics.failed.Inc()
				lambda *= 10
				continue
			}
			accepted = true
			lambda = math.Max(lambda/10, 1e-12)

			step := distance(st.x, next)
			drop := st.ssr - ssr
			prev := st.ssr
			st.x, st.r, st.jac, st.ssr = next, r, jac, ssr
			log.Debug("iteration", "iteration", st.iterations, "ssr", ssr, "lambda", lambda, "step", step)

			if ssr == 0 || drop <= f.opts.Tolerance*prev {
				return StopTolerance, nil
			}
			if step <= f.opts.Tolerance*(norm(st.x)+f.opts.Tolerance) {
				return StopStep, nil
			}
		}
	}

	return StopIterations, nil
}

// active returns the free-flux indices the next step may move: not pinned
// by equal bounds and not held at a bound the descent direction −grad
// points past.
func (f *Fitter) active(x []float64, grad *mat.VecDense) []int {
	var act []int
	for i := range x {
		switch gi := grad.AtVec(i); {
		case f.lower[i] == f.upper[i]:
		case x[i] <= f.lower[i] && gi > 0:
		case x[i] >= f.upper[i] && gi < 0:
		default:
			act = append(act, i)
		}
	}

	return act
}

func clamp(v, lo, hi float64) float64 { return math.Min(math.Max(v, lo), hi) }

func norm(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v * v
	}

	return math.Sqrt(s)
}

func distance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}

	return math.Sqrt(s)
}

// String renders a solution line for logs and the CLI.
func (s Solution) String() string {
	if s.Stop == StopFailed {
		return fmt.Sprintf("restart %d: failed: %v", s.Restart, s.Err)
	}

	return fmt.Sprintf("restart %d: ssr %.6g after %d iterations (%s)", s.Restart, s.SSR, s.Iterations, s.Stop)
}
