package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/emuflux/fit"
	"github.com/katalvlaran/emuflux/model"
	"github.com/katalvlaran/emuflux/store"
)

// fitFlags override the model's settings block when set.
type fitFlags struct {
	restarts    int
	workers     int
	iterations  int
	seed        int64
	fd          bool
	db          string
	metricsAddr string
}

func newFitCmd(g *globals) *cobra.Command {
	ff := &fitFlags{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the free fluxes to the measured MIDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, log, err := g.problem(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			if ff.metricsAddr != "" {
				srv := &http.Server{
					Addr:              ff.metricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("metrics server", "err", err)
					}
				}()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
				log.Info("serving metrics", "addr", ff.metricsAddr)
			}

			a, err := p.Adapter()
			if err != nil {
				return err
			}
			fitter, err := fit.New(a, p.Lower, p.Upper, ff.options(cmd, p, reg, log)...)
			if err != nil {
				return err
			}
			started := time.Now()
			sols, err := fitter.Run(ctx)
			if err != nil {
				return err
			}
			log.Info("fit finished", "restarts", len(sols), "elapsed", time.Since(started))
			printSolutions(cmd, p.FreeNames, sols)

			if ff.db == "" {
				return nil
			}
			s, err := store.Open(ctx, ff.db)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			id, err := s.SaveRun(ctx, store.Run{
				Model:     p.Name,
				StartedAt: started,
				Restarts:  len(sols),
				FreeNames: p.FreeNames,
			}, sols)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored run %s in %s\n", id, ff.db)

			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&ff.restarts, "restarts", 0, "number of start points (default from model settings)")
	f.IntVar(&ff.workers, "workers", 0, "restarts run concurrently (default GOMAXPROCS or model settings)")
	f.IntVar(&ff.iterations, "iterations", 0, "LM iterations per restart (default from model settings)")
	f.Int64Var(&ff.seed, "seed", 0, "start point seed (default from model settings)")
	f.BoolVar(&ff.fd, "finite-difference", false, "use a forward-difference Jacobian")
	f.StringVar(&ff.db, "db", "", "SQLite database to store the run in")
	f.StringVar(&ff.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while fitting")

	return cmd
}

// options merges model settings with the flags that were set.
func (ff *fitFlags) options(cmd *cobra.Command, p *model.Problem, reg prometheus.Registerer, log *slog.Logger) []fit.Option {
	st := p.Settings
	opts := []fit.Option{
		fit.WithRestarts(st.Restarts),
		fit.WithIterations(st.Iterations),
		fit.WithTolerance(st.Tolerance),
		fit.WithSeed(uint64(st.Seed)),
		fit.WithAnalyticJacobian(*st.AnalyticJacobian),
		fit.WithRegisterer(reg),
		fit.WithLogger(log),
	}
	if st.Workers > 0 {
		opts = append(opts, fit.WithWorkers(st.Workers))
	}
	flags := cmd.Flags()
	if flags.Changed("restarts") {
		opts = append(opts, fit.WithRestarts(ff.restarts))
	}
	if flags.Changed("workers") {
		opts = append(opts, fit.WithWorkers(ff.workers))
	}
	if flags.Changed("iterations") {
		opts = append(opts, fit.WithIterations(ff.iterations))
	}
	if flags.Changed("seed") {
		opts = append(opts, fit.WithSeed(uint64(ff.seed)))
	}
	if ff.fd {
		opts = append(opts, fit.WithAnalyticJacobian(false))
	}

	return opts
}

// printSolutions lists the restarts by ascending SSR.
func printSolutions(cmd *cobra.Command, names []string, sols []fit.Solution) {
	sorted := append([]fit.Solution(nil), sols...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SSR < sorted[j].SSR })
	out := cmd.OutOrStdout()
	for _, s := range sorted {
		fmt.Fprintln(out, s)
		if s.Stop == fit.StopFailed {
			continue
		}
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s=%.6g", n, s.Free[i])
		}
		fmt.Fprintf(out, "  %s\n", strings.Join(parts, " "))
	}
}
