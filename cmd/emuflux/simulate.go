package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/emuflux/model"
	"github.com/katalvlaran/emuflux/residual"
)

func newSimulateCmd(g *globals) *cobra.Command {
	var assignments []string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate the measured MIDs at given free fluxes",
		Long: "Simulate the measured MIDs at the given free fluxes. Free fluxes\n" +
			"not set with --flux take the midpoint of their bounds.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := g.problem(cmd)
			if err != nil {
				return err
			}
			free, err := freeFluxes(p, assignments)
			if err != nil {
				return err
			}
			a, err := p.Adapter()
			if err != nil {
				return err
			}
			mids, err := a.Simulate(free)
			if err != nil {
				return err
			}
			r, err := a.Residuals(mids)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UNIT\tM+\tSIMULATED\tMEASURED\tRESIDUAL")
			i := 0
			for slot, m := range a.Measurements() {
				for k := range m.MID {
					fmt.Fprintf(w, "%s\t%d\t%.6f\t%.6f\t%.4f\n", m.Unit, k, mids[slot][k], m.MID[k], r[i])
					i++
				}
			}
			if err = w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SSR %.6g\n", residual.SSR(r))

			return nil
		},
	}
	cmd.Flags().StringArrayVar(&assignments, "flux", nil, "free flux value as name=value (repeatable)")

	return cmd
}

// freeFluxes applies name=value assignments over the bound midpoints.
func freeFluxes(p *model.Problem, assignments []string) ([]float64, error) {
	free := make([]float64, len(p.FreeNames))
	index := make(map[string]int, len(p.FreeNames))
	for i, name := range p.FreeNames {
		free[i] = (p.Lower[i] + p.Upper[i]) / 2
		index[name] = i
	}
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("--flux %q: want name=value", a)
		}
		i, known := index[strings.TrimSpace(name)]
		if !known {
			return nil, fmt.Errorf("--flux %q: %q is not a free flux (%s)", a, name, strings.Join(p.FreeNames, ", "))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("--flux %q: %w", a, err)
		}
		free[i] = v
	}

	return free, nil
}
