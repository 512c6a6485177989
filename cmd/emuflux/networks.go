package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNetworksCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "Print the EMU networks of the model in solve order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := g.problem(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, n := range p.Networks {
				fmt.Fprintf(out, "network %d: size %d, %d reactions, %d unknowns\n",
					i, n.Size(), len(n), len(p.Model.Networks[i].Unknown))
				for _, r := range n {
					fmt.Fprintf(out, "  %s\n", r)
				}
			}
			fmt.Fprintf(out, "inputs:")
			for _, in := range p.Inputs {
				fmt.Fprintf(out, " %s", in.Unit)
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}
