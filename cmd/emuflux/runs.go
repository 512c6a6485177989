package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/emuflux/store"
)

func newRunsCmd() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored fit runs, or the solutions of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := store.Open(ctx, db)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if len(args) == 0 {
				runs, err := s.Runs(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tMODEL\tSTARTED\tRESTARTS\tFREE")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Model,
						r.StartedAt.Local().Format(time.DateTime), r.Restarts, strings.Join(r.FreeNames, ","))
				}
				return w.Flush()
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("run id: %w", err)
			}
			sols, err := s.Solutions(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "RESTART\tSSR\tITERATIONS\tSTOP\tFREE")
			for _, sol := range sols {
				ssr := "-"
				if sol.SSR.Valid {
					ssr = fmt.Sprintf("%.6g", sol.SSR.Float64)
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%v\n", sol.Restart, ssr, sol.Iterations, sol.Stop, sol.Free)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&db, "db", "emuflux.db", "SQLite database")

	return cmd
}
