package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the invocation provenance journal",
	}

	cmd.AddCommand(newJournalRecentCommand())
	return cmd
}

func newJournalRecentCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent external program invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			if env.journal == nil {
				return fmt.Errorf("journal is not enabled; set journal.enabled in the config file")
			}

			entries, err := env.journal.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recorded invocations")
				return nil
			}

			for _, e := range entries {
				status := "ok"
				if e.Error != "" {
					status = "failed: " + e.Error
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s  (%dms, exit %d) %s\n",
					e.StartedAt.Format("2006-01-02 15:04:05"),
					e.Program,
					strings.Join(e.Args, " "),
					e.DurationMS,
					e.ExitCode,
					status,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries to show")
	return cmd
}
