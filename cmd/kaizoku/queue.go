package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/kaizoku/internal/queue"
)

func newQueueCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the work queues",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show job counts per queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			counts := make(map[string]queue.Counts)
			names := make([]string, 0, len(app.Queues.All()))
			for _, q := range app.Queues.All() {
				c, err := q.Counts(cmd.Context())
				if err != nil {
					return err
				}
				counts[q.Name()] = c
				names = append(names, q.Name())
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), counts)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "  %-12s %8s %8s %8s %8s %10s\n", "QUEUE", "ACTIVE", "WAITING", "DELAYED", "FAILED", "COMPLETED")
			fmt.Fprintln(w, "  "+strings.Repeat("-", 60))
			for _, name := range names {
				c := counts[name]
				label := name
				if c.Paused {
					label += " (paused)"
				}
				fmt.Fprintf(w, "  %-12s %8d %8d %8d %8d %10d\n", label, c.Active, c.Waiting, c.Delayed, c.Failed, c.Completed)
			}
			return nil
		},
	}

	var state string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list <queue>",
		Short: "List jobs in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			var q *queue.Queue
			for _, candidate := range app.Queues.All() {
				if candidate.Name() == args[0] {
					q = candidate
				}
			}
			if q == nil {
				return fmt.Errorf("unknown queue %q", args[0])
			}

			jobs, err := q.List(cmd.Context(), queue.State(state), limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), jobs)
			}

			w := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(w, "No jobs")
				return nil
			}
			fmt.Fprintf(w, "  %-40s %-10s %-9s %s\n", "KEY", "STATE", "ATTEMPTS", "LAST ERROR")
			fmt.Fprintln(w, "  "+strings.Repeat("-", 80))
			for _, j := range jobs {
				fmt.Fprintf(w, "  %-40s %-10s %3d/%-5d %s\n", truncate(j.Key, 40), j.State, j.Attempts, j.MaxAttempts,
					truncate(j.LastError, 40))
			}
			return nil
		},
	}
	listCmd.Flags().StringVarP(&state, "state", "s", "", "Filter by state (waiting, active, completed, failed)")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of jobs to show")

	cmd.AddCommand(statusCmd, listCmd)
	return cmd
}
