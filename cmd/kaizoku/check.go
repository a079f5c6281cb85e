package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <id|name>",
		Short: "Queue an immediate chapter check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			title, err := resolveTitle(app.Store, args[0])
			if err != nil {
				return err
			}
			added, err := app.Scheduler.RunNow(cmd.Context(), title)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"title_id": title.ID, "queued": added})
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Check queued for %q\n", title.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "A check for %q is already queued\n", title.Name)
			}
			return nil
		},
	}
}

func newOutOfSyncCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outofsync",
		Short: "Inspect and fix chapters that no longer match the source",
	}

	listCmd := &cobra.Command{
		Use:   "check <id|name>",
		Short: "List chapters flagged by the last check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			title, err := resolveTitle(app.Store, args[0])
			if err != nil {
				return err
			}
			flagged, err := app.Store.ListOutOfSync(title.ID)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				type item struct {
					Index    int    `json:"index"`
					FileName string `json:"file_name"`
				}
				items := make([]item, 0, len(flagged))
				for _, c := range flagged {
					items = append(items, item{Index: c.Index, FileName: c.FileName})
				}
				return printJSON(cmd.OutOrStdout(), items)
			}

			w := cmd.OutOrStdout()
			if len(flagged) == 0 {
				fmt.Fprintf(w, "%q has no out-of-sync chapters\n", title.Name)
				return nil
			}
			fmt.Fprintf(w, "%q has %d out-of-sync chapters:\n", title.Name, len(flagged))
			for _, c := range flagged {
				fmt.Fprintf(w, "  %5d  %s\n", c.Index+1, c.FileName)
			}
			fmt.Fprintf(w, "\nRun 'kaizoku outofsync fix %d' to replace them.\n", title.ID)
			return nil
		},
	}

	fixCmd := &cobra.Command{
		Use:   "fix <id|name>",
		Short: "Queue removal and re-download of out-of-sync chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			title, err := resolveTitle(app.Store, args[0])
			if err != nil {
				return err
			}
			added, err := app.Fixer.Request(cmd.Context(), title)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"title_id": title.ID, "queued": added})
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Fix queued for %q\n", title.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "A fix for %q is already queued\n", title.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, fixCmd)
	return cmd
}
