package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently downloaded chapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := app.Store.RecentChapters(limit)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				type item struct {
					Title     string `json:"title"`
					Index     int    `json:"index"`
					FileName  string `json:"file_name"`
					SizeBytes int64  `json:"size_bytes"`
					CreatedAt string `json:"created_at"`
				}
				items := make([]item, 0, len(entries))
				for _, e := range entries {
					items = append(items, item{
						Title:     e.TitleName,
						Index:     e.Index,
						FileName:  e.FileName,
						SizeBytes: e.SizeBytes,
						CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
					})
				}
				return printJSON(cmd.OutOrStdout(), items)
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No chapters yet")
				return nil
			}
			fmt.Fprintf(w, "Recent Chapters (%d):\n\n", len(entries))
			fmt.Fprintf(w, "  %-14s %-28s %6s  %s\n", "WHEN", "TITLE", "CH", "FILE")
			fmt.Fprintln(w, "  "+strings.Repeat("-", 90))
			for _, e := range entries {
				fmt.Fprintf(w, "  %-14s %-28s %6d  %s\n", formatTimeAgo(e.CreatedAt), truncate(e.TitleName, 28),
					e.Index+1, truncate(e.FileName, 40))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of chapters to show")
	return cmd
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		eventType string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			evts, err := app.EventLog.Recent(cmd.Context(), eventType, limit)
			if err != nil {
				return fmt.Errorf("failed to fetch events: %w", err)
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), evts)
			}

			w := cmd.OutOrStdout()
			if len(evts) == 0 {
				fmt.Fprintln(w, "No events")
				return nil
			}

			fmt.Fprintf(w, "Recent Events (%d):\n\n", len(evts))
			fmt.Fprintf(w, "  %-14s %-24s %-15s\n", "TIME", "TYPE", "ENTITY")
			fmt.Fprintln(w, "  "+strings.Repeat("-", 55))
			for _, e := range evts {
				entity := fmt.Sprintf("%s/%d", e.EntityType, e.EntityID)
				fmt.Fprintf(w, "  %-14s %-24s %-15s\n", formatTimeAgo(e.OccurredAt), e.EventType, entity)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "Only show events of this type (e.g. chapter.downloaded)")
	return cmd
}
