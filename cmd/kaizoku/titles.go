package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/titles"
	"github.com/vmunix/kaizoku/pkg/interval"
)

// titleView is the JSON shape of a title.
type titleView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Source    string  `json:"source"`
	Interval  string  `json:"interval"`
	Directory string  `json:"directory"`
	URL       *string `json:"url,omitempty"`
	Chapters  *int    `json:"chapters,omitempty"`
	OutOfSync *int    `json:"out_of_sync,omitempty"`
}

func viewTitle(t *library.Title) titleView {
	return titleView{
		ID:        t.ID,
		Name:      t.Name,
		Source:    t.Source,
		Interval:  t.Interval.String(),
		Directory: t.Dir(),
		URL:       t.URL,
	}
}

func newTitlesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "titles",
		Aliases: []string{"title"},
		Short:   "Manage tracked titles",
	}
	cmd.AddCommand(
		newTitlesAddCmd(opts),
		newTitlesListCmd(opts),
		newTitlesShowCmd(opts),
		newTitlesUpdateCmd(opts),
		newTitlesRemoveCmd(opts),
		newTitlesMetadataCmd(opts),
	)
	return cmd
}

func newTitlesAddCmd(opts *rootOptions) *cobra.Command {
	var (
		src, every, url, root, anilistID string
		noCheck                          bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Track a new title",
		Long: `Track a new title. The name must match the manga's name on the source
exactly. --interval takes a cron pattern (e.g. "0 */6 * * *", "@daily") or
"never".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := interval.Parse(every)
			if err != nil {
				return err
			}
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			req := titles.AddRequest{
				Name:        args[0],
				Source:      src,
				Interval:    iv,
				LibraryRoot: root,
				AnilistID:   anilistID,
				RunNow:      !noCheck,
			}
			if url != "" {
				req.URL = &url
			}
			title, err := app.Titles.Add(cmd.Context(), req)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), viewTitle(title))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (id %d) from %s, checked %s\n",
				title.Name, title.ID, title.Source, describeInterval(title.Interval))
			return nil
		},
	}
	cmd.Flags().StringVarP(&src, "source", "s", "", "Source name as listed by 'kaizoku sources' (required)")
	cmd.Flags().StringVarP(&every, "interval", "i", "0 0 * * *", "Check schedule: cron pattern or \"never\"")
	cmd.Flags().StringVar(&url, "url", "", "Reference URL included in notifications")
	cmd.Flags().StringVar(&root, "root", "", "Library root (default: library.root)")
	cmd.Flags().StringVar(&anilistID, "anilist-id", "", "AniList id to take metadata from")
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "Do not queue an immediate check")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newTitlesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked titles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			all, err := app.Store.ListTitles()
			if err != nil {
				return err
			}
			flagged, err := app.Store.CountOutOfSync()
			if err != nil {
				return err
			}

			views := make([]titleView, 0, len(all))
			for _, t := range all {
				v := viewTitle(t)
				n := flagged[t.ID]
				v.OutOfSync = &n
				views = append(views, v)
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), views)
			}
			printTitles(cmd.OutOrStdout(), views)
			return nil
		},
	}
}

func printTitles(w io.Writer, views []titleView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No titles")
		return
	}
	fmt.Fprintf(w, "Titles (%d):\n\n", len(views))
	fmt.Fprintf(w, "  %-4s %-36s %-14s %-16s %s\n", "ID", "NAME", "SOURCE", "INTERVAL", "OUT OF SYNC")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 82))
	for _, v := range views {
		oos := 0
		if v.OutOfSync != nil {
			oos = *v.OutOfSync
		}
		fmt.Fprintf(w, "  %-4d %-36s %-14s %-16s %d\n", v.ID, truncate(v.Name, 36), truncate(v.Source, 14),
			truncate(v.Interval, 16), oos)
	}
}

func newTitlesShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a title and its chapters",
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
			chapters, err := app.Store.ListChapters(title.ID)
			if err != nil {
				return err
			}
			flagged, err := app.Store.ListOutOfSync(title.ID)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				v := viewTitle(title)
				n, f := len(chapters), len(flagged)
				v.Chapters, v.OutOfSync = &n, &f
				return printJSON(cmd.OutOrStdout(), v)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (id %d)\n", title.Name, title.ID)
			fmt.Fprintf(w, "  Source:     %s\n", title.Source)
			fmt.Fprintf(w, "  Interval:   %s\n", describeInterval(title.Interval))
			fmt.Fprintf(w, "  Directory:  %s\n", title.Dir())
			if title.URL != nil {
				fmt.Fprintf(w, "  URL:        %s\n", *title.URL)
			}
			fmt.Fprintf(w, "  Added:      %s\n", formatTimeAgo(title.AddedAt))

			stale := make(map[int64]bool, len(flagged))
			for _, c := range flagged {
				stale[c.ID] = true
			}
			fmt.Fprintf(w, "\nChapters (%d, %d out of sync):\n", len(chapters), len(flagged))
			for _, c := range chapters {
				mark := " "
				if stale[c.ID] {
					mark = "!"
				}
				fmt.Fprintf(w, "  %s %5d  %-56s %s\n", mark, c.Index+1, truncate(c.FileName, 56), formatSize(c.SizeBytes))
			}
			return nil
		},
	}
}

func newTitlesUpdateCmd(opts *rootOptions) *cobra.Command {
	var (
		src, every, url, anilistID string
		check                      bool
	)
	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Change a title's source, interval, URL or metadata entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req titles.UpdateRequest
			if cmd.Flags().Changed("source") {
				req.Source = &src
			}
			if cmd.Flags().Changed("interval") {
				iv, err := interval.Parse(every)
				if err != nil {
					return err
				}
				req.Interval = &iv
			}
			if cmd.Flags().Changed("url") {
				req.URL = &url
			}
			if cmd.Flags().Changed("anilist-id") {
				req.AnilistID = &anilistID
			}
			req.RunNow = check

			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			title, err := resolveTitle(app.Store, args[0])
			if err != nil {
				return err
			}
			title, err = app.Titles.Update(cmd.Context(), title.ID, req)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), viewTitle(title))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %q: %s, checked %s\n",
				title.Name, title.Source, describeInterval(title.Interval))
			return nil
		},
	}
	cmd.Flags().StringVarP(&src, "source", "s", "", "New source")
	cmd.Flags().StringVarP(&every, "interval", "i", "", "New check schedule: cron pattern or \"never\"")
	cmd.Flags().StringVar(&url, "url", "", "New reference URL (empty clears it)")
	cmd.Flags().StringVar(&anilistID, "anilist-id", "", "Rebind to this AniList id and rewrite metadata")
	cmd.Flags().BoolVar(&check, "check", false, "Queue an immediate check")
	return cmd
}

func newTitlesRemoveCmd(opts *rootOptions) *cobra.Command {
	var deleteFiles bool
	cmd := &cobra.Command{
		Use:     "remove <id|name>",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a title",
		Long: `Stop tracking a title. Its chapters, schedule and pending work are removed.
Files stay on disk unless --delete-files is given.`,
		Args: cobra.ExactArgs(1),
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
			if err := app.Titles.Remove(cmd.Context(), title.ID, titles.RemoveOptions{DeleteFiles: deleteFiles}); err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"removed": title.ID, "files_deleted": deleteFiles})
			}
			msg := fmt.Sprintf("Removed %q", title.Name)
			if deleteFiles {
				msg += " and deleted " + title.Dir()
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "Also delete the title directory")
	return cmd
}

func newTitlesMetadataCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <id|name>",
		Short: "Rewrite a title's archive metadata",
		Long: `Queue a rewrite of the metadata embedded in a title's archives. The daemon
runs it and then asks configured library servers to refresh the series.`,
		Args: cobra.ExactArgs(1),
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
			added, err := app.Titles.RefreshMetadata(cmd.Context(), title.ID)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"title_id": title.ID, "queued": added})
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Metadata update queued for %q\n", title.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Metadata update for %q already queued\n", title.Name)
			}
			return nil
		},
	}
}

func describeInterval(iv interval.Interval) string {
	if iv.IsNever() {
		return "never"
	}
	return "on " + iv.Pattern()
}
