package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/kaizoku/internal/source"
)

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the sources the download tool can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			sources, err := app.Source.Sources(cmd.Context())
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), sources)
			}
			w := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintln(w, "No sources installed")
				return nil
			}
			for _, s := range sources {
				fmt.Fprintln(w, s)
			}
			return nil
		},
	}
}

// mangaView is the JSON shape of a search result.
type mangaView struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <source> <query>",
		Short: "Search a source for manga to track",
		Long: `Search a source for manga. Use the exact name printed here with
'kaizoku titles add'.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			installed, err := app.Source.Sources(cmd.Context())
			if err != nil {
				return err
			}
			if !source.Contains(installed, args[0]) {
				if hint, ok := source.Suggest(args[0], installed); ok {
					return fmt.Errorf("unknown source %q (did you mean %q?)", args[0], hint)
				}
				return fmt.Errorf("unknown source %q", args[0])
			}

			results, err := app.Source.Search(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			views := make([]mangaView, 0, len(results))
			for _, m := range results {
				views = append(views, mangaView{Source: m.Source, Name: m.Name, URL: m.URL})
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), views)
			}
			w := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintf(w, "No results for %q on %s\n", args[1], args[0])
				return nil
			}
			for _, v := range views {
				fmt.Fprintf(w, "  %-48s %s\n", truncate(v.Name, 48), v.URL)
			}
			return nil
		},
	}
}
