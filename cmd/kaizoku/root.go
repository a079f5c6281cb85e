package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/kaizoku/internal/config"
	"github.com/vmunix/kaizoku/internal/database"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/logging"
	"github.com/vmunix/kaizoku/internal/server"
	"github.com/vmunix/kaizoku/internal/source"
)

var version = "dev"

// rootOptions carries the persistent flags to every subcommand.
type rootOptions struct {
	configPath string
	jsonOutput bool

	// provider replaces the mangal CLI in tests.
	provider source.Provider
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kaizoku",
		Short: "Manage a manga library kept in sync with its sources",
		Long: `kaizoku - manage a manga library kept in sync with its sources

Titles are checked on their schedule, missing chapters are downloaded and
chapters that no longer match the source are flagged for a fix.

Commands write to the database and queue work; run 'kaizokud' to execute it.`,
		SilenceUsage: true,
		Version:      version,
	}
	cmd.SetVersionTemplate("kaizoku {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: discovered)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(
		newTitlesCmd(opts),
		newCheckCmd(opts),
		newOutOfSyncCmd(opts),
		newQueueCmd(opts),
		newHistoryCmd(opts),
		newEventsCmd(opts),
		newSourcesCmd(opts),
		newSearchCmd(opts),
		newConfigCmd(opts),
		newCompletionCmd(),
	)
	return cmd
}

// openApp loads the config and wires the engine over its database.
func (o *rootOptions) openApp() (*server.App, func(), error) {
	path := o.configPath
	if path == "" {
		p, err := config.Discover()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	db, err := database.Open(cfg.Database.Path, database.Options{})
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}

	// The CLI only reports problems; progress goes to the command output.
	logger := logging.New(os.Stderr, "warn", cfg.Server.LogFormat)
	app := server.NewApp(db, cfg, o.provider, logger)
	return app, func() {
		_ = app.Close()
		_ = db.Close()
	}, nil
}

// resolveTitle accepts a numeric id or an exact title name.
func resolveTitle(store *library.Store, arg string) (*library.Title, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return store.GetTitle(id)
	}
	return store.GetTitleByName(arg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
