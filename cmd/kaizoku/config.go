package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/kaizoku/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an example configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:     "validate [path]",
		Aliases: []string{"test"},
		Short:   "Validate a configuration file",
		Long:    "Validates config.toml syntax, required fields, and environment variable substitution without starting the daemon.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				p, err := config.Discover()
				if err != nil {
					return err
				}
				path = p
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Validating %s...\n\n", path)

			cfg, err := config.Load(path)
			if err != nil {
				var configErr *config.ConfigError
				if errors.As(err, &configErr) {
					printConfigErrors(w, configErr)
					return errors.New("configuration invalid")
				}
				return fmt.Errorf("failed to load config: %w", err)
			}

			printConfigSummary(w, cfg)
			fmt.Fprintln(w, "\nConfiguration valid!")
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Database:      %s\n", cfg.Database.Path)
	watch := ""
	if cfg.Library.Watch {
		watch = " (watched)"
	}
	fmt.Fprintf(w, "  Library:       %s%s\n", cfg.Library.Root, watch)
	fmt.Fprintf(w, "  Mangal:        %s\n", cfg.Mangal.Binary)

	var notifiers []string
	if cfg.Notifications.Telegram != nil {
		notifiers = append(notifiers, "telegram")
	}
	if cfg.Notifications.Webhook != nil {
		notifiers = append(notifiers, "webhook")
	}
	if len(notifiers) > 0 {
		fmt.Fprintf(w, "  Notifications: %s\n", strings.Join(notifiers, ", "))
	}

	var integrations []string
	if cfg.Integrations.Komga != nil {
		integrations = append(integrations, "komga")
	}
	if cfg.Integrations.Kavita != nil {
		integrations = append(integrations, "kavita")
	}
	if len(integrations) > 0 {
		fmt.Fprintf(w, "  Integrations:  %s\n", strings.Join(integrations, ", "))
	}
}
