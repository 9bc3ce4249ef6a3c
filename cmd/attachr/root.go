package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"attachr/internal/config"
	"attachr/internal/format"
	"attachr/internal/ledger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	json     bool
	yaml     bool
	logLevel string
	area     string
}

func (g *globalFlags) structured() bool {
	return g.json || g.yaml
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "attachr",
		Short:         "Attach files, directories, pastes and links to an upload backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.json && flags.yaml {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}
			outputFormatter = format.JSONFormatter{}
			if flags.yaml {
				outputFormatter = format.YAMLFormatter{}
			}

			warning, err := configureLoggerForCLI(flags.logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&flags.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&flags.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.area, "area", ledger.DefaultArea, "attachment area to work on")

	cmd.AddCommand(
		newUploadCmd(cfg, flags),
		newLinkCmd(cfg, flags),
		newListCmd(cfg, flags),
		newRetryCmd(cfg, flags),
		newRemoveCmd(cfg, flags),
		newClearCmd(cfg, flags),
		newIndexCmd(cfg, flags),
		newMigrateCmd(cfg, flags),
		newPingCmd(cfg, flags),
		newConfigCmd(cfg, flags),
	)

	return cmd
}
