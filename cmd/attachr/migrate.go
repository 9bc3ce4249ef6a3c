package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"attachr/internal/config"
	"attachr/internal/ledger"
)

func newMigrateCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending ledger migrations and show the schema version",
		Args:  noArgs("migrate"),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ledger.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			status, err := st.SchemaStatus()
			if err != nil {
				return err
			}
			if flags.structured() {
				return writeStructured(status)
			}
			if err := writePlain("Current version: %d\n", status.CurrentVersion); err != nil {
				return err
			}
			return writePlain("Available version: %d\n", status.AvailableVersion)
		},
	}
}
