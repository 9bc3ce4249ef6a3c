package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"attachr/internal/attach"
	"attachr/internal/config"
	"attachr/internal/ledger"
)

func newListCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var (
		deleted bool
		areas   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the attachments of an area",
		Args:  noArgs("list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ledger.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer st.Close()

			if areas {
				names, err := st.Areas(cmd.Context())
				if err != nil {
					return err
				}
				if flags.structured() {
					return writeStructured(names)
				}
				for _, name := range names {
					if err := writePlain("%s\n", name); err != nil {
						return err
					}
				}
				return nil
			}

			records, err := st.Load(cmd.Context(), flags.area)
			if err != nil {
				return err
			}
			if !deleted {
				records = attach.Visible(records)
			}
			return writeRecords(flags, records)
		},
	}

	cmd.Flags().BoolVar(&deleted, "deleted", false, "include soft-deleted attachments")
	cmd.Flags().BoolVar(&areas, "areas", false, "list area names instead of attachments")
	return cmd
}
