package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"attachr/internal/config"
)

func newLinkCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	opts := sessionOptions{}

	cmd := &cobra.Command{
		Use:   "link <url>",
		Short: "Attach a remote file by URL",
		Args:  exactArgs(1, "url is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, cfg, flags.area, opts, cmd, func(s *session) error {
				before := s.uploader.Records()
				if id := s.uploader.LoadFromLink(ctx, args[0]); id == "" {
					return fmt.Errorf("link was not accepted")
				}
				added := s.settle(before)
				if len(added) == 0 {
					return fmt.Errorf("link could not be attached")
				}
				return writeRecords(flags, added)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.public, "public", false, "resolve through the public API base")
	return cmd
}
