package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"attachr/internal/config"
	"attachr/internal/models"
)

func newRetryCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	opts := sessionOptions{}

	cmd := &cobra.Command{
		Use:   "retry <id>...",
		Short: "Retry failed uploads",
		Args:  attachmentIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, cfg, flags.area, opts, cmd, func(s *session) error {
				for _, id := range args {
					if !s.uploader.Retry(ctx, id) {
						return fmt.Errorf("attachment %s cannot be retried", id)
					}
				}
				s.uploader.Wait()

				byID := make(map[string]struct{}, len(args))
				for _, id := range args {
					byID[id] = struct{}{}
				}
				var retried []models.Attachment
				for _, rec := range s.uploader.Records() {
					if _, ok := byID[rec.ID]; ok {
						retried = append(retried, rec)
					}
				}
				if err := writeRecords(flags, retried); err != nil {
					return err
				}
				return uploadOutcome(retried, s.notes.total())
			})
		},
	}

	cmd.Flags().BoolVar(&opts.public, "public", false, "upload through the public API base")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "upload endpoint path or URL override")
	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write upload metrics to this file in Prometheus text format")
	return cmd
}

func newRemoveCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove attachments",
		Args:    attachmentIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, cfg, flags.area, sessionOptions{}, cmd, func(s *session) error {
				for _, id := range args {
					if !s.uploader.Remove(id) {
						return fmt.Errorf("attachment %s not found", id)
					}
				}
				s.pruneSpool(ctx)
				if flags.structured() {
					return writeStructured(map[string]any{"removed": args})
				}
				return writePlain("removed %d attachment(s)\n", len(args))
			})
		},
	}
}

func newClearCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every attachment of an area",
		Args:  noArgs("clear"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, cfg, flags.area, sessionOptions{}, cmd, func(s *session) error {
				n := len(s.uploader.Records())
				s.uploader.Clear()
				s.pruneSpool(ctx)
				if flags.structured() {
					return writeStructured(map[string]any{"area": s.area, "cleared": n})
				}
				return writePlain("cleared %d attachment(s) from %s\n", n, s.area)
			})
		},
	}
}
