package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"attachr/internal/api"
	"attachr/internal/config"
	"attachr/internal/indexing"
	"attachr/internal/models"
)

func newIndexCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create a dataset from an area's uploads and wait for indexing",
		Args:  noArgs("index"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, cfg, flags.area, sessionOptions{}, cmd, func(s *session) error {
				if status {
					datasets, err := s.ledger.ListDatasets(ctx, s.area)
					if err != nil {
						return err
					}
					if flags.structured() {
						return writeStructured(datasets)
					}
					for _, ds := range datasets {
						if err := writePlain("%s [%s] %d/%d segments\n", ds.ID, ds.Status, ds.CompletedSegments, ds.TotalSegments); err != nil {
							return err
						}
					}
					return nil
				}
				return runIndexing(ctx, s, flags, s.uploader.Records())
			})
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show stored indexing results instead of starting a new dataset")
	return cmd
}

// runIndexing is the RAG flow layered on top of finished uploads.
func runIndexing(ctx context.Context, s *session, flags *globalFlags, records []models.Attachment) error {
	if !s.uploader.Policy().SupportsRAG {
		return fmt.Errorf("indexing is disabled for this area; enable it with: attachr config set upload.rag true")
	}
	ids := indexing.UploadedIDs(records)
	if len(ids) == 0 {
		return fmt.Errorf("no uploaded files to index")
	}

	w := &indexing.Watcher{
		Client: s.client,
		Logger: s.logger,
		OnStatus: func(st api.IndexingStatusResponse) {
			s.logger.Info("indexing", "status", st.Status, "completed", st.CompletedSegments, "total", st.TotalSegments)
		},
	}
	res, err := w.Run(ctx, ids)
	if res.DatasetID != "" {
		if saveErr := s.ledger.SaveDataset(context.WithoutCancel(ctx), s.area, res); saveErr != nil {
			s.logger.Warn("save dataset", "dataset_id", res.DatasetID, "error", saveErr)
		}
	}
	if err != nil {
		return err
	}

	if flags.structured() {
		return writeStructured(res)
	}
	return writePlain("dataset %s %s (%d/%d segments)\n", res.DatasetID, res.Status, res.CompletedSegments, res.TotalSegments)
}
