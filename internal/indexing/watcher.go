// Package indexing turns a finished batch of uploads into a dataset and
// follows its indexing until the backend reports a final state.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"attachr/internal/api"
	"attachr/internal/models"
)

const (
	DefaultInterval    = time.Second
	DefaultMaxInterval = 10 * time.Second
	DefaultMaxAttempts = 30

	StatusCompleted = "completed"
	StatusError     = "error"
)

// ErrPollExhausted is returned when indexing is still running after the
// last allowed attempt.
var ErrPollExhausted = errors.New("indexing did not finish in time")

// Client is the part of the API client the watcher needs.
type Client interface {
	CreateDataset(ctx context.Context, fileIDs []string) (api.DatasetInitResponse, error)
	GetIndexingStatus(ctx context.Context, datasetID string) (api.IndexingStatusResponse, error)
}

// Result is the final indexing state of a dataset.
type Result struct {
	DatasetID         string `json:"dataset_id" yaml:"dataset_id"`
	Status            string `json:"status" yaml:"status"`
	Error             string `json:"error,omitempty" yaml:"error,omitempty"`
	CompletedSegments int    `json:"completed_segments" yaml:"completed_segments"`
	TotalSegments     int    `json:"total_segments" yaml:"total_segments"`
	Attempts          int    `json:"attempts" yaml:"attempts"`
}

// Watcher creates datasets and polls their indexing status.
type Watcher struct {
	Client      Client
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts int
	Logger      *slog.Logger
	// OnStatus, when set, sees every polled status.
	OnStatus func(api.IndexingStatusResponse)

	sleep func(ctx context.Context, d time.Duration) error
}

// UploadedIDs returns the backend ids of the usable records, in order.
func UploadedIDs(records []models.Attachment) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Deleted || rec.UploadedID == "" {
			continue
		}
		ids = append(ids, rec.UploadedID)
	}
	return ids
}

// Run creates a dataset from fileIDs and waits for its indexing to finish.
// Polling stops on a final status, after MaxAttempts, or when ctx is done.
func (w *Watcher) Run(ctx context.Context, fileIDs []string) (Result, error) {
	var res Result
	if w.Client == nil {
		return res, fmt.Errorf("indexing client is required")
	}
	if len(fileIDs) == 0 {
		return res, fmt.Errorf("no uploaded files to index")
	}

	ds, err := w.Client.CreateDataset(ctx, fileIDs)
	if err != nil {
		return res, fmt.Errorf("create dataset: %w", err)
	}
	if ds.DatasetID == "" {
		return res, fmt.Errorf("create dataset: response is missing dataset id")
	}
	res.DatasetID = ds.DatasetID
	w.logger().Debug("dataset created", "dataset_id", ds.DatasetID, "files", len(fileIDs))

	return w.Poll(ctx, ds.DatasetID)
}

// Poll waits for the indexing of an existing dataset.
func (w *Watcher) Poll(ctx context.Context, datasetID string) (Result, error) {
	res := Result{DatasetID: datasetID}
	interval := w.interval()
	maxAttempts := w.maxAttempts()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := w.Client.GetIndexingStatus(ctx, datasetID)
		if err != nil {
			return res, fmt.Errorf("indexing status: %w", err)
		}
		res.Attempts = attempt
		res.Status = status.Status
		res.Error = status.Error
		res.CompletedSegments = status.CompletedSegments
		res.TotalSegments = status.TotalSegments
		if w.OnStatus != nil {
			w.OnStatus(status)
		}
		w.logger().Debug("indexing status", "dataset_id", datasetID, "status", status.Status, "attempt", attempt)

		switch strings.ToLower(status.Status) {
		case StatusCompleted:
			return res, nil
		case StatusError:
			return res, fmt.Errorf("indexing failed: %s", status.Error)
		}

		if attempt == maxAttempts {
			break
		}
		if err := w.wait(ctx, interval); err != nil {
			return res, err
		}
		interval = min(interval*2, w.maxInterval())
	}
	return res, ErrPollExhausted
}

func (w *Watcher) wait(ctx context.Context, d time.Duration) error {
	if w.sleep != nil {
		return w.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Watcher) interval() time.Duration {
	if w.Interval <= 0 {
		return DefaultInterval
	}
	return w.Interval
}

func (w *Watcher) maxInterval() time.Duration {
	if w.MaxInterval <= 0 {
		return max(DefaultMaxInterval, w.interval())
	}
	return max(w.MaxInterval, w.interval())
}

func (w *Watcher) maxAttempts() int {
	if w.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return w.MaxAttempts
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
