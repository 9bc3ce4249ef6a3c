package ledger

import (
	"context"
	"time"

	"attachr/internal/indexing"
)

// Dataset is the last known indexing state of a dataset created from an area.
type Dataset struct {
	ID                string    `json:"id" yaml:"id"`
	Area              string    `json:"area" yaml:"area"`
	Status            string    `json:"status" yaml:"status"`
	Error             string    `json:"error,omitempty" yaml:"error,omitempty"`
	CompletedSegments int       `json:"completed_segments" yaml:"completed_segments"`
	TotalSegments     int       `json:"total_segments" yaml:"total_segments"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// SaveDataset upserts the indexing result for area.
func (s *Store) SaveDataset(ctx context.Context, area string, res indexing.Result) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `INSERT INTO datasets (id, area, status, error, completed_segments, total_segments, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status = excluded.status,
  error = excluded.error,
  completed_segments = excluded.completed_segments,
  total_segments = excluded.total_segments,
  updated_at = excluded.updated_at`,
		res.DatasetID, normalizeArea(area), res.Status, nullString(res.Error),
		res.CompletedSegments, res.TotalSegments, now, now)
	return err
}

// ListDatasets returns the datasets of area, most recently updated first.
func (s *Store) ListDatasets(ctx context.Context, area string) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, area, status, COALESCE(error, ''), completed_segments, total_segments, updated_at
FROM datasets WHERE area = ? ORDER BY updated_at DESC`, normalizeArea(area))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := []Dataset{}
	for rows.Next() {
		var (
			ds      Dataset
			updated string
		)
		if err := rows.Scan(&ds.ID, &ds.Area, &ds.Status, &ds.Error, &ds.CompletedSegments, &ds.TotalSegments, &updated); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			ds.UpdatedAt = t
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}
