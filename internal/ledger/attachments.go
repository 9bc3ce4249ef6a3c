package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"attachr/internal/models"
)

const attachmentColumns = "id, name, size, extension, mime_type, progress, transfer_method, uploaded_id, source_url, relative_path, image_width, image_height, origin, deleted"

// DefaultArea is used when a caller does not name an area.
const DefaultArea = "default"

// Save replaces the stored snapshot for area with records, keeping order.
// Preview data URLs are not persisted; they are cheap to rebuild and large.
func (s *Store) Save(ctx context.Context, area string, records []models.Attachment) (err error) {
	area = normalizeArea(area)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM attachments WHERE area = ?", area); err != nil {
		return fmt.Errorf("clear area %s: %w", area, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO attachments (area, position, `+attachmentColumns+`, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err = stmt.ExecContext(ctx,
			area, i,
			rec.ID, rec.Name, rec.Size,
			nullString(rec.Extension), nullString(rec.MimeType),
			rec.Progress, string(rec.TransferMethod),
			nullString(rec.UploadedID), nullString(rec.SourceURL), nullString(rec.RelativePath),
			rec.ImageWidth, rec.ImageHeight,
			nullString(rec.Origin), boolToInt(rec.Deleted),
			now,
		); err != nil {
			return fmt.Errorf("save attachment %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored snapshot for area, including soft-deleted records.
func (s *Store) Load(ctx context.Context, area string) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE area = ? ORDER BY position ASC`, normalizeArea(area))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.Attachment{}
	for rows.Next() {
		rec, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Areas lists every area that has stored records.
func (s *Store) Areas(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT area FROM attachments ORDER BY area ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := []string{}
	for rows.Next() {
		var area string
		if err := rows.Scan(&area); err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

// Origins returns the origins of every stored record across all areas.
func (s *Store) Origins(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT origin FROM attachments WHERE origin IS NOT NULL AND origin != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var origins []string
	for rows.Next() {
		var origin string
		if err := rows.Scan(&origin); err != nil {
			return nil, err
		}
		origins = append(origins, origin)
	}
	return origins, rows.Err()
}

// Persister returns an onChange callback that saves every snapshot of area.
// Failures are logged; the uploader has no way to act on them.
func (s *Store) Persister(ctx context.Context, area string, logger *slog.Logger) func([]models.Attachment) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(records []models.Attachment) {
		if err := s.Save(ctx, area, records); err != nil {
			logger.Error("persist attachments", "area", area, "error", err)
		}
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttachment(row rowScanner) (models.Attachment, error) {
	var (
		rec                                                         models.Attachment
		extension, mimeType, uploadedID, sourceURL, relPath, origin sql.NullString
		method                                                      string
		deleted                                                     int
	)
	if err := row.Scan(
		&rec.ID, &rec.Name, &rec.Size,
		&extension, &mimeType,
		&rec.Progress, &method,
		&uploadedID, &sourceURL, &relPath,
		&rec.ImageWidth, &rec.ImageHeight,
		&origin, &deleted,
	); err != nil {
		return models.Attachment{}, err
	}
	rec.Extension = extension.String
	rec.MimeType = mimeType.String
	rec.TransferMethod = models.TransferMethod(method)
	rec.UploadedID = uploadedID.String
	rec.SourceURL = sourceURL.String
	rec.RelativePath = relPath.String
	rec.Origin = origin.String
	rec.Deleted = deleted != 0
	return rec, nil
}

func normalizeArea(area string) string {
	area = strings.TrimSpace(area)
	if area == "" {
		return DefaultArea
	}
	return area
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
