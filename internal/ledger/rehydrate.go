package ledger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"attachr/internal/attach"
	"attachr/internal/blobstore"
	"attachr/internal/models"
)

// Rehydrate reattaches a raw file handle to every stored record whose origin
// can still be opened, so failed uploads from an earlier run are retryable.
// Records whose payload is gone are returned without a handle.
func Rehydrate(records []models.Attachment, spool blobstore.Spool, logger *slog.Logger) []models.Attachment {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]models.Attachment, len(records))
	for i, rec := range records {
		out[i] = rec
		if rec.Origin == "" || rec.TransferMethod == models.TransferRemoteURL {
			continue
		}
		file := openOrigin(rec, spool)
		if file == nil {
			logger.Debug("attachment source unavailable", "id", rec.ID, "origin", rec.Origin)
			continue
		}
		out[i].OriginalFile = file
	}
	return out
}

func openOrigin(rec models.Attachment, spool blobstore.Spool) models.RawFile {
	if key, ok := blobstore.KeyFromOrigin(rec.Origin); ok {
		if spool == nil {
			return nil
		}
		return attach.NewOpenerFile(rec.Name, rec.Size, rec.MimeType, rec.Origin, func() (io.ReadCloser, error) {
			return spool.Open(context.Background(), key)
		})
	}
	if !filepath.IsAbs(rec.Origin) {
		return nil
	}
	file, err := attach.NewLocalFile(rec.Origin)
	if err != nil {
		return nil
	}
	return file
}
