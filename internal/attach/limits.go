package attach

import (
	"attachr/internal/api"
	"attachr/internal/models"
)

const (
	DefaultFileSizeLimitMB = 2
	DefaultBatchCountLimit = 5
	DefaultTotalCountLimit = 10
)

// Limits are the resolved upload limits of one uploader.
type Limits struct {
	FileSizeLimitMB int
	BatchCountLimit int
	TotalCountLimit int
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		FileSizeLimitMB: DefaultFileSizeLimitMB,
		BatchCountLimit: DefaultBatchCountLimit,
		TotalCountLimit: DefaultTotalCountLimit,
	}
}

// Normalize replaces every non-positive field with its default.
func (l Limits) Normalize() Limits {
	if l.FileSizeLimitMB <= 0 {
		l.FileSizeLimitMB = DefaultFileSizeLimitMB
	}
	if l.BatchCountLimit <= 0 {
		l.BatchCountLimit = DefaultBatchCountLimit
	}
	if l.TotalCountLimit <= 0 {
		l.TotalCountLimit = DefaultTotalCountLimit
	}
	return l
}

// ResolveLimits merges the remote configuration over fallback. Absent or
// non-positive remote values keep the fallback, which is itself normalized.
func ResolveLimits(remote *api.UploadConfigResponse, fallback Limits) Limits {
	out := fallback.Normalize()
	if remote == nil {
		return out
	}
	if v := int(remote.AttachmentImageFileSizeLimit); v > 0 {
		out.FileSizeLimitMB = v
	}
	if v := int(remote.ImageFileBatchLimit); v > 0 {
		out.BatchCountLimit = v
	}
	if v := int(remote.SingleChunkAttachmentLimit); v > 0 {
		out.TotalCountLimit = v
	}
	return out
}

// Settings is the feature configuration of one attachment area.
type Settings struct {
	Enabled         bool
	TransferMethods []models.TransferMethod
	// SingleFile caps every pick, drop or paste at one file.
	SingleFile bool
}

func (s Settings) allows(method models.TransferMethod) bool {
	for _, m := range s.TransferMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Policy selects behavior that differs between attachment areas.
type Policy struct {
	SupportsRAG        bool
	SoftDeleteOnRemove bool
}
