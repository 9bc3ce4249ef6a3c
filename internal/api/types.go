package api

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// FlexInt decodes a JSON number or numeric string. Anything else decodes to
// zero instead of failing the whole response.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	*n = 0
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.TrimSpace(s)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	if value > math.MaxInt32 {
		value = math.MaxInt32
	}
	if value < math.MinInt32 {
		value = math.MinInt32
	}
	*n = FlexInt(int(value))
	return nil
}

// UploadConfigResponse is the remote upload limit configuration.
type UploadConfigResponse struct {
	ImageFileBatchLimit          FlexInt `json:"image_file_batch_limit"`
	SingleChunkAttachmentLimit   FlexInt `json:"single_chunk_attachment_limit"`
	AttachmentImageFileSizeLimit FlexInt `json:"attachment_image_file_size_limit"`
}

// FileUploadResponse describes a file accepted by the backend.
type FileUploadResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Extension string `json:"extension,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
}

// RemoteFileRequest asks the backend to fetch a remote URL.
type RemoteFileRequest struct {
	URL string `json:"url"`
}

// RemoteFileInfo describes a remote file the backend has fetched.
type RemoteFileInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url"`
}

// DatasetInitRequest creates a dataset from uploaded files.
type DatasetInitRequest struct {
	FileIDs []string `json:"file_ids"`
}

// DatasetInitResponse identifies a dataset whose indexing has started.
type DatasetInitResponse struct {
	DatasetID string `json:"dataset_id"`
	Batch     string `json:"batch,omitempty"`
}

// IndexingStatusResponse reports dataset indexing progress.
type IndexingStatusResponse struct {
	Status            string `json:"indexing_status"`
	Error             string `json:"error,omitempty"`
	CompletedSegments int    `json:"completed_segments"`
	TotalSegments     int    `json:"total_segments"`
}
