package models

import (
	"fmt"
	"io"
	"strings"
)

// Progress sentinels. Values in between are upload percentages.
const (
	ProgressFailed     = -1
	ProgressNotStarted = 0
	ProgressComplete   = 100
)

// TransferMethod describes how an attachment entered the uploader.
type TransferMethod string

const (
	TransferLocalFile TransferMethod = "local_file"
	TransferRemoteURL TransferMethod = "remote_url"
)

var validTransferMethods = map[TransferMethod]struct{}{
	TransferLocalFile: {},
	TransferRemoteURL: {},
}

// RawFile is a readable file payload selected by the user.
type RawFile interface {
	Name() string
	Size() int64
	MimeType() string
	Open() (io.ReadCloser, error)
}

// Attachment is one file or link tracked by an uploader.
type Attachment struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Size           int64          `json:"size" yaml:"size"`
	Extension      string         `json:"extension,omitempty" yaml:"extension,omitempty"`
	MimeType       string         `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Progress       int            `json:"progress" yaml:"progress"`
	TransferMethod TransferMethod `json:"transfer_method" yaml:"transfer_method"`
	UploadedID     string         `json:"uploaded_id,omitempty" yaml:"uploaded_id,omitempty"`
	SourceURL      string         `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	PreviewDataURL string         `json:"preview_data_url,omitempty" yaml:"-"`
	RelativePath   string         `json:"relative_path,omitempty" yaml:"relative_path,omitempty"`
	ImageWidth     int            `json:"image_width,omitempty" yaml:"image_width,omitempty"`
	ImageHeight    int            `json:"image_height,omitempty" yaml:"image_height,omitempty"`
	Origin         string         `json:"origin,omitempty" yaml:"origin,omitempty"`
	Deleted        bool           `json:"deleted,omitempty" yaml:"deleted,omitempty"`

	// OriginalFile is retained only so a failed upload can be retried.
	OriginalFile RawFile `json:"-" yaml:"-"`
}

// Usable reports whether the backend has accepted the attachment.
func (a Attachment) Usable() bool {
	return a.UploadedID != "" || a.Progress == ProgressComplete
}

// Failed reports whether the last transfer attempt failed.
func (a Attachment) Failed() bool {
	return a.Progress == ProgressFailed
}

// Status returns the tagged view of the numeric progress field.
func (a Attachment) Status() UploadStatus {
	switch {
	case a.Progress == ProgressFailed:
		return StatusFailed{}
	case a.Progress >= ProgressComplete:
		return StatusComplete{UploadedID: a.UploadedID}
	default:
		return StatusUploading{Percent: a.Progress}
	}
}

// UploadStatus is one of StatusUploading, StatusFailed or StatusComplete.
type UploadStatus interface {
	isUploadStatus()
	String() string
}

type StatusUploading struct{ Percent int }

type StatusFailed struct{}

type StatusComplete struct{ UploadedID string }

func (StatusUploading) isUploadStatus() {}
func (StatusFailed) isUploadStatus()    {}
func (StatusComplete) isUploadStatus()  {}

func (s StatusUploading) String() string { return fmt.Sprintf("uploading %d%%", s.Percent) }
func (StatusFailed) String() string      { return "failed" }
func (StatusComplete) String() string    { return "complete" }

// ValidProgress reports whether p is within {-1} ∪ [0,100].
func ValidProgress(p int) bool {
	return p == ProgressFailed || (p >= ProgressNotStarted && p <= ProgressComplete)
}

func ParseTransferMethod(raw string) (TransferMethod, error) {
	value := TransferMethod(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("transfer method is required")
	}
	if _, ok := validTransferMethods[value]; !ok {
		return "", fmt.Errorf("invalid transfer method: %s", value)
	}
	return value, nil
}
