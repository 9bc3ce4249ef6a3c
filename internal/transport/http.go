// Package transport implements attach.Transport over the backend API and S3.
package transport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"attachr/internal/api"
	"attachr/internal/attach"
)

const tracerName = "attachr/transport"

// FileUploader is the part of the API client the HTTP transport needs.
type FileUploader interface {
	UploadFile(ctx context.Context, upload api.FileUpload, onProgress func(loaded, total int64)) (api.FileUploadResponse, error)
}

// HTTP uploads files as multipart form data to the backend.
type HTTP struct {
	client FileUploader
	tracer trace.Tracer
}

var _ attach.Transport = (*HTTP)(nil)

// NewHTTP creates an HTTP transport. Spans go to the global tracer provider.
func NewHTTP(client FileUploader) *HTTP {
	return &HTTP{client: client, tracer: otel.Tracer(tracerName)}
}

// Upload blocks until the request finishes.
func (t *HTTP) Upload(ctx context.Context, p attach.UploadParams) {
	p = withCallbacks(p)
	if p.File == nil {
		p.OnError(errFileRequired)
		return
	}

	ctx, span := t.tracer.Start(ctx, "attachr.upload.http", trace.WithAttributes(
		attribute.String("file.name", p.File.Name()),
		attribute.Int64("file.size", p.File.Size()),
		attribute.Bool("upload.public", p.Public),
	))
	defer span.End()

	rc, err := p.File.Open()
	if err != nil {
		fail(span, p, err)
		return
	}
	defer rc.Close()

	progress := newPercentTracker(p.OnProgress)
	resp, err := t.client.UploadFile(ctx, api.FileUpload{
		Filename: p.File.Name(),
		MimeType: p.File.MimeType(),
		Size:     p.File.Size(),
		Content:  rc,
		Public:   p.Public,
		Endpoint: p.Endpoint,
	}, progress.report)
	if err != nil {
		fail(span, p, err)
		return
	}

	span.SetAttributes(attribute.String("upload.id", resp.ID))
	p.OnSuccess(attach.UploadResult{
		ID:        resp.ID,
		Extension: resp.Extension,
		MimeType:  resp.MimeType,
		Size:      resp.Size,
	})
}

func fail(span trace.Span, p attach.UploadParams, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.OnError(err)
}
