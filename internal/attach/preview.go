package attach

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/webp"
)

// Preview is what reading a file before upload produces.
type Preview struct {
	DataURL string
	Width   int
	Height  int
}

// PreviewReader reads a file before a record is created for it.
type PreviewReader interface {
	Read(ctx context.Context, file RawFile) (Preview, error)
}

// DataURLReader reads the whole payload. Images get a base64 data URL and,
// when the format is known, their dimensions.
type DataURLReader struct{}

func (DataURLReader) Read(ctx context.Context, file RawFile) (Preview, error) {
	var out Preview
	if file == nil {
		return out, fmt.Errorf("file is required")
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	rc, err := file.Open()
	if err != nil {
		return out, fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", file.Name(), err)
	}

	mimeType := file.MimeType()
	if !strings.HasPrefix(mimeType, "image/") {
		return out, nil
	}
	out.DataURL = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		out.Width = cfg.Width
		out.Height = cfg.Height
	}
	return out, nil
}
