package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attachr/internal/attach"
)

// S3Config describes an S3 compatible bucket.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds a client for cfg. A custom endpoint switches to
// path-style addressing, which R2 and MinIO expect.
func NewS3Client(cfg S3Config) *s3.Client {
	awsCfg := aws.Config{Region: cfg.Region}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		awsCfg.Credentials = aws.AnonymousCredentials{}
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// ObjectPutter is the part of the S3 client the transport needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads files as objects. The object key is the upload id.
type S3 struct {
	client ObjectPutter
	bucket string
	prefix string
	newKey func() string
	tracer trace.Tracer
}

var _ attach.Transport = (*S3)(nil)

// NewS3 creates an S3 transport writing under prefix in bucket.
func NewS3(client ObjectPutter, bucket, prefix string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	return &S3{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		newKey: uuid.NewString,
		tracer: otel.Tracer(tracerName),
	}, nil
}

func (t *S3) objectKey(name string) string {
	key := t.newKey()
	if ext := attach.FileExtension(name); ext != "" && strings.Contains(name, ".") {
		key += "." + ext
	}
	if t.prefix == "" {
		return key
	}
	return path.Join(t.prefix, key)
}

// Upload blocks until PutObject returns.
func (t *S3) Upload(ctx context.Context, p attach.UploadParams) {
	p = withCallbacks(p)
	if p.File == nil {
		p.OnError(errFileRequired)
		return
	}

	key := t.objectKey(p.File.Name())
	ctx, span := t.tracer.Start(ctx, "attachr.upload.s3", trace.WithAttributes(
		attribute.String("file.name", p.File.Name()),
		attribute.Int64("file.size", p.File.Size()),
		attribute.String("s3.bucket", t.bucket),
		attribute.String("s3.key", key),
	))
	defer span.End()

	body, size, closeBody, err := seekableBody(p.File)
	if err != nil {
		fail(span, p, err)
		return
	}
	defer closeBody()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(key),
		Body:          &seekProgressReader{r: body, size: size, tracker: newPercentTracker(p.OnProgress)},
		ContentLength: aws.Int64(size),
	}
	if mimeType := p.File.MimeType(); mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := t.client.PutObject(ctx, input); err != nil {
		fail(span, p, fmt.Errorf("put object %s: %w", key, err))
		return
	}

	p.OnSuccess(attach.UploadResult{
		ID:        key,
		Extension: attach.FileExtension(p.File.Name()),
		MimeType:  p.File.MimeType(),
		Size:      size,
	})
}

// seekableBody opens file as an io.ReadSeeker, buffering it when the
// underlying reader cannot seek.
func seekableBody(file attach.RawFile) (io.ReadSeeker, int64, func(), error) {
	rc, err := file.Open()
	if err != nil {
		return nil, 0, nil, err
	}
	closeFn := func() { _ = rc.Close() }

	if rs, ok := rc.(io.ReadSeeker); ok {
		size, err := rs.Seek(0, io.SeekEnd)
		if err == nil {
			_, err = rs.Seek(0, io.SeekStart)
		}
		if err != nil {
			closeFn()
			return nil, 0, nil, err
		}
		return rs, size, closeFn, nil
	}

	data, err := io.ReadAll(rc)
	closeFn()
	if err != nil {
		return nil, 0, nil, err
	}
	return bytes.NewReader(data), int64(len(data)), func() {}, nil
}
