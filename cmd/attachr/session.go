package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"attachr/internal/api"
	"attachr/internal/attach"
	"attachr/internal/blobstore"
	"attachr/internal/config"
	"attachr/internal/ledger"
	"attachr/internal/metrics"
	"attachr/internal/models"
	"attachr/internal/transport"
)

const uploadConfigTimeout = 3 * time.Second

// sessionOptions tune the uploader mounted for one command.
type sessionOptions struct {
	public          bool
	endpoint        string
	singleFile      bool
	metricsTextfile string
}

// session is one mounted uploader for an area, seeded from and persisted to
// the ledger.
type session struct {
	cfg      *config.Config
	area     string
	client   *api.Client
	ledger   *ledger.Store
	spool    *blobstore.LocalCAS
	uploader *attach.Uploader
	registry *prometheus.Registry
	notes    *noteSink
	logger   *slog.Logger
}

func withSession(ctx context.Context, cfg *config.Config, area string, opts sessionOptions, cmd *cobra.Command, fn func(*session) error) (err error) {
	logger := sessionLogger(area, cmd.Name())
	stderr := cmd.ErrOrStderr()

	st, err := ledger.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer st.Close()

	spool, err := blobstore.NewLocalCAS(cfg.SpoolDir)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}

	client := api.NewClient(cfg.APIURL, cfg.PublicAPIURL)
	tr, err := newTransport(cfg, client)
	if err != nil {
		return err
	}

	stored, err := st.Load(ctx, area)
	if err != nil {
		return fmt.Errorf("load area %s: %w", area, err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.New(
		metrics.WithRegistry(registry),
		metrics.WithConstLabels(prometheus.Labels{"area": area}),
	)

	s := &session{
		cfg:      cfg,
		area:     area,
		client:   client,
		ledger:   st,
		spool:    spool,
		registry: registry,
		notes:    &noteSink{w: stderr},
		logger:   logger,
	}

	s.uploader, err = attach.New(attach.Options{
		Transport:         tr,
		Notifier:          s.notes,
		Limits:            resolveLimits(ctx, client, cfg, logger),
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		Settings: attach.Settings{
			Enabled:         cfg.Upload.Enabled,
			TransferMethods: transferMethods(cfg.Upload.TransferMethods),
			SingleFile:      opts.singleFile,
		},
		Policy: attach.Policy{
			SupportsRAG:        cfg.Upload.RAG,
			SoftDeleteOnRemove: cfg.Upload.SoftDelete,
		},
		Initial:  ledger.Rehydrate(stored, spool, logger),
		OnChange: st.Persister(context.WithoutCancel(ctx), area, logger),
		Remote:   attach.ClientResolver(client),
		Metrics:  collector,
		Logger:   logger,
		Public:   opts.public,
		Endpoint: opts.endpoint,
	})
	if err != nil {
		return fmt.Errorf("load area %s: %w", area, err)
	}

	defer func() {
		s.uploader.Wait()
		if opts.metricsTextfile == "" {
			return
		}
		if werr := metrics.WriteTextfile(opts.metricsTextfile, registry); werr != nil && err == nil {
			err = fmt.Errorf("write metrics: %w", werr)
		}
	}()

	return fn(s)
}

// settle waits for every transfer and returns the records created since
// before, in list order.
func (s *session) settle(before []models.Attachment) []models.Attachment {
	s.uploader.Wait()
	known := make(map[string]struct{}, len(before))
	for _, rec := range before {
		known[rec.ID] = struct{}{}
	}
	var added []models.Attachment
	for _, rec := range s.uploader.Records() {
		if _, ok := known[rec.ID]; !ok {
			added = append(added, rec)
		}
	}
	return added
}

// pruneSpool drops spooled payloads no stored record refers to.
func (s *session) pruneSpool(ctx context.Context) {
	origins, err := s.ledger.Origins(ctx)
	if err != nil {
		s.logger.Warn("list origins", "error", err)
		return
	}
	keep := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if key, ok := blobstore.KeyFromOrigin(origin); ok {
			keep[key] = struct{}{}
		}
	}
	n, err := s.spool.Prune(ctx, keep)
	if err != nil {
		s.logger.Warn("prune spool", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("pruned spool", "removed", n)
	}
}

func newTransport(cfg *config.Config, client *api.Client) (attach.Transport, error) {
	switch cfg.Transport {
	case config.TransportS3:
		s3Client := transport.NewS3Client(transport.S3Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		return transport.NewS3(s3Client, cfg.S3.Bucket, cfg.S3.Prefix)
	case config.TransportHTTP, "":
		return transport.NewHTTP(client), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// resolveLimits asks the backend for its limits and falls back to the local
// configuration when it cannot be reached.
func resolveLimits(ctx context.Context, client *api.Client, cfg *config.Config, logger *slog.Logger) attach.Limits {
	fallback := attach.Limits{
		FileSizeLimitMB: cfg.Upload.FileSizeLimitMB,
		BatchCountLimit: cfg.Upload.BatchCountLimit,
		TotalCountLimit: cfg.Upload.TotalCountLimit,
	}

	ctx, cancel := context.WithTimeout(ctx, uploadConfigTimeout)
	defer cancel()
	remote, err := client.GetUploadConfig(ctx)
	if err != nil {
		logger.Warn("upload config unavailable, using local limits", "error", err)
		return attach.ResolveLimits(nil, fallback)
	}
	return attach.ResolveLimits(&remote, fallback)
}

// noteSink prints notifications to stderr and remembers how many it saw.
type noteSink struct {
	mu    sync.Mutex
	w     io.Writer
	count int
}

func (n *noteSink) Notify(note attach.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	if n.w != nil {
		_, _ = fmt.Fprintf(n.w, "%s: %s\n", note.Type, note.Message)
	}
}

func (n *noteSink) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}
