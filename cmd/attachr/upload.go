package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"attachr/internal/attach"
	"attachr/internal/blobstore"
	"attachr/internal/config"
	"attachr/internal/models"
)

const stdinArg = "-"

type uploadOptions struct {
	session sessionOptions
	name    string
	mime    string
	allow   string
	index   bool
}

func newUploadCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	opts := uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload <path>... | -",
		Short: "Upload files or directories, or stdin with -",
		Long: "Upload files and directories the way a drop would: directories are walked\n" +
			"and every file keeps its relative path. A single - reads one pasted\n" +
			"payload from stdin; it is spooled locally so a failed upload can be retried.",
		Args: uploadSources,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if allowed := splitCommaList(opts.allow); len(allowed) > 0 {
				scoped := *cfg
				scoped.Upload.AllowedExtensions = allowed
				cfg = &scoped
			}

			return withSession(ctx, cfg, flags.area, opts.session, cmd, func(s *session) error {
				before := s.uploader.Records()

				if isStdinUpload(args) {
					file, err := spoolStdin(ctx, s.spool, cmd.InOrStdin(), opts.name, opts.mime)
					if err != nil {
						return err
					}
					s.uploader.OnPaste(ctx, attach.ClipboardData{Files: []attach.RawFile{file}})
				} else {
					items, err := dropItems(args)
					if err != nil {
						return err
					}
					s.uploader.OnDrop(ctx, attach.DropEvent{Items: items, Event: &attach.Event{}})
				}

				added := s.settle(before)
				if err := writeRecords(flags, added); err != nil {
					return err
				}
				if err := uploadOutcome(added, s.notes.total()); err != nil {
					return err
				}

				if opts.index {
					return runIndexing(ctx, s, flags, added)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.session.public, "public", false, "upload through the public API base")
	cmd.Flags().StringVar(&opts.session.endpoint, "endpoint", "", "upload endpoint path or URL override")
	cmd.Flags().BoolVar(&opts.session.singleFile, "single", false, "accept at most one file")
	cmd.Flags().StringVar(&opts.session.metricsTextfile, "metrics-textfile", "", "write upload metrics to this file in Prometheus text format")
	cmd.Flags().StringVar(&opts.name, "name", "pasted.txt", "file name for stdin payloads")
	cmd.Flags().StringVar(&opts.mime, "mime-type", "", "MIME type for stdin payloads (guessed from --name when empty)")
	cmd.Flags().StringVar(&opts.allow, "allow", "", "comma separated extensions allowed for this run")
	cmd.Flags().BoolVar(&opts.index, "index", false, "create a dataset from the uploaded files and wait for indexing")
	return cmd
}

// dropItems turns paths into drop items. Directories become traversable
// entries; plain files are dropped as they are.
func dropItems(paths []string) ([]attach.DropItem, error) {
	items := make([]attach.DropItem, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			entry, err := attach.NewPathEntry(p)
			if err != nil {
				return nil, err
			}
			items = append(items, attach.DropItem{Entry: entry})
			continue
		}
		file, err := attach.NewLocalFile(p)
		if err != nil {
			return nil, err
		}
		items = append(items, attach.DropItem{File: file})
	}
	return items, nil
}

// spoolStdin copies r into the spool and returns a file backed by the copy.
func spoolStdin(ctx context.Context, spool blobstore.Spool, r io.Reader, name, mimeType string) (attach.RawFile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("--name is required for stdin payloads")
	}
	put, err := spool.Put(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if mimeType == "" {
		mimeType = attach.GuessMimeType(name)
	}
	key := put.Key
	return attach.NewOpenerFile(name, put.Size, mimeType, blobstore.Origin(key), func() (io.ReadCloser, error) {
		return spool.Open(context.Background(), key)
	}), nil
}

// uploadOutcome turns rejected or failed files into a non-zero exit.
func uploadOutcome(added []models.Attachment, notes int) error {
	failed := 0
	for _, rec := range added {
		if rec.Failed() {
			failed++
		}
	}
	switch {
	case failed > 0:
		return fmt.Errorf("%d upload(s) failed; retry with: attachr retry <id>", failed)
	case len(added) == 0 && notes > 0:
		return fmt.Errorf("no files were accepted")
	case notes > 0:
		return fmt.Errorf("%d file(s) were rejected", notes)
	}
	return nil
}
