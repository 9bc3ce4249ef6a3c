package attach

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"attachr/internal/models"
)

const maxIDAttempts = 8

// RemoteResolver fetches a file the backend downloads from a URL.
type RemoteResolver interface {
	Resolve(ctx context.Context, rawURL string, public bool) (RemoteFile, error)
}

// Options configure an Uploader.
type Options struct {
	Transport         Transport
	Notifier          Notifier
	Limits            Limits
	AllowedExtensions []string
	Settings          Settings
	Policy            Policy

	// Initial seeds the record list. It is copied.
	Initial []models.Attachment
	// OnChange receives every new record list. It runs while the uploader
	// holds its lock and must not call back into the uploader, except for
	// Records.
	OnChange func([]models.Attachment)

	Remote   RemoteResolver
	Reader   PreviewReader
	Metrics  Recorder
	Logger   *slog.Logger
	Public   bool
	Endpoint string
	NewID    func() string
}

// Uploader validates files, uploads them and keeps the record list of one
// attachment area current.
type Uploader struct {
	mu    sync.Mutex
	store *Store

	transport Transport
	notifier  Notifier
	limits    Limits
	allowed   []string
	settings  Settings
	policy    Policy
	remote    RemoteResolver
	reader    PreviewReader
	metrics   Recorder
	logger    *slog.Logger
	public    bool
	endpoint  string
	newID     func() string

	dragging bool
	picker   Picker
	sentinel *Element
	dropZone *Element

	// reserved counts admitted files that have no record yet.
	reserved  int
	transfers map[string]*transfer
	nextGen   uint64
	wg        sync.WaitGroup
}

// New creates an uploader.
func New(opts Options) (*Uploader, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	seen := make(map[string]struct{}, len(opts.Initial))
	for _, rec := range opts.Initial {
		if rec.ID == "" {
			return nil, fmt.Errorf("initial record %q has no id", rec.Name)
		}
		if _, ok := seen[rec.ID]; ok {
			return nil, fmt.Errorf("duplicate record id %s", rec.ID)
		}
		if !models.ValidProgress(rec.Progress) {
			return nil, fmt.Errorf("record %s has invalid progress %d", rec.ID, rec.Progress)
		}
		seen[rec.ID] = struct{}{}
	}

	u := &Uploader{
		store:     NewStore(opts.Initial, opts.OnChange),
		transport: opts.Transport,
		notifier:  opts.Notifier,
		limits:    opts.Limits.Normalize(),
		allowed:   NormalizeExtensions(opts.AllowedExtensions),
		settings:  opts.Settings,
		policy:    opts.Policy,
		remote:    opts.Remote,
		reader:    opts.Reader,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		public:    opts.Public,
		endpoint:  opts.Endpoint,
		newID:     opts.NewID,
		transfers: make(map[string]*transfer),
	}
	if u.notifier == nil {
		u.notifier = NotifierFunc(func(Notification) {})
	}
	if u.reader == nil {
		u.reader = DataURLReader{}
	}
	if u.metrics == nil {
		u.metrics = nopRecorder{}
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	if u.newID == nil {
		u.newID = uuid.NewString
	}
	if u.settings.SingleFile {
		u.limits.BatchCountLimit = 1
	}
	return u, nil
}

// Records returns the visible records.
func (u *Uploader) Records() []models.Attachment {
	return Visible(u.store.GetAll())
}

// Limits returns the resolved limits.
func (u *Uploader) Limits() Limits {
	return u.limits
}

// Policy returns the area policy.
func (u *Uploader) Policy() Policy {
	return u.policy
}

// Wait blocks until every transfer started so far has returned.
func (u *Uploader) Wait() {
	u.wg.Wait()
}

// OnFilesChosen runs a picked batch through the limits and validation and
// starts an upload for every file that passes.
func (u *Uploader) OnFilesChosen(ctx context.Context, files []RawFile) {
	files = slices.DeleteFunc(slices.Clone(files), func(f RawFile) bool { return f == nil })
	if len(files) == 0 {
		return
	}
	if !u.settings.Enabled || !u.settings.allows(models.TransferLocalFile) {
		u.logger.Debug("local file upload disabled, ignoring files", "count", len(files))
		return
	}

	if extra := len(files) - u.limits.BatchCountLimit; extra > 0 {
		u.logger.Debug("batch truncated", "limit", u.limits.BatchCountLimit, "dropped", extra)
		u.metrics.Rejected(KindBatchCount, extra)
		files = files[:u.limits.BatchCountLimit]
	}

	if !u.reserve(len(files)) {
		u.metrics.Rejected(KindTotalCount, len(files))
		u.notify(KindTotalCount, totalCountMessage(u.limits.TotalCountLimit))
		return
	}

	valid, violation := PartitionValid(files, u.allowed, u.limits)
	u.release(len(files) - len(valid))
	switch violation {
	case ViolationType:
		u.metrics.Rejected(KindType, len(files)-len(valid))
		u.notify(KindType, typeMessage(u.allowed))
	case ViolationSize:
		u.metrics.Rejected(KindSize, len(files)-len(valid))
		u.notify(KindSize, sizeMessage(u.limits.FileSizeLimitMB))
	}

	for _, file := range valid {
		u.beginUpload(ctx, file, true)
	}
}

// BeginUpload reads file, adds a record for it and starts its transfer. It
// returns the new record id, or "" when the file could not be read.
func (u *Uploader) BeginUpload(ctx context.Context, file RawFile) string {
	return u.beginUpload(ctx, file, false)
}

func (u *Uploader) beginUpload(ctx context.Context, file RawFile, reserved bool) string {
	if file == nil {
		if reserved {
			u.release(1)
		}
		return ""
	}

	preview, err := u.reader.Read(ctx, file)
	if err != nil {
		if reserved {
			u.release(1)
		}
		u.logger.Debug("read failed", "name", file.Name(), "err", err)
		u.metrics.Rejected(KindRead, 1)
		u.notify(KindRead, readMessage(file.Name()))
		return ""
	}

	rec := models.Attachment{
		Name:           file.Name(),
		Size:           file.Size(),
		Extension:      FileExtension(file.Name()),
		MimeType:       file.MimeType(),
		Progress:       models.ProgressNotStarted,
		TransferMethod: models.TransferLocalFile,
		PreviewDataURL: preview.DataURL,
		ImageWidth:     preview.Width,
		ImageHeight:    preview.Height,
		RelativePath:   relativePathOf(file),
		Origin:         originOf(file),
		OriginalFile:   file,
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if reserved {
		u.reserved--
	}
	id, err := u.uniqueIDLocked()
	if err != nil {
		u.logger.Error("could not assign record id", "err", err)
		return ""
	}
	rec.ID = id
	u.appendLocked(rec)
	u.logger.Debug("upload started", "id", id, "name", rec.Name, "size", rec.Size)
	u.startTransferLocked(ctx, id, file)
	return id
}

// Retry restarts the transfer of a record from its retained file. It
// reports false and changes nothing when the record or its file is missing.
func (u *Uploader) Retry(ctx context.Context, id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	list := u.store.GetAll()
	idx := indexOf(list, id)
	if idx < 0 || list[idx].OriginalFile == nil {
		return false
	}
	file := list[idx].OriginalFile
	u.updateLocked(id, func(rec *models.Attachment) bool {
		rec.Progress = models.ProgressNotStarted
		rec.UploadedID = ""
		return true
	})
	u.logger.Debug("upload retried", "id", id)
	u.startTransferLocked(ctx, id, file)
	return true
}

// Remove deletes a record, or marks it deleted under SoftDeleteOnRemove. An
// in-flight transfer keeps running and its callbacks are ignored.
func (u *Uploader) Remove(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	list := u.store.GetAll()
	idx := indexOf(list, id)
	if idx < 0 {
		return false
	}
	next := slices.Clone(list)
	if u.policy.SoftDeleteOnRemove {
		next[idx].Deleted = true
	} else {
		next = slices.Delete(next, idx, idx+1)
	}
	u.store.SetAll(next)
	u.logger.Debug("record removed", "id", id, "soft", u.policy.SoftDeleteOnRemove)
	return true
}

// Clear drops every record, soft-deleted ones included.
func (u *Uploader) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.store.SetAll([]models.Attachment{})
}

func (u *Uploader) notify(kind NotificationKind, message string) {
	u.notifier.Notify(Notification{Type: "error", Kind: kind, Message: message})
}

// reserve admits n new records against the total-count limit.
func (u *Uploader) reserve(n int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	current := len(Visible(u.store.GetAll())) + u.reserved
	if current+n > u.limits.TotalCountLimit {
		return false
	}
	u.reserved += n
	return true
}

func (u *Uploader) release(n int) {
	if n <= 0 {
		return
	}
	u.mu.Lock()
	u.reserved -= n
	u.mu.Unlock()
}

func (u *Uploader) uniqueIDLocked() (string, error) {
	list := u.store.GetAll()
	for range maxIDAttempts {
		id := u.newID()
		if id != "" && !containsID(list, id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("id generator kept returning used ids")
}

func (u *Uploader) appendLocked(rec models.Attachment) {
	list := u.store.GetAll()
	next := make([]models.Attachment, 0, len(list)+1)
	next = append(next, list...)
	next = append(next, rec)
	u.store.SetAll(next)
}

// updateLocked applies fn to the current record with id and commits the
// list when fn reports a change. It reports whether the record was found.
func (u *Uploader) updateLocked(id string, fn func(*models.Attachment) bool) bool {
	list := u.store.GetAll()
	idx := indexOf(list, id)
	if idx < 0 {
		return false
	}
	next := slices.Clone(list)
	if fn(&next[idx]) {
		u.store.SetAll(next)
	}
	return true
}
