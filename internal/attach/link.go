package attach

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"time"

	"attachr/internal/api"
	"attachr/internal/models"
)

// Placeholder progress for link uploads: the resolver reports none, so the
// record creeps toward linkProgressCeiling while it runs.
var (
	linkProgressInterval = 200 * time.Millisecond
	linkProgressStep     = 20
)

const linkProgressCeiling = 80

// RemoteFile describes a file the backend fetched from a URL.
type RemoteFile struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
	URL      string
}

// RemoteFileClient is the part of the API client link uploads need.
type RemoteFileClient interface {
	UploadRemoteFileInfo(ctx context.Context, rawURL string, public bool) (api.RemoteFileInfo, error)
}

// ClientResolver resolves links through the backend API.
func ClientResolver(c RemoteFileClient) RemoteResolver {
	return clientResolver{client: c}
}

type clientResolver struct {
	client RemoteFileClient
}

func (r clientResolver) Resolve(ctx context.Context, rawURL string, public bool) (RemoteFile, error) {
	info, err := r.client.UploadRemoteFileInfo(ctx, rawURL, public)
	if err != nil {
		return RemoteFile{}, err
	}
	return RemoteFile{ID: info.ID, Name: info.Name, MimeType: info.MimeType, Size: info.Size, URL: info.URL}, nil
}

// LoadFromLink adds a placeholder record for rawURL and asks the remote
// resolver to fetch it. It returns the placeholder id, or "" when the link
// was rejected up front.
func (u *Uploader) LoadFromLink(ctx context.Context, rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if u.remote == nil || !u.settings.Enabled || !u.settings.allows(models.TransferRemoteURL) {
		u.logger.Debug("link upload disabled", "url", rawURL)
		return ""
	}
	if !validLink(rawURL) {
		u.notify(KindRemote, MessageInvalidLink)
		return ""
	}
	if !u.reserve(1) {
		u.metrics.Rejected(KindTotalCount, 1)
		u.notify(KindTotalCount, totalCountMessage(u.limits.TotalCountLimit))
		return ""
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.reserved--
	id, err := u.uniqueIDLocked()
	if err != nil {
		u.logger.Error("could not assign record id", "err", err)
		return ""
	}
	u.appendLocked(models.Attachment{
		ID:             id,
		Name:           rawURL,
		Progress:       models.ProgressNotStarted,
		TransferMethod: models.TransferRemoteURL,
		SourceURL:      rawURL,
	})
	gen, tctx := u.registerTransferLocked(ctx, id, string(models.TransferRemoteURL))
	u.logger.Debug("link upload started", "id", id, "url", rawURL)

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.resolveLink(tctx, id, gen, rawURL)
	}()
	return id
}

type remoteResult struct {
	file RemoteFile
	err  error
}

func (u *Uploader) resolveLink(ctx context.Context, id string, gen uint64, rawURL string) {
	results := make(chan remoteResult, 1)
	go func() {
		file, err := u.remote.Resolve(ctx, rawURL, u.public)
		results <- remoteResult{file: file, err: err}
	}()

	ticker := time.NewTicker(linkProgressInterval)
	defer ticker.Stop()
	ticking := true
	for {
		select {
		case <-ticker.C:
			if ticking && !u.nudgeLink(id, gen) {
				ticker.Stop()
				ticking = false
			}
		case res := <-results:
			u.finishLink(id, gen, res)
			return
		}
	}
}

// nudgeLink advances placeholder progress. It reports false once the
// ceiling is reached or the record is gone or failed.
func (u *Uploader) nudgeLink(id string, gen uint64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.isCurrentLocked(id, gen) {
		return false
	}
	keep := false
	u.updateLocked(id, func(rec *models.Attachment) bool {
		if rec.Progress < 0 || rec.Progress >= linkProgressCeiling {
			return false
		}
		rec.Progress = min(rec.Progress+linkProgressStep, linkProgressCeiling)
		keep = rec.Progress < linkProgressCeiling
		return true
	})
	return keep
}

func (u *Uploader) finishLink(id string, gen uint64, res remoteResult) {
	kind, message := KindRemote, ""
	if res.err != nil {
		message = ErrorMessage(res.err, MessageLinkFailed)
	} else if !IsAllowedType(res.file.Name, u.allowed) {
		kind, message = KindType, typeMessage(u.allowed)
	} else if !IsWithinSizeLimit(res.file.Size, u.limits.FileSizeLimitMB) {
		kind, message = KindSize, sizeMessage(u.limits.FileSizeLimitMB)
	}

	u.mu.Lock()
	outcome := OutcomeSucceeded
	if message != "" {
		outcome = OutcomeFailed
	}
	if !u.finishTransferLocked(id, gen, outcome) {
		u.mu.Unlock()
		return
	}

	var found bool
	if message != "" {
		found = u.dropLocked(id)
	} else {
		found = u.updateLocked(id, func(rec *models.Attachment) bool {
			rec.Name = res.file.Name
			rec.Size = res.file.Size
			rec.MimeType = res.file.MimeType
			rec.Extension = FileExtension(res.file.Name)
			rec.UploadedID = res.file.ID
			if res.file.URL != "" {
				rec.SourceURL = res.file.URL
			}
			rec.Progress = models.ProgressComplete
			return true
		})
	}
	u.mu.Unlock()

	if message == "" || !found {
		return
	}
	u.logger.Debug("link upload rejected", "id", id, "kind", kind, "err", res.err)
	if kind != KindRemote {
		u.metrics.Rejected(kind, 1)
	}
	u.notify(kind, message)
}

// dropLocked removes a record outright regardless of the delete policy.
func (u *Uploader) dropLocked(id string) bool {
	list := u.store.GetAll()
	idx := indexOf(list, id)
	if idx < 0 {
		return false
	}
	u.store.SetAll(slices.Delete(slices.Clone(list), idx, idx+1))
	return true
}

func validLink(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
