package attach

import (
	"context"
	"time"

	"attachr/internal/models"
)

// UploadResult is the backend's answer to a successful upload. Empty
// fields leave the client-side values in place.
type UploadResult struct {
	ID        string
	Extension string
	MimeType  string
	Size      int64
}

// UploadParams describes one transfer. A transport calls OnProgress any
// number of times and then exactly one of OnSuccess or OnError.
type UploadParams struct {
	File       RawFile
	Public     bool
	Endpoint   string
	OnProgress func(percent int)
	OnSuccess  func(UploadResult)
	OnError    func(error)
}

// Transport uploads one file. Upload may return before the callbacks fire.
type Transport interface {
	Upload(ctx context.Context, p UploadParams)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, p UploadParams)

func (f TransportFunc) Upload(ctx context.Context, p UploadParams) { f(ctx, p) }

// Percent converts byte counts to an in-flight percentage in [0,99]. ok is
// false when total is unknown.
func Percent(loaded, total int64) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	return clampProgress(int(loaded * 100 / total)), true
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 99 {
		return 99
	}
	return p
}

// Outcome is how a transfer ended.
type Outcome string

const (
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeFailed     Outcome = "failed"
	OutcomeSuperseded Outcome = "superseded"
)

// Recorder receives upload metrics.
type Recorder interface {
	TransferStarted(method string)
	TransferFinished(method string, outcome Outcome, elapsed time.Duration)
	Rejected(kind NotificationKind, n int)
}

type nopRecorder struct{}

func (nopRecorder) TransferStarted(string)                          {}
func (nopRecorder) TransferFinished(string, Outcome, time.Duration) {}
func (nopRecorder) Rejected(NotificationKind, int)                  {}

type transfer struct {
	gen     uint64
	method  string
	cancel  context.CancelFunc
	started time.Time
}

// startTransferLocked supersedes any transfer for id and starts a new one.
// Callers hold u.mu.
func (u *Uploader) startTransferLocked(ctx context.Context, id string, file RawFile) {
	gen, tctx := u.registerTransferLocked(ctx, id, string(models.TransferLocalFile))

	params := UploadParams{
		File:     file,
		Public:   u.public,
		Endpoint: u.endpoint,
		OnProgress: func(percent int) {
			u.applyProgress(id, gen, percent)
		},
		OnSuccess: func(res UploadResult) {
			u.applySuccess(id, gen, res)
		},
		OnError: func(err error) {
			u.applyError(id, gen, err)
		},
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.transport.Upload(tctx, params)
	}()
}

func (u *Uploader) registerTransferLocked(ctx context.Context, id, method string) (uint64, context.Context) {
	if prev, ok := u.transfers[id]; ok {
		prev.cancel()
		u.metrics.TransferFinished(prev.method, OutcomeSuperseded, time.Since(prev.started))
		u.logger.Debug("transfer superseded", "id", id, "gen", prev.gen)
	}
	u.nextGen++
	tctx, cancel := context.WithCancel(ctx)
	u.transfers[id] = &transfer{gen: u.nextGen, method: method, cancel: cancel, started: time.Now()}
	u.metrics.TransferStarted(method)
	return u.nextGen, tctx
}

func (u *Uploader) isCurrentLocked(id string, gen uint64) bool {
	t, ok := u.transfers[id]
	return ok && t.gen == gen
}

// finishTransferLocked ends the transfer for id if gen is still current.
func (u *Uploader) finishTransferLocked(id string, gen uint64, outcome Outcome) bool {
	t, ok := u.transfers[id]
	if !ok || t.gen != gen {
		return false
	}
	t.cancel()
	delete(u.transfers, id)
	u.metrics.TransferFinished(t.method, outcome, time.Since(t.started))
	return true
}

func (u *Uploader) applyProgress(id string, gen uint64, percent int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.isCurrentLocked(id, gen) {
		return
	}
	percent = clampProgress(percent)
	u.updateLocked(id, func(rec *models.Attachment) bool {
		if rec.Progress == percent {
			return false
		}
		rec.Progress = percent
		return true
	})
}

func (u *Uploader) applySuccess(id string, gen uint64, res UploadResult) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.finishTransferLocked(id, gen, OutcomeSucceeded) {
		return
	}
	updated := u.updateLocked(id, func(rec *models.Attachment) bool {
		rec.Progress = models.ProgressComplete
		rec.UploadedID = res.ID
		if res.Extension != "" {
			rec.Extension = res.Extension
		}
		if res.MimeType != "" {
			rec.MimeType = res.MimeType
		}
		if res.Size > 0 {
			rec.Size = res.Size
		}
		return true
	})
	if updated {
		u.logger.Debug("upload complete", "id", id, "uploaded_id", res.ID)
	}
}

func (u *Uploader) applyError(id string, gen uint64, err error) {
	u.mu.Lock()
	if !u.finishTransferLocked(id, gen, OutcomeFailed) {
		u.mu.Unlock()
		return
	}
	var name string
	updated := u.updateLocked(id, func(rec *models.Attachment) bool {
		rec.Progress = models.ProgressFailed
		name = rec.Name
		return true
	})
	u.mu.Unlock()

	if !updated {
		return
	}
	u.logger.Debug("upload failed", "id", id, "name", name, "err", err)
	u.notify(KindTransport, ErrorMessage(err, MessageUploadFailed))
}
