package attach

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"attachr/internal/models"
)

type transportCall struct {
	ctx    context.Context
	params UploadParams
}

// fakeTransport records calls and leaves the callbacks to the test.
type fakeTransport struct {
	mu    sync.Mutex
	calls []transportCall
}

func (f *fakeTransport) Upload(ctx context.Context, p UploadParams) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transportCall{ctx: ctx, params: p})
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) call(t *testing.T, i int) transportCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.calls) {
		t.Fatalf("expected transport call %d, have %d", i, len(f.calls))
	}
	return f.calls[i]
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

type changeLog struct {
	mu        sync.Mutex
	snapshots [][]models.Attachment
}

func (c *changeLog) record(list []models.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, list)
}

func (c *changeLog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

func (c *changeLog) all() [][]models.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]models.Attachment(nil), c.snapshots...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	started  int
	finished map[Outcome]int
	rejected map[NotificationKind]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{finished: map[Outcome]int{}, rejected: map[NotificationKind]int{}}
}

func (r *fakeRecorder) TransferStarted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeRecorder) TransferFinished(_ string, outcome Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[outcome]++
}

func (r *fakeRecorder) Rejected(kind NotificationKind, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[kind] += n
}

type harness struct {
	u         *Uploader
	transport *fakeTransport
	notes     *recordingNotifier
	changes   *changeLog
	metrics   *fakeRecorder
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{},
		notes:     &recordingNotifier{},
		changes:   &changeLog{},
		metrics:   newFakeRecorder(),
	}
	opts := Options{
		Transport:         h.transport,
		Notifier:          h.notes,
		Limits:            Limits{FileSizeLimitMB: 2, BatchCountLimit: 5, TotalCountLimit: 10},
		AllowedExtensions: []string{"png", "txt"},
		Settings: Settings{
			Enabled:         true,
			TransferMethods: []models.TransferMethod{models.TransferLocalFile, models.TransferRemoteURL},
		},
		OnChange: h.changes.record,
		Metrics:  h.metrics,
	}
	if mutate != nil {
		mutate(&opts)
	}
	u, err := New(opts)
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}
	h.u = u
	return h
}

func textFile(name, content string) RawFile {
	return NewMemoryFile(name, "text/plain", []byte(content))
}

func sizedFile(name string, size int64) RawFile {
	return NewOpenerFile(name, size, "", "", func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("")), nil
	})
}

func existing(n int) []models.Attachment {
	out := make([]models.Attachment, 0, n)
	for i := range n {
		out = append(out, models.Attachment{
			ID:         "seed-" + string(rune('a'+i)),
			Name:       "seed.png",
			Progress:   models.ProgressComplete,
			UploadedID: "srv-seed",
		})
	}
	return out
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
