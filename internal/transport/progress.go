package transport

import (
	"errors"
	"io"

	"attachr/internal/attach"
)

var errFileRequired = errors.New("file is required")

func withCallbacks(p attach.UploadParams) attach.UploadParams {
	if p.OnProgress == nil {
		p.OnProgress = func(int) {}
	}
	if p.OnSuccess == nil {
		p.OnSuccess = func(attach.UploadResult) {}
	}
	if p.OnError == nil {
		p.OnError = func(error) {}
	}
	return p
}

// percentTracker forwards byte counts as percentages, skipping repeats and
// unknown totals.
type percentTracker struct {
	last int
	emit func(int)
}

func newPercentTracker(emit func(int)) *percentTracker {
	return &percentTracker{last: -1, emit: emit}
}

func (p *percentTracker) report(loaded, total int64) {
	pct, ok := attach.Percent(loaded, total)
	if !ok || pct == p.last {
		return
	}
	p.last = pct
	p.emit(pct)
}

// seekProgressReader reports the read position of a seekable body. The SDK
// may read the body once to hash it and rewind before sending, or rewind to
// retry, so only positions past the furthest one reported count.
type seekProgressReader struct {
	r       io.ReadSeeker
	pos     int64
	high    int64
	size    int64
	tracker *percentTracker
}

func (s *seekProgressReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		s.pos += int64(n)
		if s.pos > s.high {
			s.high = s.pos
			s.tracker.report(s.pos, s.size)
		}
	}
	return n, err
}

func (s *seekProgressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := s.r.Seek(offset, whence)
	if err == nil {
		s.pos = pos
	}
	return pos, err
}
