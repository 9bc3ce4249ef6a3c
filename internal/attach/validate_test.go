package attach

import (
	"testing"

	"attachr/internal/api"
)

func TestIsAllowedType(t *testing.T) {
	allowed := []string{"png", "JPG", ".gif", "markdown"}
	tests := []struct {
		name string
		want bool
	}{
		{"cat.png", true},
		{"CAT.PNG", true},
		{"photo.jpg", true},
		{"anim.gif", true},
		{"archive.tar.png", true},
		{"notes.md", true},
		{"notes.txt", false},
		{"png", true},
		{"README", false},
		{"trailing.", false},
	}
	for _, tt := range tests {
		if got := IsAllowedType(tt.name, allowed); got != tt.want {
			t.Fatalf("IsAllowedType(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFileExtension(t *testing.T) {
	tests := map[string]string{
		"a.PNG":       "png",
		"a.tar.gz":    "gz",
		"Makefile":    "makefile",
		".gitignore":  "gitignore",
		"no-ext.":     "",
		"dir.d/x.txt": "txt",
	}
	for name, want := range tests {
		if got := FileExtension(name); got != want {
			t.Fatalf("FileExtension(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestIsWithinSizeLimitBoundary(t *testing.T) {
	const limitMB = 2
	exact := int64(limitMB * 1024 * 1024)
	if !IsWithinSizeLimit(exact, limitMB) {
		t.Fatal("expected file of exactly the limit to pass")
	}
	if IsWithinSizeLimit(exact+1, limitMB) {
		t.Fatal("expected file one byte over the limit to fail")
	}
	if !IsWithinSizeLimit(0, limitMB) {
		t.Fatal("expected empty file to pass")
	}
}

func TestPartitionValid(t *testing.T) {
	limits := Limits{FileSizeLimitMB: 1, BatchCountLimit: 5, TotalCountLimit: 10}
	allowed := []string{"png", "txt"}
	big := int64(2 * 1024 * 1024)

	tests := []struct {
		name      string
		files     []RawFile
		wantValid int
		want      Violation
	}{
		{
			name:      "all valid",
			files:     []RawFile{sizedFile("a.png", 10), sizedFile("b.txt", 10)},
			wantValid: 2,
			want:      ViolationNone,
		},
		{
			name:      "type and size offenders report type",
			files:     []RawFile{sizedFile("big.png", big), sizedFile("bad.exe", 10), sizedFile("ok.png", 10)},
			wantValid: 1,
			want:      ViolationType,
		},
		{
			name:      "size offender only",
			files:     []RawFile{sizedFile("big.png", big), sizedFile("ok.txt", 1)},
			wantValid: 1,
			want:      ViolationSize,
		},
		{
			name:      "type offender after size offender still reports type",
			files:     []RawFile{sizedFile("big.png", big), sizedFile("bad.exe", big)},
			wantValid: 0,
			want:      ViolationType,
		},
		{
			name:      "nil entries are skipped",
			files:     []RawFile{nil, sizedFile("a.png", 1)},
			wantValid: 1,
			want:      ViolationNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, violation := PartitionValid(tt.files, allowed, limits)
			if len(valid) != tt.wantValid {
				t.Fatalf("expected %d valid files, got %d", tt.wantValid, len(valid))
			}
			if violation != tt.want {
				t.Fatalf("expected violation %q, got %q", tt.want, violation)
			}
		})
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{".PNG", "md", "markdown", "htm", " jpg ", "", "png"})
	want := []string{"png", "markdown", "html", "jpg"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAcceptFilter(t *testing.T) {
	if got := AcceptFilter([]string{"png", ".JPG", "png"}); got != ".png,.jpg" {
		t.Fatalf("unexpected accept filter %q", got)
	}
	if got := AcceptFilter(nil); got != "" {
		t.Fatalf("expected empty accept filter, got %q", got)
	}
}

func TestResolveLimits(t *testing.T) {
	tests := []struct {
		name     string
		remote   *api.UploadConfigResponse
		fallback Limits
		want     Limits
	}{
		{
			name: "no remote config uses defaults",
			want: DefaultLimits(),
		},
		{
			name:   "remote values win",
			remote: &api.UploadConfigResponse{ImageFileBatchLimit: 3, SingleChunkAttachmentLimit: 20, AttachmentImageFileSizeLimit: 15},
			want:   Limits{FileSizeLimitMB: 15, BatchCountLimit: 3, TotalCountLimit: 20},
		},
		{
			name:   "non-positive remote values fall back",
			remote: &api.UploadConfigResponse{ImageFileBatchLimit: 0, SingleChunkAttachmentLimit: -4, AttachmentImageFileSizeLimit: 8},
			want:   Limits{FileSizeLimitMB: 8, BatchCountLimit: DefaultBatchCountLimit, TotalCountLimit: DefaultTotalCountLimit},
		},
		{
			name:     "local fallback is kept when remote is absent",
			remote:   &api.UploadConfigResponse{},
			fallback: Limits{FileSizeLimitMB: 4, BatchCountLimit: 2, TotalCountLimit: 0},
			want:     Limits{FileSizeLimitMB: 4, BatchCountLimit: 2, TotalCountLimit: DefaultTotalCountLimit},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveLimits(tt.remote, tt.fallback); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		loaded, total int64
		want          int
		ok            bool
	}{
		{0, 100, 0, true},
		{42, 100, 42, true},
		{999, 1000, 99, true},
		{100, 100, 99, true},
		{150, 100, 99, true},
		{10, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := Percent(tt.loaded, tt.total)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("Percent(%d, %d) = %d, %v; want %d, %v", tt.loaded, tt.total, got, ok, tt.want, tt.ok)
		}
	}
}
