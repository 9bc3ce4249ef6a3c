package models

import "testing"

func TestAttachmentStatus(t *testing.T) {
	tests := []struct {
		name     string
		progress int
		want     string
	}{
		{name: "failed", progress: ProgressFailed, want: "failed"},
		{name: "not started", progress: ProgressNotStarted, want: "uploading 0%"},
		{name: "midway", progress: 42, want: "uploading 42%"},
		{name: "complete", progress: ProgressComplete, want: "complete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Attachment{Progress: tt.progress}.Status().String()
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAttachmentStatusCompleteCarriesUploadedID(t *testing.T) {
	status := Attachment{Progress: ProgressComplete, UploadedID: "srv-1"}.Status()
	complete, ok := status.(StatusComplete)
	if !ok {
		t.Fatalf("expected StatusComplete, got %T", status)
	}
	if complete.UploadedID != "srv-1" {
		t.Fatalf("expected uploaded id srv-1, got %q", complete.UploadedID)
	}
}

func TestAttachmentUsable(t *testing.T) {
	if (Attachment{Progress: 50}).Usable() {
		t.Fatal("in-flight attachment should not be usable")
	}
	if !(Attachment{Progress: ProgressComplete}).Usable() {
		t.Fatal("completed attachment should be usable")
	}
	if !(Attachment{Progress: ProgressFailed, UploadedID: "srv-1"}).Usable() {
		t.Fatal("attachment with uploaded id should be usable")
	}
}

func TestValidProgress(t *testing.T) {
	for _, p := range []int{-1, 0, 1, 99, 100} {
		if !ValidProgress(p) {
			t.Fatalf("expected %d to be valid", p)
		}
	}
	for _, p := range []int{-2, 101} {
		if ValidProgress(p) {
			t.Fatalf("expected %d to be invalid", p)
		}
	}
}

func TestParseTransferMethod(t *testing.T) {
	got, err := ParseTransferMethod(" Local_File ")
	if err != nil {
		t.Fatalf("parse transfer method: %v", err)
	}
	if got != TransferLocalFile {
		t.Fatalf("expected %q, got %q", TransferLocalFile, got)
	}
	if _, err := ParseTransferMethod("carrier_pigeon"); err == nil {
		t.Fatal("expected invalid transfer method error")
	}
}
