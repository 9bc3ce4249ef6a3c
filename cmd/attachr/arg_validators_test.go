package main

import "testing"

func TestUploadSources(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "paths", args: []string{"a.txt", "docs"}},
		{name: "stdin alone", args: []string{"-"}},
		{name: "none", args: nil, wantErr: true},
		{name: "stdin with path", args: []string{"a.txt", "-"}, wantErr: true},
		{name: "blank path", args: []string{" "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := uploadSources(nil, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("uploadSources(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestAttachmentIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "one", args: []string{"a"}},
		{name: "many", args: []string{"a", "b"}},
		{name: "none", args: nil, wantErr: true},
		{name: "duplicate", args: []string{"a", "b", "a"}, wantErr: true},
		{name: "blank", args: []string{""}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := attachmentIDs(nil, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("attachmentIDs(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestNoArgsNamesCommand(t *testing.T) {
	err := noArgs("clear")(nil, []string{"x"})
	if err == nil || err.Error() != "clear takes no arguments" {
		t.Fatalf("unexpected error %v", err)
	}
	if err := noArgs("clear")(nil, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
