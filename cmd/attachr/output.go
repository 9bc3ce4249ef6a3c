package main

import (
	"fmt"
	"io"
	"os"

	"attachr/internal/format"
	"attachr/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

var stdout io.Writer = os.Stdout

func writeStructured(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

// writeRecords prints records in the selected output mode.
func writeRecords(flags *globalFlags, records []models.Attachment) error {
	if records == nil {
		records = []models.Attachment{}
	}
	if flags.structured() {
		return writeStructured(records)
	}
	for _, rec := range records {
		if err := writePlain("%s\n", formatRecordLine(rec)); err != nil {
			return err
		}
	}
	return nil
}

func formatRecordLine(rec models.Attachment) string {
	mark := "○"
	switch {
	case rec.Deleted:
		mark = "×"
	case rec.Failed():
		mark = "!"
	case rec.Usable():
		mark = "●"
	}

	name := rec.Name
	if rec.RelativePath != "" {
		name = rec.RelativePath
	}
	line := fmt.Sprintf("%s %s [%s] %s (%s)", mark, rec.ID, rec.Status(), name, humanSize(rec.Size))
	if rec.UploadedID != "" {
		line += " -> " + rec.UploadedID
	}
	return line
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
