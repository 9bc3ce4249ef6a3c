package main

import (
	"context"
	"errors"
	"net"

	"attachr/internal/api"
	"attachr/internal/indexing"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify ATTACHR_API_TOKEN configuration.")
		case "file_too_large", "too_many_files":
			lines = append(lines, "hint: the backend enforces its own limits; check `attachr config get upload.file_size_limit_mb`.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify ATTACHR_API_URL points to an upload API.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		if apiErr.Retryable() {
			lines = append(lines, "hint: this failure is usually transient; run the command again shortly.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, indexing.ErrPollExhausted) {
		lines = append(lines, "hint: indexing is still running; check again later with: attachr index --status")
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase ATTACHR_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure the upload API is reachable at ATTACHR_API_URL.",
			"hint: you can increase ATTACHR_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
