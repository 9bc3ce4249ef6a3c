package main

import (
	"log/slog"
	"strings"

	"attachr/internal/models"
)

// transferMethods parses configured method names. Unknown names are skipped;
// config validation has already rejected them.
func transferMethods(raw []string) []models.TransferMethod {
	out := make([]models.TransferMethod, 0, len(raw))
	for _, value := range raw {
		method, err := models.ParseTransferMethod(value)
		if err != nil {
			slog.Warn("ignoring transfer method", "value", value, "error", err)
			continue
		}
		out = append(out, method)
	}
	return out
}

func splitCommaList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
