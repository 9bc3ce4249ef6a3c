package attach

import (
	"strings"
)

// Violation names the class of the first validation failure in a batch.
type Violation string

const (
	ViolationNone Violation = ""
	ViolationType Violation = "type"
	ViolationSize Violation = "size"
)

const bytesPerMB = 1024 * 1024

var extensionAliases = map[string]string{
	"md":  "markdown",
	"htm": "html",
}

// FileExtension returns the lowercased text after the last dot in name. A
// name without a dot is its own extension.
func FileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return strings.ToLower(name)
	}
	return strings.ToLower(name[idx+1:])
}

func canonicalExtension(ext string) string {
	ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
	if alias, ok := extensionAliases[ext]; ok {
		return alias
	}
	return ext
}

// IsAllowedType reports whether the extension of name is in allowed.
func IsAllowedType(name string, allowed []string) bool {
	ext := canonicalExtension(FileExtension(name))
	for _, candidate := range allowed {
		if canonicalExtension(candidate) == ext {
			return true
		}
	}
	return false
}

// IsWithinSizeLimit reports whether size fits in limitMB megabytes.
func IsWithinSizeLimit(size int64, limitMB int) bool {
	return size <= int64(limitMB)*bytesPerMB
}

// PartitionValid returns the files that pass both checks and the first
// violation class found. Type violations win over size violations.
func PartitionValid(files []RawFile, allowed []string, limits Limits) ([]RawFile, Violation) {
	valid := make([]RawFile, 0, len(files))
	typeFailed := false
	sizeFailed := false
	for _, file := range files {
		if file == nil {
			continue
		}
		if !IsAllowedType(file.Name(), allowed) {
			typeFailed = true
			continue
		}
		if !IsWithinSizeLimit(file.Size(), limits.FileSizeLimitMB) {
			sizeFailed = true
			continue
		}
		valid = append(valid, file)
	}

	switch {
	case typeFailed:
		return valid, ViolationType
	case sizeFailed:
		return valid, ViolationSize
	default:
		return valid, ViolationNone
	}
}

// NormalizeExtensions lowercases, strips leading dots, maps aliases and
// removes duplicates while keeping first-seen order.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		value := canonicalExtension(ext)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// AcceptFilter builds a picker accept string such as ".png,.jpg".
func AcceptFilter(allowed []string) string {
	exts := NormalizeExtensions(allowed)
	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		parts = append(parts, "."+ext)
	}
	return strings.Join(parts, ",")
}
