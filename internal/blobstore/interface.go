// Package blobstore is the retry spool: a content-addressed copy of payloads
// that have no other durable source, such as stdin pastes.
package blobstore

import (
	"context"
	"io"
	"strings"
)

// OriginPrefix marks a record origin that points into the spool.
const OriginPrefix = "cas:"

// PutResult describes one spooled payload.
type PutResult struct {
	SHA256 string
	Size   int64
	Key    string
}

// Spool keeps payload bytes until the records referencing them are gone.
type Spool interface {
	Put(ctx context.Context, r io.Reader) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Prune(ctx context.Context, keep map[string]struct{}) (int, error)
}

// Origin returns the record origin for a spool key.
func Origin(key string) string {
	return OriginPrefix + key
}

// KeyFromOrigin extracts the spool key from a record origin.
func KeyFromOrigin(origin string) (string, bool) {
	key, ok := strings.CutPrefix(origin, OriginPrefix)
	if !ok || strings.TrimSpace(key) == "" {
		return "", false
	}
	return key, true
}
