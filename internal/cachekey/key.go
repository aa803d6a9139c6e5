package cachekey

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/davekyte/docdock/internal/data"
)

// Suffix is appended to derived cache keys so committed files keep a
// renderer-friendly extension.
const Suffix = ".pdf"

// Hasher derives a stable identifier from a source URI. It is an injectable
// capability so key derivation is testable without a real digest.
type Hasher interface {
	Sum(s string) string
}

// SHA256 is the production Hasher: hex-encoded SHA-256 of the input.
type SHA256 struct{}

func (SHA256) Sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Derive computes the cache key for a descriptor. An explicit cacheFileName
// always wins; otherwise the key is a deterministic hash of the URI with a
// fixed suffix, so the same URI maps to the same key on every call.
func Derive(h Hasher, d data.SourceDescriptor) string {
	if d.CacheFileName != "" {
		return d.CacheFileName
	}
	return h.Sum(d.URI) + Suffix
}
