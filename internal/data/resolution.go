package data

import (
	"encoding/json"
	"errors"
	"io"
	"time"
)

// SourceDescriptor is the caller-supplied description of where a document
// comes from and how to cache it. Once a resolution attempt has accepted a
// descriptor it is never mutated.
type SourceDescriptor struct {
	URI               string            `json:"uri"`
	CacheEnabled      bool              `json:"cacheEnabled,omitempty"`
	CacheFileName     string            `json:"cacheFileName,omitempty"`
	ExpirationSeconds int64             `json:"expirationSeconds,omitempty"`
	Method            string            `json:"method,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	Body              string            `json:"body,omitempty"`
}

// Expiration returns the cache max-age. Zero means a committed entry never
// expires.
func (s SourceDescriptor) Expiration() time.Duration {
	if s.ExpirationSeconds <= 0 {
		return 0
	}
	return time.Duration(s.ExpirationSeconds) * time.Second
}

// ResolvedSource is the terminal successful output of a resolution: a local
// path the renderer can open, plus whether it came from a prior committed
// download.
type ResolvedSource struct {
	LocalPath string `json:"localPath"`
	FromCache bool   `json:"fromCache"`
}

type ResolutionStatus string

const (
	StatusQueued    ResolutionStatus = "Queued"
	StatusActive    ResolutionStatus = "Active"
	StatusComplete  ResolutionStatus = "Complete"
	StatusFailed    ResolutionStatus = "Failed"
	StatusCancelled ResolutionStatus = "Cancelled"
)

// Terminal reports whether the status is final. A terminal resolution never
// transitions again; later events for it are stale and must be ignored.
func (s ResolutionStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

var (
	ErrMissingSource   = errors.New("source descriptor has no uri")
	ErrMissingConsumer = errors.New("consumer id is required")
	ErrNotFound        = errors.New("resolution not found")
	ErrBadStatus       = errors.New("invalid status")
)

// Resolution records one resolution attempt from descriptor to local path.
type Resolution struct {
	ID         string           `json:"id"`
	ConsumerID string           `json:"consumerId"`
	Source     SourceDescriptor `json:"source"`
	Status     ResolutionStatus `json:"status"`
	LocalPath  string           `json:"localPath,omitempty"`
	FromCache  bool             `json:"fromCache,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

type Resolutions []*Resolution

func (r *Resolutions) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

func (r *Resolution) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

func (r *Resolution) FromJSON(rd io.Reader) error { return json.NewDecoder(rd).Decode(r) }

// Clone returns a copy that shares no mutable state with the receiver.
func (r *Resolution) Clone() *Resolution {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Source.Headers != nil {
		cp.Source.Headers = make(map[string]string, len(r.Source.Headers))
		for k, v := range r.Source.Headers {
			cp.Source.Headers[k] = v
		}
	}
	return &cp
}

// Clone returns a shallow-copied slice of cloned resolutions.
func (rs Resolutions) Clone() Resolutions {
	out := make(Resolutions, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}
