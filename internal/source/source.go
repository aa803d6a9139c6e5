package source

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/davekyte/docdock/internal/data"
)

// Scheme identifies the acquisition strategy for an effective URI. The set
// is closed: every URI classifies to exactly one scheme, with bare paths
// falling through to SchemeFile.
type Scheme int

const (
	SchemeHTTP Scheme = iota
	SchemeAsset
	SchemeData
	SchemeFile
)

const (
	assetPrefix = "asset://"
	dataPrefix  = "data:application/pdf;base64,"
	filePrefix  = "file://"
)

func (s Scheme) String() string {
	switch s {
	case SchemeHTTP:
		return "http"
	case SchemeAsset:
		return "asset"
	case SchemeData:
		return "data"
	default:
		return "file"
	}
}

// Normalize validates and canonicalizes a descriptor. An empty URI is a
// terminal, non-retryable condition reported as data.ErrMissingSource.
// Normalize has no side effects.
func Normalize(d data.SourceDescriptor) (data.SourceDescriptor, error) {
	d.URI = strings.TrimSpace(d.URI)
	if d.URI == "" {
		return d, data.ErrMissingSource
	}
	d.CacheFileName = strings.TrimSpace(d.CacheFileName)
	if d.Method == "" {
		d.Method = http.MethodGet
	}
	return d, nil
}

// Classify selects the acquisition scheme by prefix match, in precedence
// order: network, bundled asset, inline base64 PDF payload, local path.
func Classify(uri string) Scheme {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return SchemeHTTP
	case strings.HasPrefix(uri, assetPrefix):
		return SchemeAsset
	case strings.HasPrefix(uri, dataPrefix):
		return SchemeData
	default:
		return SchemeFile
	}
}

// AssetName returns the name of a bundled asset inside the asset namespace.
func AssetName(uri string) string {
	return strings.TrimPrefix(uri, assetPrefix)
}

// InlinePayload returns the base64 payload of an inline data URI.
func InlinePayload(uri string) string {
	return strings.TrimPrefix(uri, dataPrefix)
}

// LocalPath strips the local-file prefix and percent-decodes the remainder.
// A bare path passes through unchanged apart from decoding.
func LocalPath(uri string) string {
	p := strings.TrimPrefix(uri, filePrefix)
	if dec, err := url.PathUnescape(p); err == nil {
		p = dec
	}
	return p
}
