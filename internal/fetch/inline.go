package fetch

import (
	"context"
	"encoding/base64"
	"os"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/source"
)

// InlineDecoder writes an inline base64 PDF payload directly to the final
// path. No network activity and no progress callbacks.
type InlineDecoder struct{}

var _ Strategy = InlineDecoder{}

func (InlineDecoder) Fetch(_ context.Context, src data.SourceDescriptor, dest string, _ ProgressFunc) (*data.ResolvedSource, error) {
	raw, err := base64.StdEncoding.DecodeString(source.InlinePayload(src.URI))
	if err != nil {
		return nil, &FileSystemError{Op: "decode", Path: dest, Err: err}
	}

	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		_ = os.Remove(dest)
		return nil, &FileSystemError{Op: "write", Path: dest, Err: err}
	}

	return &data.ResolvedSource{LocalPath: dest, FromCache: false}, nil
}
