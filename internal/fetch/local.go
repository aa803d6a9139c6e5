package fetch

import (
	"context"
	"os"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/source"
)

// LocalPassthrough uses the described file where it already lives: the
// local-file prefix is stripped, the remainder percent-decoded, and the path
// handed over without copying. No temp file is ever created.
type LocalPassthrough struct{}

var _ Strategy = LocalPassthrough{}

func (LocalPassthrough) Fetch(_ context.Context, src data.SourceDescriptor, _ string, _ ProgressFunc) (*data.ResolvedSource, error) {
	path := source.LocalPath(src.URI)

	if _, err := os.Stat(path); err != nil {
		return nil, &FileSystemError{Op: "stat", Path: path, Err: err}
	}

	return &data.ResolvedSource{LocalPath: path, FromCache: false}, nil
}
