package fetch

import (
	"context"
	"io"
	"io/fs"
	"os"

	"github.com/davekyte/docdock/internal/data"
	"github.com/davekyte/docdock/internal/source"
)

// AssetCopier copies a bundled asset out of the asset namespace to the final
// path. The copy is synchronous relative to the resolution attempt.
type AssetCopier struct {
	assets fs.FS
}

func NewAssetCopier(assets fs.FS) *AssetCopier {
	return &AssetCopier{assets: assets}
}

var _ Strategy = (*AssetCopier)(nil)

func (a *AssetCopier) Fetch(_ context.Context, src data.SourceDescriptor, dest string, _ ProgressFunc) (*data.ResolvedSource, error) {
	name := source.AssetName(src.URI)

	in, err := a.assets.Open(name)
	if err != nil {
		return nil, &FileSystemError{Op: "open asset", Path: name, Err: err}
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dest)
	if err != nil {
		return nil, &FileSystemError{Op: "create", Path: dest, Err: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return nil, &FileSystemError{Op: "copy asset", Path: dest, Err: err}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return nil, &FileSystemError{Op: "close", Path: dest, Err: err}
	}

	return &data.ResolvedSource{LocalPath: dest, FromCache: false}, nil
}
