package repo

import (
	"context"

	"github.com/davekyte/docdock/internal/data"
)

type ResolutionRepo interface {
	ResolutionReader
	ResolutionWriter
}

type ResolutionReader interface {
	List(ctx context.Context) (data.Resolutions, error)
	Get(ctx context.Context, id string) (*data.Resolution, error)
}

type ResolutionWriter interface {
	Add(ctx context.Context, r *data.Resolution) (*data.Resolution, error)
	// Update fetches the record, applies mutate, and writes it back.
	Update(ctx context.Context, id string, mutate func(*data.Resolution) error) (*data.Resolution, error)
	Delete(ctx context.Context, id string) error
}
