package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/davekyte/docdock/internal/data"
)

type InMemoryResolutionRepo struct {
	mu          sync.RWMutex
	resolutions data.Resolutions
}

func NewInMemoryResolutionRepo() *InMemoryResolutionRepo {
	return &InMemoryResolutionRepo{
		resolutions: make(data.Resolutions, 0),
	}
}

var _ ResolutionRepo = (*InMemoryResolutionRepo)(nil)

func (r *InMemoryResolutionRepo) List(ctx context.Context) (data.Resolutions, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolutions.Clone(), nil
}

func (r *InMemoryResolutionRepo) Get(ctx context.Context, id string) (*data.Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (r *InMemoryResolutionRepo) Add(ctx context.Context, rec *data.Resolution) (*data.Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.resolutions = append(r.resolutions, rec.Clone())
	return rec.Clone(), nil
}

func (r *InMemoryResolutionRepo) Update(ctx context.Context, id string, mutate func(*data.Resolution) error) (*data.Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		if err := mutate(rec); err != nil {
			return nil, err
		}
	}
	return rec.Clone(), nil
}

func (r *InMemoryResolutionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.resolutions {
		if rec.ID == id {
			r.resolutions = append(r.resolutions[:i], r.resolutions[i+1:]...)
			return nil
		}
	}
	return data.ErrNotFound
}

func (r *InMemoryResolutionRepo) findByID(id string) (*data.Resolution, error) {
	for _, rec := range r.resolutions {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, data.ErrNotFound
}
