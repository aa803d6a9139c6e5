package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/davekyte/docdock/internal/data"
)

func TestInMemoryResolutionRepo(t *testing.T) {
	ctx := context.Background()

	newRecord := func() *data.Resolution {
		return &data.Resolution{
			ConsumerID: "viewer-1",
			Source:     data.SourceDescriptor{URI: "https://host/doc.pdf", Headers: map[string]string{"Accept": "application/pdf"}},
			Status:     data.StatusQueued,
		}
	}

	t.Run("add assigns id and get round-trips", func(t *testing.T) {
		r := NewInMemoryResolutionRepo()
		added, err := r.Add(ctx, newRecord())
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if added.ID == "" {
			t.Fatalf("expected an assigned id")
		}

		got, err := r.Get(ctx, added.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ConsumerID != "viewer-1" || got.Status != data.StatusQueued {
			t.Fatalf("round-trip mismatch: %+v", got)
		}
	})

	t.Run("returned records are isolated copies", func(t *testing.T) {
		r := NewInMemoryResolutionRepo()
		added, _ := r.Add(ctx, newRecord())

		added.Status = data.StatusFailed
		added.Source.Headers["Accept"] = "tampered"

		got, err := r.Get(ctx, added.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status != data.StatusQueued {
			t.Fatalf("store mutated through a returned record")
		}
		if got.Source.Headers["Accept"] != "application/pdf" {
			t.Fatalf("store headers mutated through a returned record")
		}
	})

	t.Run("update mutates in place", func(t *testing.T) {
		r := NewInMemoryResolutionRepo()
		added, _ := r.Add(ctx, newRecord())

		updated, err := r.Update(ctx, added.ID, func(rec *data.Resolution) error {
			rec.Status = data.StatusComplete
			rec.LocalPath = "/cache/doc.pdf"
			return nil
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Status != data.StatusComplete || updated.LocalPath != "/cache/doc.pdf" {
			t.Fatalf("update not applied: %+v", updated)
		}

		got, _ := r.Get(ctx, added.ID)
		if got.Status != data.StatusComplete {
			t.Fatalf("update not persisted")
		}
	})

	t.Run("unknown ids surface ErrNotFound", func(t *testing.T) {
		r := NewInMemoryResolutionRepo()
		if _, err := r.Get(ctx, "missing"); !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("Get: %v", err)
		}
		if _, err := r.Update(ctx, "missing", nil); !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("Update: %v", err)
		}
		if err := r.Delete(ctx, "missing"); !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("Delete: %v", err)
		}
	})

	t.Run("delete removes from the list", func(t *testing.T) {
		r := NewInMemoryResolutionRepo()
		added, _ := r.Add(ctx, newRecord())
		if err := r.Delete(ctx, added.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		recs, _ := r.List(ctx)
		if len(recs) != 0 {
			t.Fatalf("expected empty list, got %d", len(recs))
		}
	})
}
