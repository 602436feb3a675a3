package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/infra/storage"
)

func newJob(id string) *domain.Job {
	return &domain.Job{
		ID:        id,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
		Request:   domain.JobRequest{SourceID: "usgs", LayerIDs: []string{"ned_1m"}},
	}
}

func TestJobRepo_CRUD(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, newJob("j1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got.Status = domain.JobStatusRunning
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	again, _ := repo.Get(ctx, "j1")
	if again.Status != domain.JobStatusRunning {
		t.Errorf("update not visible: %q", again.Status)
	}

	if err := repo.Delete(ctx, "j1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "j1"); !errors.Is(err, storage.ErrJobNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestJobRepo_NotFound(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "x"); !errors.Is(err, storage.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
	if err := repo.Update(ctx, newJob("x")); !errors.Is(err, storage.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on update, got %v", err)
	}
	if err := repo.Delete(ctx, "x"); !errors.Is(err, storage.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on delete, got %v", err)
	}
}

// Records handed out by the store are copies: mutating them must not leak
// back into the stored generation.
func TestJobRepo_Isolation(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()

	original := newJob("j1")
	if err := repo.Create(ctx, original); err != nil {
		t.Fatal(err)
	}
	original.Status = domain.JobStatusFailed

	stored, _ := repo.Get(ctx, "j1")
	if stored.Status != domain.JobStatusPending {
		t.Error("caller mutation leaked into the store")
	}

	stored.Request.LayerIDs[0] = "tampered"
	fresh, _ := repo.Get(ctx, "j1")
	if fresh.Request.LayerIDs[0] != "ned_1m" {
		t.Error("read copy shares state with the store")
	}
}

func TestJobRepo_List(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list on empty store failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected empty list, got %d", len(jobs))
	}

	for _, id := range []string{"a", "b"} {
		_ = repo.Create(ctx, newJob(id))
	}
	jobs, _ = repo.List(ctx)
	if len(jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(jobs))
	}
}
