package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/infra/storage"
	"github.com/minhvu/geofetch/internal/infra/storage/memory"
)

func addJob(t *testing.T, store *memory.JobRepo, id string, status domain.JobStatus, completedAgo time.Duration) {
	t.Helper()
	job := &domain.Job{
		ID:        id,
		Status:    status,
		CreatedAt: time.Now().UTC().Add(-completedAgo - time.Hour),
	}
	if status.Terminal() {
		done := time.Now().UTC().Add(-completedAgo)
		job.CompletedAt = &done
	}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
}

func TestRunOnce(t *testing.T) {
	store := memory.NewJobRepo()
	resultsDir := t.TempDir()
	ctx := context.Background()

	addJob(t, store, "old-completed", domain.JobStatusCompleted, 48*time.Hour)
	addJob(t, store, "old-failed", domain.JobStatusFailed, 48*time.Hour)
	addJob(t, store, "fresh-completed", domain.JobStatusCompleted, time.Hour)
	addJob(t, store, "old-running", domain.JobStatusRunning, 48*time.Hour)
	addJob(t, store, "old-pending", domain.JobStatusPending, 48*time.Hour)

	// Artifacts for the expired job.
	outDir := filepath.Join(resultsDir, "old-completed")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "l1.geojson"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(resultsDir, "old-completed_results.zip")
	if err := os.WriteFile(zipPath, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPruner(store, resultsDir, 24*time.Hour)
	removed, err := p.RunOnce(ctx)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	// Expired terminal jobs are gone, record and artifacts both.
	for _, id := range []string{"old-completed", "old-failed"} {
		if _, err := store.Get(ctx, id); !errors.Is(err, storage.ErrJobNotFound) {
			t.Errorf("expected %s removed, got %v", id, err)
		}
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("expected output directory removed")
	}
	if _, err := os.Stat(zipPath); !os.IsNotExist(err) {
		t.Error("expected archive removed")
	}

	// Fresh and non-terminal jobs survive regardless of age.
	for _, id := range []string{"fresh-completed", "old-running", "old-pending"} {
		if _, err := store.Get(ctx, id); err != nil {
			t.Errorf("job %s must survive pruning: %v", id, err)
		}
	}
}

func TestRunOnce_Idempotent(t *testing.T) {
	store := memory.NewJobRepo()
	p := NewPruner(store, t.TempDir(), 24*time.Hour)
	ctx := context.Background()

	addJob(t, store, "old", domain.JobStatusCompleted, 48*time.Hour)

	if n, _ := p.RunOnce(ctx); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if n, _ := p.RunOnce(ctx); n != 0 {
		t.Errorf("second pass must remove nothing, got %d", n)
	}
}

func TestStart_DisabledRetention(t *testing.T) {
	p := NewPruner(memory.NewJobRepo(), t.TempDir(), 0)

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner with zero retention must return immediately")
	}
}
