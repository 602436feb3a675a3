package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/minhvu/geofetch/internal/infra/storage"
)

// Pruner deletes terminal jobs and their artifacts once they outlive the
// retention period.
type Pruner struct {
	store      storage.JobRepository
	resultsDir string
	retention  time.Duration
}

// NewPruner creates a new Pruner worker.
func NewPruner(store storage.JobRepository, resultsDir string, retention time.Duration) *Pruner {
	return &Pruner{store: store, resultsDir: resultsDir, retention: retention}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // retention disabled
	}

	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	n, err := p.RunOnce(ctx)
	if err != nil {
		slog.Error("pruner pass failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("pruned expired jobs", "count", n)
	}
}

// RunOnce performs a single retention pass and returns how many jobs it
// removed. Also used by the cleanup command.
func (p *Pruner) RunOnce(ctx context.Context) (int, error) {
	jobs, err := p.store.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-p.retention)
	removed := 0

	for _, job := range jobs {
		if !job.Status.Terminal() || job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
			continue
		}

		if err := p.store.Delete(ctx, job.ID); err != nil {
			slog.Warn("failed to delete expired job record", "job", job.ID, "error", err)
			continue
		}
		if err := os.RemoveAll(filepath.Join(p.resultsDir, job.ID)); err != nil {
			slog.Warn("failed to remove expired job outputs", "job", job.ID, "error", err)
		}
		zipPath := filepath.Join(p.resultsDir, job.ID+"_results.zip")
		if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove expired job archive", "job", job.ID, "error", err)
		}
		removed++
	}
	return removed, nil
}
