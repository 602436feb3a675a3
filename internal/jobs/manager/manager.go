// Package manager owns the job lifecycle: it creates job records, runs each
// started job as an independent background goroutine, drives the per-layer
// loop through the executor and finalizes the job with an aggregated result
// set. All job state lives in the store; the manager holds no long-lived
// mutable reference to a record and performs every mutation read-modify-write.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minhvu/geofetch/internal/aoi"
	"github.com/minhvu/geofetch/internal/archive"
	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/fetch"
	"github.com/minhvu/geofetch/internal/infra/redis"
	"github.com/minhvu/geofetch/internal/infra/storage"
	"github.com/minhvu/geofetch/internal/jobs/executor"
	"github.com/minhvu/geofetch/internal/jobs/metrics"
)

var (
	// ErrNoLayers is returned when a request asks for nothing.
	ErrNoLayers = errors.New("request must name at least one layer")
	// ErrNoSource is returned when a request omits the source id.
	ErrNoSource = errors.New("request must name a data source")
)

// Manager orchestrates download jobs.
type Manager struct {
	ctx        context.Context
	store      storage.JobRepository
	sources    *fetch.Registry
	exec       *executor.Executor
	cache      *redis.StatusCache
	resultsDir string

	inFlight *registry
	wg       sync.WaitGroup
}

// New creates a Manager. ctx bounds the lifetime of every background
// execution the manager launches; cache may be nil.
func New(ctx context.Context, store storage.JobRepository, sources *fetch.Registry,
	exec *executor.Executor, cache *redis.StatusCache, resultsDir string) (*Manager, error) {

	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &Manager{
		ctx:        ctx,
		store:      store,
		sources:    sources,
		exec:       exec,
		cache:      cache,
		resultsDir: resultsDir,
		inFlight:   newRegistry(),
	}, nil
}

// CreateJob writes a new Pending record and returns its id. No background
// work starts here: defining a job and executing it are separate steps.
func (m *Manager) CreateJob(ctx context.Context, req domain.JobRequest) (string, error) {
	if req.SourceID == "" {
		return "", ErrNoSource
	}
	if len(req.LayerIDs) == 0 {
		return "", ErrNoLayers
	}

	job := &domain.Job{
		ID:        uuid.New().String(),
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
		Request:   req,
		Progress:  domain.Progress{TotalLayers: len(req.LayerIDs)},
	}
	if err := m.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	metrics.JobsCreated.Inc()
	slog.Info("created job", "job", job.ID, "source", req.SourceID, "layers", len(req.LayerIDs))
	return job.ID, nil
}

// StartJob launches the job's execution in the background. If an execution
// is already registered for the id this is a no-op; the registration is
// removed when the execution finishes, so a job could in principle be
// started again later.
func (m *Manager) StartJob(id string) error {
	if _, err := m.store.Get(m.ctx, id); err != nil {
		return err
	}

	if !m.inFlight.acquire(id) {
		slog.Warn("job is already running", "job", id)
		return nil
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.inFlight.release(id)
		m.run(id)
	}()
	return nil
}

// GetJob returns the current record for a job id, preferring the cache.
func (m *Manager) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	if job, ok := m.cache.Get(ctx, id); ok {
		return job, nil
	}
	return m.store.Get(ctx, id)
}

// ResultPath returns the archive path for a completed job.
func (m *Manager) ResultPath(ctx context.Context, id string) (string, error) {
	job, err := m.GetJob(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Progress.ArchivePath == "" {
		return "", domain.ErrNoResult
	}
	if _, err := os.Stat(job.Progress.ArchivePath); err != nil {
		return "", domain.ErrNoResult
	}
	return job.Progress.ArchivePath, nil
}

// DeleteJob removes the persisted record and any produced artifacts.
func (m *Manager) DeleteJob(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.cache.Invalidate(ctx, id)

	if err := os.RemoveAll(m.outputDir(id)); err != nil {
		slog.Warn("failed to remove job output directory", "job", id, "error", err)
	}
	if err := os.Remove(m.archivePath(id)); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove job archive", "job", id, "error", err)
	}
	return nil
}

// Wait blocks until every in-flight execution has finished or ctx expires.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) outputDir(id string) string {
	return filepath.Join(m.resultsDir, id)
}

func (m *Manager) archivePath(id string) string {
	return filepath.Join(m.resultsDir, id+"_results.zip")
}

// run is the execution body for one job. Layer-level failures are folded
// into outcomes by the executor and never abort the loop; anything else
// transitions the job to Failed.
func (m *Manager) run(id string) {
	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	start := time.Now()
	slog.Info("starting job", "job", id)

	job, err := m.store.Get(m.ctx, id)
	if err != nil {
		slog.Error("failed to load job record", "job", id, "error", err)
		return
	}

	// Resolve the request up front: a bad AOI or unknown source fails the
	// job before it ever enters Running.
	bounds, err := aoi.Resolve(job.Request.AOI)
	if err != nil {
		m.fail(job, err)
		return
	}
	source, err := m.sources.Get(job.Request.SourceID)
	if err != nil {
		m.fail(job, err)
		return
	}

	if err := m.markRunning(job); err != nil {
		slog.Error("failed to mark job running", "job", id, "error", err)
		return
	}

	results, archivePath, err := m.process(job, source, bounds)
	if err != nil {
		m.fail(job, err)
		return
	}

	job.Status = domain.JobStatusCompleted
	now := time.Now().UTC()
	job.CompletedAt = &now
	job.Results = results
	job.Progress = domain.Progress{
		CompletedLayers: len(results),
		TotalLayers:     len(results),
		PercentComplete: 100,
		ArchivePath:     archivePath,
	}
	if err := m.persist(job); err != nil {
		slog.Error("failed to finalize job", "job", id, "error", err)
		return
	}

	metrics.JobsFinished.WithLabelValues(string(domain.JobStatusCompleted)).Inc()
	slog.Info("job completed", "job", id,
		"layers", len(results), "duration", time.Since(start).Round(time.Millisecond))
}

// process drives the ordered per-layer loop for a resolved request.
func (m *Manager) process(job *domain.Job, source fetch.Source, bounds domain.Bounds) ([]domain.LayerOutcome, string, error) {
	req := job.Request

	outDir := m.outputDir(job.ID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create job output directory: %w", err)
	}

	total := len(req.LayerIDs)
	results := make([]domain.LayerOutcome, 0, total)

	for i, layerID := range req.LayerIDs {
		job.Progress = domain.Progress{
			CurrentLayer:    layerID,
			CompletedLayers: i,
			TotalLayers:     total,
			PercentComplete: float64(i) / float64(total) * 100,
		}
		if err := m.persist(job); err != nil {
			return nil, "", fmt.Errorf("failed to persist progress: %w", err)
		}

		slog.Info("processing layer", "job", job.ID, "layer", layerID, "index", i+1, "total", total)

		outcome := m.exec.Execute(m.ctx, layerID, func(ctx context.Context) (*domain.LayerOutcome, error) {
			// A request-level timeout bounds each individual attempt.
			if req.Options.TimeoutSeconds > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Options.TimeoutSeconds)*time.Second)
				defer cancel()
			}
			return source.FetchLayer(ctx, layerID, bounds, outDir, req.Options)
		})
		results = append(results, outcome)

		outcomeLabel := "success"
		if !outcome.Success {
			outcomeLabel = "failure"
		}
		metrics.LayersProcessed.WithLabelValues(req.SourceID, outcomeLabel).Inc()
	}

	// Packaging is best-effort; the job completes either way.
	archivePath, err := archive.Pack(outDir, m.archivePath(job.ID))
	if err != nil {
		slog.Error("failed to package job results", "job", job.ID, "error", err)
		archivePath = ""
	}

	return results, archivePath, nil
}

// markRunning transitions the job into Running, setting startedAt exactly
// once across the job's lifetime.
func (m *Manager) markRunning(job *domain.Job) error {
	job.Status = domain.JobStatusRunning
	if job.StartedAt == nil {
		now := time.Now().UTC()
		job.StartedAt = &now
	}
	return m.persist(job)
}

// fail transitions the job to Failed, discarding any partial results.
func (m *Manager) fail(job *domain.Job, cause error) {
	slog.Error("job failed", "job", job.ID, "error", cause)

	job.Status = domain.JobStatusFailed
	job.ErrorMessage = cause.Error()
	job.Results = nil
	now := time.Now().UTC()
	job.CompletedAt = &now
	if err := m.persist(job); err != nil {
		slog.Error("failed to persist failed state", "job", job.ID, "error", err)
		return
	}
	metrics.JobsFinished.WithLabelValues(string(domain.JobStatusFailed)).Inc()
}

// persist rewrites the full job record and refreshes the status cache.
func (m *Manager) persist(job *domain.Job) error {
	if err := m.store.Update(m.ctx, job); err != nil {
		return err
	}
	if err := m.cache.Set(m.ctx, job); err != nil {
		slog.Debug("failed to refresh status cache", "job", job.ID, "error", err)
	}
	return nil
}
