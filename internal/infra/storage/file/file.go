package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/infra/storage"
)

// JobRepo persists one JSON file per job id under a directory. This is the
// default backend; each update rewrites the whole record through a temp
// file rename so a crash mid-write leaves either the old or the new
// generation, never a torn one.
type JobRepo struct {
	dir string
}

// NewJobRepo creates the jobs directory if needed.
func NewJobRepo(dir string) (*JobRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create jobs directory: %w", err)
	}
	return &JobRepo{dir: dir}, nil
}

func (r *JobRepo) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *JobRepo) write(job *domain.Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	tmp, err := os.CreateTemp(r.dir, job.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write job record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path(job.ID)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist job record: %w", err)
	}
	return nil
}

func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	return r.write(job)
}

func (r *JobRepo) Get(ctx context.Context, id string) (*domain.Job, error) {
	data, err := os.ReadFile(r.path(id))
	if os.IsNotExist(err) {
		return nil, storage.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job record: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job record %s: %w", id, err)
	}
	return &job, nil
}

func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	if _, err := os.Stat(r.path(job.ID)); os.IsNotExist(err) {
		return storage.ErrJobNotFound
	}
	return r.write(job)
}

func (r *JobRepo) Delete(ctx context.Context, id string) error {
	err := os.Remove(r.path(id))
	if os.IsNotExist(err) {
		return storage.ErrJobNotFound
	}
	return err
}

func (r *JobRepo) List(ctx context.Context) ([]*domain.Job, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	var jobs []*domain.Job
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		job, err := r.Get(ctx, id)
		if err != nil {
			continue // skip unreadable records
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
