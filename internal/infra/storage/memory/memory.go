package memory

import (
	"context"
	"sync"

	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/infra/storage"
)

// JobRepo is an in-memory storage.JobRepository. Records are stored as deep
// copies so callers and the store never share mutable state. Used by tests
// and as a zero-configuration fallback.
type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*domain.Job)}
}

func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, storage.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return storage.ErrJobNotFound
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *JobRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return storage.ErrJobNotFound
	}
	delete(r.jobs, id)
	return nil
}

func (r *JobRepo) List(ctx context.Context) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job.Clone())
	}
	return out, nil
}
