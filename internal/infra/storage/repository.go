package storage

import (
	"context"
	"errors"

	"github.com/minhvu/geofetch/internal/core/domain"
)

var (
	// ErrJobNotFound is returned when a job id has no persisted record
	ErrJobNotFound = errors.New("job not found")
)

// JobRepository is the durable per-job record store. Every write serializes
// the full record; every read returns a copy the caller owns. The store
// provides no cross-process locking: the orchestrator is the single logical
// writer per job id while a job is running.
type JobRepository interface {
	// Create persists a new job record
	Create(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by id, or ErrJobNotFound
	Get(ctx context.Context, id string) (*domain.Job, error)

	// Update rewrites the full record for the job's id
	Update(ctx context.Context, job *domain.Job) error

	// Delete removes the record for a job id
	Delete(ctx context.Context, id string) error

	// List returns all persisted jobs
	List(ctx context.Context) ([]*domain.Job, error)
}
