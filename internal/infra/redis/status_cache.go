package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhvu/geofetch/internal/core/domain"
)

// StatusCache keeps a short-lived snapshot of each job record so status
// polling does not hit the store on every request. A nil *StatusCache is
// valid and turns every operation into a no-op.
type StatusCache struct {
	client *Client
	ttl    time.Duration
}

// NewStatusCache wraps a client with a snapshot TTL.
func NewStatusCache(client *Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatusCache{client: client, ttl: ttl}
}

// Set stores the job snapshot.
func (c *StatusCache) Set(ctx context.Context, job *domain.Job) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job snapshot: %w", err)
	}
	// Terminal records never change again; keep them a little longer.
	ttl := c.ttl
	if job.Status.Terminal() {
		ttl = 10 * c.ttl
	}
	return c.client.rdb.Set(ctx, jobKey(job.ID), data, ttl).Err()
}

// Get returns the cached snapshot, or (nil, false) on a miss.
func (c *StatusCache) Get(ctx context.Context, id string) (*domain.Job, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, false
	}
	return &job, true
}

// Invalidate drops the snapshot for a job id.
func (c *StatusCache) Invalidate(ctx context.Context, id string) {
	if c == nil {
		return
	}
	_ = c.client.rdb.Del(ctx, jobKey(id)).Err()
}
