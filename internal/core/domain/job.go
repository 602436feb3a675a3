package domain

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a download job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further status transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the unit of work tracked end-to-end. The persisted record is the
// whole struct, serialized in full on every update.
type Job struct {
	ID           string         `json:"id"`
	Status       JobStatus      `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Request      JobRequest     `json:"request"`
	Progress     Progress       `json:"progress"`
	Results      []LayerOutcome `json:"results,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Clone returns a deep copy of the job via a serialization round trip,
// so callers never share mutable state with a store.
func (j *Job) Clone() *Job {
	data, err := json.Marshal(j)
	if err != nil {
		return nil
	}
	var out Job
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

// JobRequest holds the original parameters of a job, immutable after creation.
type JobRequest struct {
	SourceID string        `json:"source_id"`
	LayerIDs []string      `json:"layer_ids"`
	AOI      AOI           `json:"aoi"`
	Options  SourceOptions `json:"options,omitempty"`
}

// SourceOptions carries the recognized per-source knobs plus a free-form
// extension bag for genuinely source-specific settings.
type SourceOptions struct {
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	MaxFeatures    int               `json:"max_features,omitempty"`
	OutputFormat   string            `json:"output_format,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Progress is the mutable per-job progress snapshot.
type Progress struct {
	CurrentLayer    string  `json:"current_layer,omitempty"`
	CompletedLayers int     `json:"completed_layers"`
	TotalLayers     int     `json:"total_layers"`
	PercentComplete float64 `json:"percent_complete"`
	ArchivePath     string  `json:"archive_path,omitempty"`
}
