package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/jobs/metrics"
	"github.com/minhvu/geofetch/internal/jobs/retry"
)

// FetchFunc performs one real download attempt for a layer. On success it
// returns a populated outcome; on failure it returns an error and may return
// a partial outcome whose FilePath points at whatever was written.
type FetchFunc func(ctx context.Context) (*domain.LayerOutcome, error)

// Executor runs a single layer download, wrapping the fetch capability with
// retry, error classification and file recovery. A layer failure never
// escapes as an error: it is always folded into the returned outcome.
type Executor struct {
	policy retry.Policy
}

func New(policy retry.Policy) *Executor {
	return &Executor{policy: policy}
}

// Execute drives the retry loop for one layer until the fetch succeeds, the
// failure classifies as permanent, or attempts are exhausted.
func (e *Executor) Execute(ctx context.Context, layerID string, fn FetchFunc) domain.LayerOutcome {
	start := time.Now()
	defer func() {
		metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	var lastPath string

retryLoop:
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		// A previous attempt may have left a partial file behind.
		if lastPath != "" {
			cleanupPartial(lastPath)
			lastPath = ""
		}

		outcome, err := fn(ctx)
		if err == nil && outcome != nil {
			if verr := validateFile(outcome.FilePath, outcome.FileSizeBytes); verr != nil {
				err = verr
			} else {
				metrics.DownloadAttempts.WithLabelValues("success").Inc()
				if attempt > 1 {
					slog.Info("layer download succeeded after retry",
						"layer", layerID, "attempt", attempt)
				}
				finalizeSize(outcome)
				outcome.Success = true
				return *outcome
			}
		}
		if err == nil {
			err = fmt.Errorf("fetch returned no outcome for layer %s", layerID)
		}

		metrics.DownloadAttempts.WithLabelValues("failure").Inc()
		lastErr = err
		if outcome != nil && outcome.FilePath != "" {
			lastPath = outcome.FilePath
		}

		sev := retry.Classify(err)
		slog.Warn("layer download attempt failed",
			"layer", layerID, "attempt", attempt, "severity", sev.String(), "error", err)

		if !e.policy.ShouldRetry(sev, attempt) {
			break
		}

		delay := e.policy.Delay(attempt)
		if delay > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break retryLoop
			case <-time.After(delay):
			}
		}
	}

	if lastPath != "" {
		cleanupPartial(lastPath)
	}

	return domain.LayerOutcome{
		LayerID: layerID,
		Success: false,
		ErrorMessage: fmt.Sprintf("operation failed after %d attempts. Last error: %v",
			e.policy.MaxAttempts, lastErr),
	}
}

// finalizeSize records the actual on-disk size of the produced file.
func finalizeSize(outcome *domain.LayerOutcome) {
	if outcome.FilePath == "" {
		return
	}
	if info, err := os.Stat(outcome.FilePath); err == nil {
		outcome.FileSizeBytes = info.Size()
	}
}
