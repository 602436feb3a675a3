package executor

import (
	"fmt"
	"log/slog"
	"math"
	"os"
)

// sizeTolerance is the allowed variance between actual and expected size.
const sizeTolerance = 0.05

// validateFile checks a produced file: it must exist, be non-empty, match
// the expected size within 5% when one was supplied, and have a readable
// header. An empty path means the fetch produced no file and passes.
func validateFile(path string, expectedSize int64) error {
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output file missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty: %s", path)
	}

	if expectedSize > 0 {
		variance := math.Abs(float64(info.Size()-expectedSize)) / float64(expectedSize)
		if variance > sizeTolerance {
			return fmt.Errorf("output file size %d deviates %.1f%% from expected %d",
				info.Size(), variance*100, expectedSize)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open output file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 1024)
	if n, err := f.Read(header); n == 0 {
		return fmt.Errorf("cannot read output file header: %v", err)
	}

	return nil
}

// cleanupPartial removes a partial or corrupt file left by a failed attempt
// so the next attempt starts clean. A failed delete never aborts the retry
// loop; it is only logged.
func cleanupPartial(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := os.Remove(path); err != nil {
		slog.Warn("failed to clean up partial download", "path", path, "error", err)
		return
	}
	slog.Debug("cleaned up partial download", "path", path)
}
