package artifact

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Janitor deletes generated audio files older than a retention
// window. It runs synchronously as pre-work of every speech request
// rather than on a timer; that means repeated directory scans under
// load, a scalability trade accepted for having no background
// machinery to supervise.
type Janitor struct {
	dir    string
	logger *zap.Logger
}

// NewJanitor creates a janitor for the artifact directory under the
// given static root.
func NewJanitor(staticRoot string, logger *zap.Logger) *Janitor {
	return &Janitor{
		dir:    Dir(staticRoot),
		logger: logger,
	}
}

// Sweep deletes artifacts whose modification time is older than
// retentionDays. A file that cannot be deleted is logged and skipped;
// it never aborts the sweep of the remaining files. Returns the
// number of files deleted.
func (j *Janitor) Sweep(ctx context.Context, retentionDays int) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing generated yet, nothing to clean.
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		info, err := entry.Info()
		if err != nil {
			j.logger.Warn("could not stat artifact", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			j.logger.Warn("could not delete expired artifact", zap.String("path", path), zap.Error(err))
			continue
		}

		j.logger.Debug("deleted expired artifact",
			zap.String("name", entry.Name()),
			zap.Time("modified", info.ModTime()),
		)
		deleted++
	}

	return deleted, nil
}
