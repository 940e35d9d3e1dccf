package artifact

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Waiter blocks until a synthesized artifact exists on disk and has
// stopped growing. The source app papered over the synthesis write
// with a fixed sleep; watching the directory lets playback start as
// soon as the file has settled instead.
type Waiter struct {
	root   string
	logger *zap.Logger

	// pollInterval is the fallback cadence when the watcher can't start.
	pollInterval time.Duration
	// settle is how long the file size must hold steady before the
	// file counts as fully written.
	settle time.Duration
}

// NewWaiter creates a waiter over the artifact directory under the
// given static root.
func NewWaiter(staticRoot string, logger *zap.Logger) *Waiter {
	return &Waiter{
		root:         staticRoot,
		logger:       logger,
		pollInterval: 250 * time.Millisecond,
		settle:       300 * time.Millisecond,
	}
}

// Wait blocks until the handle's file exists and its size has been
// stable for the settle window, then returns the file path. The
// context bounds the wait.
func (w *Waiter) Wait(ctx context.Context, h Handle) (string, error) {
	path := h.Path(w.root)

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(Dir(w.root)); err != nil {
			w.logger.Debug("could not watch artifact dir, polling instead", zap.Error(err))
			watcher = nil
		}
	} else {
		w.logger.Debug("could not create watcher, polling instead", zap.Error(err))
		watcher = nil
	}

	var lastSize int64 = -1
	var stableSince time.Time

	for {
		if info, err := os.Stat(path); err == nil {
			size := info.Size()
			now := time.Now()
			if size != lastSize {
				lastSize = size
				stableSince = now
			} else if size > 0 && now.Sub(stableSince) >= w.settle {
				return path, nil
			}
		}

		if watcher != nil {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-watcher.Events:
			case err := <-watcher.Errors:
				w.logger.Debug("watcher error, polling instead", zap.Error(err))
				watcher = nil
			case <-time.After(w.pollInterval):
				// Re-stat even without events so the settle window can expire.
			}
		} else {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(w.pollInterval):
			}
		}
	}
}
