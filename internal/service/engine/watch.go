package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/beacon-engine/internal/logger"
)

// DefaultReloadDelay is how long the watcher waits for a burst of writes to settle.
const DefaultReloadDelay = 500 * time.Millisecond

// watchFile calls onChange after path is written, created or replaced.
// The parent directory is watched so editors that rename over the file are seen.
func watchFile(ctx context.Context, path string, delay time.Duration, onChange func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	if err = watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	logger.DebugKV(ctx, "Watching settings", "path", target)

	timer := time.NewTimer(delay)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			timer.Reset(delay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "Settings watcher error", "error", err)
		case <-timer.C:
			onChange(ctx)
		}
	}
}
