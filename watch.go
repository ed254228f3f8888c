// FILE: lixenwraith/logpipe/watch.go
package logpipe

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Settle time between the last file event and the reload
const watchDebounce = 100 * time.Millisecond

// WatchConfig reloads path whenever it changes until ctx ends. A reload
// applies the new configuration through the delivery swap, so in-flight
// deliveries finish on the previous appenders. Reload failures keep the
// current configuration and are reported on the status channel.
func (l *Logger) WatchConfig(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmtErrorf("failed to resolve config path '%s': %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmtErrorf("failed to create config watcher: %w", err)
	}

	// Editors replace files by rename; watch the directory
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return fmtErrorf("failed to watch '%s': %w", filepath.Dir(absPath), err)
	}

	go l.watchLoop(ctx, watcher, absPath)
	return nil
}

func (l *Logger) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounceTimer.Reset(watchDebounce)

		case <-debounceTimer.C:
			l.reloadConfig(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.status.Warn(sourceConfig, "config watcher error", err)
		}
	}
}

// reloadConfig loads path and applies it, reporting the outcome
func (l *Logger) reloadConfig(path string) {
	// A missing file would load the defaults; wait for it to reappear
	if _, err := os.Stat(path); err != nil {
		return
	}
	cfg, err := NewConfigFromFile(path)
	if err == nil {
		err = l.ApplyConfig(cfg)
	}
	if err != nil {
		l.status.Error(sourceConfig, "config reload failed", err, "path", path)
		return
	}
	l.status.Info(sourceConfig, "config reloaded", "path", path)
}
