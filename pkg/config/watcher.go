package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch initializes a filesystem watcher for the given configuration files.
// It returns a channel that emits the changed path after debouncing, so the
// caller can re-apply settings (log level, engine defaults) without a
// restart. The watcher runs in a goroutine until the context is canceled.
func Watch(ctx context.Context, files ...string) <-chan string {
	changedCh := make(chan string, 1) // Buffer 1 so we don't block sender

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create fsnotify watcher", "error", err)
		close(changedCh)
		return changedCh
	}

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			slog.Warn("Could not resolve absolute path for watch file", "file", file)
			continue
		}
		if err := watcher.Add(absPath); err != nil {
			slog.Warn("Could not watch file", "file", file, "error", err)
		} else {
			slog.Debug("Watching configuration file", "file", file)
		}
	}

	go func() {
		defer watcher.Close()
		defer close(changedCh)

		// Editors replace config files on save, so debounce Write and
		// Create events together.
		var timer *time.Timer
		const debounce = 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					if timer != nil {
						timer.Stop()
					}
					name := event.Name
					timer = time.AfterFunc(debounce, func() {
						slog.Info("Configuration change detected", "file", name)
						select {
						case changedCh <- name:
						default:
						}
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher encountered an error", "error", err)
			}
		}
	}()

	return changedCh
}
