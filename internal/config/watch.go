package config

import (
	"context"
	"path/filepath"
	"time"

	"CrayonBoard/internal/state"

	"github.com/fsnotify/fsnotify"
)

// settle collapses the burst of events editors produce on save.
const settle = 100 * time.Millisecond

// Watch calls fn with the reloaded config each time path changes, until
// ctx ends. A file that fails to load is logged and skipped. The parent
// directory is watched so editors that replace the file are seen.
func Watch(ctx context.Context, path string, fn func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	name := filepath.Clean(path)
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			state.Logger().Warn("[CONFIG] watch error", "err", err)
		case <-timer.C:
			c, err := Load(path)
			if err != nil {
				state.Logger().Warn("[CONFIG] reload failed", "path", path, "err", err)
				continue
			}
			state.Logger().Info("[CONFIG] reloaded", "path", path)
			fn(c)
		}
	}
}
