package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // if true, walk roots and emit existing files
	SkipHidden  bool
	Debounce    time.Duration // coalesce rapid update/rename bursts
	Logger      *slog.Logger
}

// StartWatcher emits paths of ingestible files created or modified under the
// roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	// Add roots recursively
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
				select {
				case evCh <- path:
				default:
					logger.Warn("initial scan buffer full, file skipped", "path", path)
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	logger.Info("watcher started", "roots", cfg.Roots, "debounce", cfg.Debounce)

	go func() {
		var (
			mu      sync.Mutex
			timer   *time.Timer
			pending = map[string]struct{}{}
			stopped bool
		)
		defer func() {
			mu.Lock()
			stopped = true
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			if err := w.Close(); err != nil {
				logger.Warn("watcher close failed", "error", err)
			}
			close(evCh)
			close(errCh)
		}()

		sendPending := func() {
			mu.Lock()
			defer mu.Unlock()
			if stopped {
				return
			}
			for p := range pending {
				select {
				case evCh <- p:
				default:
					logger.Warn("watch buffer full, event dropped", "path", p)
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					tryAddDir(w, e.Name, logger)
				}

				if AllowedExt(filepath.Ext(e.Name)) && (e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename)) != 0 {
					if cfg.SkipHidden && IsHidden(e.Name) {
						continue
					}
					mu.Lock()
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.AfterFunc(cfg.Debounce, sendPending)
					}
					mu.Unlock()
					if cfg.Debounce <= 0 {
						sendPending()
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// tryAddDir starts watching path when it is a newly created directory.
func tryAddDir(w *fsnotify.Watcher, path string, logger *slog.Logger) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.Add(path); err != nil {
		logger.Warn("failed to add new directory to watcher", "path", path, "error", err)
	}
}
