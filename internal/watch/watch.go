// Package watch feeds filesystem changes under a set of roots to a handler,
// one event at a time per root.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/starford/xo/internal/apperr"
)

// DefaultQueueSize bounds the pending events of one root.
const DefaultQueueSize = 64

// Handler processes one changed path. It is never called concurrently for
// the same root.
type Handler func(ctx context.Context, path string)

// Option configures Run.
type Option func(*options)

type options struct {
	queueSize int
}

// WithQueueSize sets the per-root queue capacity.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// Run watches every root recursively until ctx is cancelled. A root whose
// subscription fails stops alone; the others keep running. The returned
// error joins the *apperr.WatchError of every failed root.
func Run(ctx context.Context, roots []string, h Handler, logger *slog.Logger, opts ...Option) error {
	o := options{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		mu     sync.Mutex
		failed []error
	)
	g, gCtx := errgroup.WithContext(ctx)
	for _, root := range Dedupe(roots) {
		g.Go(func() error {
			if err := watchRoot(gCtx, root, h, logger, o.queueSize); err != nil {
				logger.Error("watcher: root stopped",
					slog.String("root", root), slog.String("error", err.Error()))
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(failed...)
}

// Dedupe cleans roots and drops any root nested inside another one, since
// recursive watching already covers it.
func Dedupe(roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}
	sort.Strings(cleaned)

	var out []string
	for _, r := range cleaned {
		covered := false
		for _, kept := range out {
			if r == kept || strings.HasPrefix(r, kept+string(os.PathSeparator)) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, r)
		}
	}
	return out
}

func watchRoot(ctx context.Context, root string, h Handler, logger *slog.Logger, queueSize int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return &apperr.WatchError{Root: root, Err: err}
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return &apperr.WatchError{Root: root, Err: err}
	}

	logger.Info("watcher: started", slog.String("root", root))

	queue := make(chan string, queueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range queue {
			h(ctx, p)
		}
	}()
	defer func() {
		close(queue)
		<-done
	}()

	enqueue := func(p string) bool {
		select {
		case queue <- p:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped", slog.String("root", root))
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}

			absPath := filepath.Clean(ev.Name)
			if !filepath.IsAbs(absPath) {
				absPath = filepath.Join(root, absPath)
			}

			// New directories are watched, and files that landed in them
			// before the watch was added are reported.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					for _, f := range filesIn(absPath) {
						if !enqueue(f) {
							return nil
						}
					}
					continue
				}
			}

			logger.Debug("watcher: event", slog.String("path", absPath), slog.String("op", ev.Op.String()))
			if !enqueue(absPath) {
				return nil
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("root", root), slog.String("error", watchErr.Error()))
		}
	}
}

// filesIn lists the regular files below dir.
func filesIn(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
