// SPDX-License-Identifier: MPL-2.0

// Package watch reports changes to the files under a directory.
//
// Events for files matching the watch patterns are coalesced: the callback
// runs once the directory has been quiet for the debounce period and receives
// every path that changed in the meantime. The CLI uses it to re-serve a
// model each time the build description is edited.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/toolmodel/toolmodel/internal/logging"
)

// DefaultDebounce is the quiet period used when Options.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// defaultIgnores are editor and VCS artifacts that never trigger callbacks.
	defaultIgnores = []string{
		"**/.git/**",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Options configures a Watcher.
	Options struct {
		// Dir is watched recursively. Empty means the working directory.
		Dir string
		// Patterns are doublestar globs, relative to Dir, selecting the files
		// that trigger the callback. Empty selects every file.
		Patterns []string
		// Ignore adds doublestar globs to the built-in ignores.
		Ignore []string
		// Debounce is the quiet period before the callback runs.
		Debounce time.Duration
		// OnChange receives the changed paths, relative to Dir and sorted.
		// Its error is logged; the watcher keeps running.
		OnChange func(ctx context.Context, changed []string) error
		// Logger receives watcher diagnostics. Nil discards them.
		Logger *log.Logger
	}

	// Watcher delivers debounced change notifications. Run may be called once.
	Watcher struct {
		dir      string
		patterns []string
		ignores  []string
		debounce time.Duration
		onChange func(ctx context.Context, changed []string) error
		logger   *log.Logger
		fsw      *fsnotify.Watcher
		started  atomic.Bool
	}
)

// New validates the patterns and starts watching every directory under Dir
// that is not ignored.
func New(opts Options) (*Watcher, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", opts.Dir, err)
	}

	for _, pat := range slices.Concat(opts.Patterns, opts.Ignore) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid pattern %q: %w", pat, doublestar.ErrBadPattern)
		}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		dir:      dir,
		patterns: slices.Clone(opts.Patterns),
		ignores:  slices.Concat(defaultIgnores, opts.Ignore),
		debounce: debounce,
		onChange: opts.OnChange,
		logger:   logging.Component(opts.Logger, "watch"),
		fsw:      fsw,
	}
	if err := w.addTree(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run delivers change notifications until ctx is done, then releases the
// watcher. It returns nil on cancellation and an error when the underlying
// watcher can no longer deliver events. The callback runs on Run's goroutine,
// so notifications never overlap; changes made while it runs are delivered
// in the next notification.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing fsnotify watcher failed", "error", err)
		}
	}()

	pending := make(map[string]struct{})
	quiet := time.NewTimer(w.debounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if evt.Has(fsnotify.Create) {
				w.addIfDir(evt.Name)
			}
			rel := w.relative(evt.Name)
			if w.ignored(rel) || !w.selected(rel) {
				continue
			}
			pending[rel] = struct{}{}
			quiet.Reset(w.debounce)

		case <-quiet.C:
			if len(pending) == 0 {
				continue
			}
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			w.logger.Debug("files changed", "paths", changed)
			if w.onChange == nil {
				continue
			}
			if err := w.onChange(ctx, changed); err != nil {
				w.logger.Error("change handler failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// addTree registers dir and its non-ignored subdirectories. Unreadable
// directories are skipped.
func (w *Watcher) addTree() error {
	err := filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel := w.relative(path); rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", w.dir, err)
	}
	return nil
}

// addIfDir extends the watch to a directory created after New.
func (w *Watcher) addIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if rel := w.relative(path); w.ignored(rel) || w.ignored(rel+"/") {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("watching new directory failed", "path", path, "error", err)
	}
}

func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) selected(rel string) bool {
	return len(w.patterns) == 0 || matchAny(w.patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}
