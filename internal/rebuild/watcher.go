// Package rebuild watches the artifact directory and hot-swaps the query
// engine when a new artifact generation lands.
package rebuild

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hagall/raido/internal/artifacts"
	"github.com/hagall/raido/internal/engine"
)

// DefaultDebounce is how long the watcher waits after the last artifact
// change before rebuilding. Publishers write several files per generation;
// one rebuild covers all of them.
const DefaultDebounce = 500 * time.Millisecond

// Notifier receives rebuild outcomes. Satisfied by the SSE broker.
type Notifier interface {
	PublishRebuilt(documents int)
	PublishFailed(err error)
}

// Watcher owns the rebuild loop for one artifact directory.
type Watcher struct {
	holder   *engine.Holder
	factory  func() *engine.Engine
	store    artifacts.Store
	dir      string
	debounce time.Duration
	log      *slog.Logger
	notify   Notifier

	lastChecksum string
}

// New creates a watcher. factory must return a fresh, uninitialized engine
// over the same artifact source on every call. dir is the file-system path
// of the artifact directory backing store.
func New(holder *engine.Holder, factory func() *engine.Engine, store artifacts.Store, dir string, debounce time.Duration, log *slog.Logger, notify Notifier) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		holder:   holder,
		factory:  factory,
		store:    store,
		dir:      dir,
		debounce: debounce,
		log:      log,
		notify:   notify,
	}
	if data, err := store.Read(artifacts.DocumentsFile); err == nil {
		w.lastChecksum = artifacts.Checksum(data)
	}
	return w
}

// Run processes file change events until ctx is cancelled. A failed rebuild
// keeps the previous engine generation serving; the watcher itself only
// stops on context cancellation or a watch setup error.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("rebuild: watching artifacts", slog.String("dir", w.dir))

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(w.debounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.log.Info("rebuild: stopped")
			return nil

		case <-debounceCh:
			w.rebuild(ctx)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.log.Debug("rebuild: artifact changed",
					slog.String("path", ev.Name),
					slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("rebuild: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// rebuild loads the artifacts into a fresh engine and swaps it in. The old
// generation keeps serving until the new one is ready.
func (w *Watcher) rebuild(ctx context.Context) {
	data, err := w.store.Read(artifacts.DocumentsFile)
	if err != nil {
		w.log.Warn("rebuild: documents artifact unreadable", slog.String("error", err.Error()))
		if w.notify != nil {
			w.notify.PublishFailed(err)
		}
		return
	}
	cs := artifacts.Checksum(data)
	if cs == w.lastChecksum {
		w.log.Debug("rebuild: artifact unchanged, skipping")
		return
	}

	next := w.factory()
	if err := next.Initialize(ctx); err != nil {
		_ = next.Close()
		w.log.Error("rebuild: new generation failed, keeping current",
			slog.String("error", err.Error()))
		if w.notify != nil {
			w.notify.PublishFailed(err)
		}
		return
	}

	old := w.holder.Swap(next)
	w.lastChecksum = cs
	w.log.Info("rebuild: swapped in new generation",
		slog.Int("documents", next.DocumentCount()))
	if w.notify != nil {
		w.notify.PublishRebuilt(next.DocumentCount())
	}
	if old != nil {
		_ = old.Close()
	}
}
