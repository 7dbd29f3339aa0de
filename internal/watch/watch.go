// Package watch turns entries created in an inbox directory into drops.
// Entries created close together form one batch; each batch is one drop.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/core/resolve"
	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/logger"
)

// DefaultDebounce is the quiet period closing a batch
const DefaultDebounce = 500 * time.Millisecond

// DropHandler receives one payload per batch
type DropHandler interface {
	HandleDrop(ctx context.Context, payload *resolve.Payload) error
}

// Watcher watches the top level of a directory
type Watcher struct {
	dir      string
	source   adapter.Source
	handler  DropHandler
	debounce time.Duration
	logger   logger.Logger

	wg sync.WaitGroup
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the batch quiet period
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher on dir. source must be rooted at dir: created names
// are looked up through it.
func New(dir string, source adapter.Source, handler DropHandler, opts ...Option) (*Watcher, error) {
	if source == nil || handler == nil {
		return nil, fmt.Errorf("%w: watch requires a source and a handler", domain.ErrConfigInvalid)
	}

	w := &Watcher{
		dir:      filepath.Clean(dir),
		source:   source,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   &logger.NullLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("watch", w.dir)

	return w, nil
}

// Run watches until ctx is done, then waits for in-flight drops
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for drops", "debounce", w.debounce)

	defer w.wg.Wait()
	return w.loop(ctx, fw.Events, fw.Errors)
}

// loop collects created names until the debounce timer fires
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	var pending []string
	seen := make(map[string]bool)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			name, ok := w.topLevel(ev)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			pending = append(pending, name)
			timer.Reset(w.debounce)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			w.dispatch(ctx, pending)
			pending = nil
			seen = make(map[string]bool)
		}
	}
}

// topLevel returns the created entry's name when it sits directly in dir
func (w *Watcher) topLevel(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) {
		return "", false
	}
	if filepath.Dir(filepath.Clean(ev.Name)) != w.dir {
		return "", false
	}
	return filepath.Base(ev.Name), true
}

// dispatch hands the batch to the handler without blocking the event loop.
// A later batch supersedes this one inside the handler.
func (w *Watcher) dispatch(ctx context.Context, names []string) {
	payload := w.payload(ctx, names)
	if len(payload.Items) == 0 {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		err := w.handler.HandleDrop(ctx, payload)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrSuperseded), errors.Is(err, context.Canceled):
			w.logger.Debug("batch dropped", "entries", len(payload.Items), "reason", err)
		default:
			w.logger.Warn("batch failed", "entries", len(payload.Items), "error", err)
		}
	}()
}

// payload looks every name up; names removed since creation are skipped
func (w *Watcher) payload(ctx context.Context, names []string) *resolve.Payload {
	payload := &resolve.Payload{EntriesSupported: true}
	for _, name := range names {
		entry, err := w.source.Entry(ctx, name)
		if err != nil {
			w.logger.Debug("created entry unavailable", "name", name, "error", err)
			continue
		}
		payload.Items = append(payload.Items, resolve.EntryItem(entry))
	}
	return payload
}
