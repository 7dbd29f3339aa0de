// Package resolve flattens a drop payload into an ordered sequence of file
// candidates, expanding dropped directories through their paginated listings.
package resolve

import (
	"context"
	"io"
	"path"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/logger"
	"github.com/Ning0612/Dropzone/internal/metrics"
	"github.com/Ning0612/Dropzone/internal/progress"
)

// Item is one top-level item of a drop
type Item struct {
	// Entry is the inspectable entry. Nil when the caller has no entry access.
	Entry adapter.Entry

	// File is the flat view of a plain file item. When nil and Entry is a
	// FileEntry, the candidate is materialized from the entry.
	File *domain.FileCandidate
}

// Payload is everything handed over by one drop interaction
type Payload struct {
	Items []Item

	// EntriesSupported reports whether items can be inspected as entries.
	// Without it directories cannot be told apart and are never expanded.
	EntriesSupported bool
}

// FileItem wraps a flat candidate as a payload item
func FileItem(c domain.FileCandidate) Item {
	return Item{File: &c}
}

// EntryItem wraps an entry as a payload item
func EntryItem(e adapter.Entry) Item {
	return Item{Entry: e}
}

// Resolver turns a payload into candidates in discovery order
type Resolver interface {
	Resolve(ctx context.Context, payload Payload, expandDirectories bool) ([]domain.FileCandidate, error)
}

// DefaultResolver implements Resolver.
// Top-level directories and their sub-directories are walked concurrently;
// the listing of a single directory is always sequential.
type DefaultResolver struct {
	logger   logger.Logger
	reporter progress.Reporter
	metrics  *metrics.Recorder
	listings *semaphore.Weighted
}

// Option configures a DefaultResolver
type Option func(*DefaultResolver)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(r *DefaultResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithReporter sets the progress reporter
func WithReporter(p progress.Reporter) Option {
	return func(r *DefaultResolver) {
		if p != nil {
			r.reporter = p
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *DefaultResolver) {
		r.metrics = m
	}
}

// WithMaxConcurrentListings bounds the number of in-flight ReadEntries calls
// across the whole walk. n <= 0 means unbounded.
func WithMaxConcurrentListings(n int) Option {
	return func(r *DefaultResolver) {
		if n > 0 {
			r.listings = semaphore.NewWeighted(int64(n))
		} else {
			r.listings = nil
		}
	}
}

// NewDefaultResolver creates a resolver
func NewDefaultResolver(opts ...Option) *DefaultResolver {
	r := &DefaultResolver{
		logger:   &logger.NullLogger{},
		reporter: progress.NullReporter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve flattens the payload.
// Output is the top-level files in order, then the flattened result of each
// top-level directory in order. Entries that fail to materialize and
// directories whose listing fails are skipped; the only error returned is
// the context's.
func (r *DefaultResolver) Resolve(ctx context.Context, payload Payload, expandDirectories bool) ([]domain.FileCandidate, error) {
	start := time.Now()

	var files []domain.FileCandidate
	var err error
	if expandDirectories && payload.EntriesSupported {
		files, err = r.expandAll(ctx, payload.Items)
	} else {
		files, err = r.flat(ctx, payload.Items)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	r.metrics.ObserveResolve(elapsed)
	r.reporter.Finished(len(files), elapsed)
	r.logger.Debug("payload resolved", "files", len(files), "elapsed", elapsed)

	return files, nil
}

// flat keeps every top-level plain file and ignores directories
func (r *DefaultResolver) flat(ctx context.Context, items []Item) ([]domain.FileCandidate, error) {
	files := make([]domain.FileCandidate, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.File != nil {
			files = append(files, *item.File)
			continue
		}
		if item.Entry == nil || item.Entry.IsDir() {
			continue
		}
		if c, ok := r.materialize(ctx, item.Entry, item.Entry.Name()); ok {
			files = append(files, c)
		}
	}
	return files, nil
}

// expandAll keeps top-level files and expands top-level directories
// concurrently, each into its own slot
func (r *DefaultResolver) expandAll(ctx context.Context, items []Item) ([]domain.FileCandidate, error) {
	var files []domain.FileCandidate
	var dirs []adapter.DirectoryEntry

	for _, item := range items {
		switch {
		case item.Entry != nil && item.Entry.IsDir():
			if d, ok := item.Entry.(adapter.DirectoryEntry); ok {
				dirs = append(dirs, d)
			}
		case item.File != nil:
			files = append(files, *item.File)
		case item.Entry != nil:
			if c, ok := r.materialize(ctx, item.Entry, item.Entry.Name()); ok {
				files = append(files, c)
			}
		}
	}

	results, err := r.walkAll(ctx, dirs, "")
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		files = append(files, res...)
	}
	if files == nil {
		files = []domain.FileCandidate{}
	}
	return files, nil
}

// walkAll walks dirs concurrently and returns their results in input order
func (r *DefaultResolver) walkAll(ctx context.Context, dirs []adapter.DirectoryEntry, parent string) ([][]domain.FileCandidate, error) {
	results := make([][]domain.FileCandidate, len(dirs))
	if len(dirs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			res, err := r.walk(gctx, dir, path.Join(parent, dir.Name()))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// walk lists one directory page by page until an empty page, collecting its
// files and walking its sub-directories. The result is the directory's own
// files followed by each sub-directory's result, in discovery order.
func (r *DefaultResolver) walk(ctx context.Context, dir adapter.DirectoryEntry, dirPath string) ([]domain.FileCandidate, error) {
	r.reporter.DirectoryOpened(dirPath)
	r.metrics.RecordDirectory()

	reader := dir.CreateReader()
	if c, ok := reader.(io.Closer); ok {
		defer c.Close()
	}
	var files []domain.FileCandidate
	var subdirs []adapter.DirectoryEntry

	for {
		page, err := r.readPage(ctx, reader)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn("directory listing failed", "path", dirPath, "error", err)
			break
		}
		if len(page) == 0 {
			break
		}
		r.reporter.PageRead(dirPath, len(page))

		for _, entry := range page {
			entryPath := path.Join(dirPath, entry.Name())
			if entry.IsDir() {
				if d, ok := entry.(adapter.DirectoryEntry); ok {
					subdirs = append(subdirs, d)
				}
				continue
			}
			if c, ok := r.materialize(ctx, entry, entryPath); ok {
				files = append(files, c)
			}
		}
	}

	nested, err := r.walkAll(ctx, subdirs, dirPath)
	if err != nil {
		return nil, err
	}
	for _, res := range nested {
		files = append(files, res...)
	}
	return files, nil
}

func (r *DefaultResolver) readPage(ctx context.Context, reader adapter.DirectoryReader) ([]adapter.Entry, error) {
	if r.listings != nil {
		if err := r.listings.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer r.listings.Release(1)
	}
	return reader.ReadEntries(ctx)
}

// materialize builds the candidate for a file entry, with Path set to its
// location inside the drop. Failures drop the entry.
func (r *DefaultResolver) materialize(ctx context.Context, entry adapter.Entry, entryPath string) (domain.FileCandidate, bool) {
	fe, ok := entry.(adapter.FileEntry)
	if !ok {
		return domain.FileCandidate{}, false
	}

	c, err := fe.File(ctx)
	if err != nil {
		r.logger.Debug("dropping entry", "path", entryPath, "error", err)
		r.reporter.EntryDropped(entryPath, err)
		r.metrics.RecordDroppedEntry()
		return domain.FileCandidate{}, false
	}

	c.Path = entryPath
	r.reporter.FileFound(c.Path, c.Size)
	return c, true
}

var _ Resolver = (*DefaultResolver)(nil)
