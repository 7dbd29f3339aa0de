package adapter

import (
	"context"

	"github.com/Ning0612/Dropzone/internal/domain"
)

// Entry is a node a drop is made of: a file or a directory.
// Implementations also implement FileEntry or DirectoryEntry; an entry
// implementing neither is skipped by the resolver.
type Entry interface {
	// Name is the base name of the entry
	Name() string

	// IsDir reports whether the entry is a directory
	IsDir() bool
}

// FileEntry is an entry whose candidate can be materialized
type FileEntry interface {
	Entry

	// File materializes the candidate (metadata plus content handle).
	// Failures are per entry: the resolver drops the entry and carries on.
	File(ctx context.Context) (domain.FileCandidate, error)
}

// DirectoryEntry is an entry whose children can be listed
type DirectoryEntry interface {
	Entry

	// CreateReader starts a fresh paginated listing of the directory
	CreateReader() DirectoryReader
}

// DirectoryReader lists a directory one page at a time.
// Each call returns the next page; an empty page means the listing is
// exhausted. A single page is not guaranteed to hold every child, so callers
// keep reading until they get an empty page.
// A reader is stateful and must not be called concurrently.
// A reader that holds a handle between pages may also implement io.Closer;
// the resolver closes every reader it creates when that directory's
// traversal ends, exhausted or not.
type DirectoryReader interface {
	ReadEntries(ctx context.Context) ([]Entry, error)
}

// Source resolves paths into drop entries.
// All implementations must confine paths to their root and return
// domain-level errors for consistent error handling.
type Source interface {
	// Entry returns the entry at path, relative to the source root.
	// Returns domain.ErrNotFound if path doesn't exist
	Entry(ctx context.Context, path string) (Entry, error)

	// Type returns the backend type
	Type() domain.SourceType

	// Close releases any resources held by the source
	Close() error
}

// SourceFactory creates sources for a given source configuration
type SourceFactory interface {
	// Create returns a source for the given configuration
	Create(ctx context.Context, source domain.Source) (Source, error)

	// Supports returns true if this factory can handle the source type
	Supports(sourceType domain.SourceType) bool
}
