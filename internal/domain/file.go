package domain

import (
	"context"
	"io"
)

// Opener gives access to the bytes behind a candidate
type Opener interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context) (io.ReadCloser, error)

// Open calls f(ctx)
func (f OpenerFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// FileCandidate is a file awaiting classification.
// It is a value: once produced by a source it is never mutated, and the
// engine never renames it.
type FileCandidate struct {
	// Name is the reported file name (no directory part)
	Name string `json:"name" yaml:"name"`

	// MimeType is the reported media type, possibly empty
	MimeType string `json:"mime_type" yaml:"mime_type"`

	// Size in bytes
	Size int64 `json:"size" yaml:"size"`

	// Path is the slash separated location inside the drop ("photos/a.png").
	// Equal to Name for top-level files.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Content is optional; nil when the candidate only carries metadata
	Content Opener `json:"-" yaml:"-"`
}

// NewFileCandidate creates a metadata-only candidate
func NewFileCandidate(name, mimeType string, size int64) FileCandidate {
	return FileCandidate{
		Name:     name,
		MimeType: mimeType,
		Size:     size,
		Path:     name,
	}
}

// Open returns a reader over the candidate's bytes.
// Returns ErrNoContent when the candidate has no content handle.
func (f FileCandidate) Open(ctx context.Context) (io.ReadCloser, error) {
	if f.Content == nil {
		return nil, ErrNoContent
	}
	return f.Content.Open(ctx)
}

// DisplayPath returns Path, falling back to Name
func (f FileCandidate) DisplayPath() string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}
