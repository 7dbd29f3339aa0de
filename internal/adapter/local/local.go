package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/domain"
)

// DefaultPageSize is the number of directory entries returned per page
const DefaultPageSize = 100

// Source implements adapter.Source for the local filesystem
type Source struct {
	root     string
	pageSize int
}

// New creates a new local filesystem source
// root must be an existing directory
func New(root string) (*Source, error) {
	// Convert to absolute path
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Verify root exists and is a directory
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Source{root: absRoot, pageSize: DefaultPageSize}, nil
}

// SetPageSize sets how many entries a directory page holds
func (s *Source) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// Root returns the root path of this source
func (s *Source) Root() string {
	return s.root
}

// Type returns domain.SourceLocal
func (s *Source) Type() domain.SourceType {
	return domain.SourceLocal
}

// Close releases any resources (no-op for local source)
func (s *Source) Close() error {
	return nil
}

// resolvePath safely resolves a relative path to absolute path within root
// Returns error if path attempts to escape root directory
func (s *Source) resolvePath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return s.root, nil
	}

	relPath = filepath.Clean(filepath.FromSlash(relPath))

	if filepath.IsAbs(relPath) {
		return "", domain.ErrPermissionDenied
	}

	fullPath := filepath.Join(s.root, relPath)

	// filepath.Rel handles root="C:\root" and fullPath="C:\root2"
	rel, err := filepath.Rel(s.root, fullPath)
	if err != nil {
		return "", domain.ErrPermissionDenied
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPermissionDenied
	}

	return fullPath, nil
}

// Entry returns the file or directory entry at path
func (s *Source) Entry(ctx context.Context, relPath string) (adapter.Entry, error) {
	fullPath, err := s.resolvePath(relPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(relPath)))
	if rel == "." {
		rel = ""
	}

	if info.IsDir() {
		name := info.Name()
		if rel == "" {
			name = filepath.Base(s.root)
		}
		return &dirEntry{src: s, rel: rel, name: name}, nil
	}
	return &fileEntry{src: s, rel: rel, name: info.Name()}, nil
}

// fileEntry is a regular file (or a symlink to one)
type fileEntry struct {
	src  *Source
	rel  string
	name string
}

func (e *fileEntry) Name() string { return e.name }
func (e *fileEntry) IsDir() bool  { return false }

// File stats the file again so a file removed after listing fails here
func (e *fileEntry) File(ctx context.Context) (domain.FileCandidate, error) {
	if err := ctx.Err(); err != nil {
		return domain.FileCandidate{}, err
	}

	fullPath, err := e.src.resolvePath(e.rel)
	if err != nil {
		return domain.FileCandidate{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return domain.FileCandidate{}, mapError(err)
	}
	if info.IsDir() {
		return domain.FileCandidate{}, domain.ErrNotFile
	}

	return domain.FileCandidate{
		Name:     e.name,
		MimeType: adapter.MimeTypeByName(e.name),
		Size:     info.Size(),
		Path:     e.rel,
		Content:  fileOpener(fullPath),
	}, nil
}

func fileOpener(fullPath string) domain.OpenerFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(fullPath)
		if err != nil {
			return nil, mapError(err)
		}
		return f, nil
	}
}

// dirEntry is a directory below the source root
type dirEntry struct {
	src  *Source
	rel  string
	name string
}

func (e *dirEntry) Name() string { return e.name }
func (e *dirEntry) IsDir() bool  { return true }

func (e *dirEntry) CreateReader() adapter.DirectoryReader {
	return &dirReader{src: e.src, rel: e.rel}
}

// dirReader pages through a directory with (*os.File).ReadDir
type dirReader struct {
	src  *Source
	rel  string
	file *os.File
	done bool
}

// ReadEntries returns the next page, sorted by name within the page.
// After the last page it closes the directory and returns an empty page.
func (r *dirReader) ReadEntries(ctx context.Context) ([]adapter.Entry, error) {
	if r.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		r.Close()
		return nil, err
	}

	if r.file == nil {
		fullPath, err := r.src.resolvePath(r.rel)
		if err != nil {
			r.done = true
			return nil, err
		}
		f, err := os.Open(fullPath)
		if err != nil {
			r.done = true
			return nil, mapError(err)
		}
		r.file = f
	}

	dirEntries, err := r.file.ReadDir(r.src.pageSize)
	if err != nil && len(dirEntries) == 0 {
		r.Close()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, mapError(err)
	}

	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name() < dirEntries[j].Name()
	})

	page := make([]adapter.Entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		childRel := path.Join(r.rel, d.Name())
		if d.IsDir() {
			page = append(page, &dirEntry{src: r.src, rel: childRel, name: d.Name()})
			continue
		}
		page = append(page, &fileEntry{src: r.src, rel: childRel, name: d.Name()})
	}
	return page, nil
}

// Close ends the listing and releases the open directory
func (r *dirReader) Close() error {
	r.done = true
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if os.IsNotExist(err) {
		return domain.ErrNotFound
	}
	if os.IsPermission(err) {
		return domain.ErrPermissionDenied
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && strings.Contains(pathErr.Err.Error(), "not a directory") {
		return domain.ErrNotDirectory
	}

	return err
}

// Compile-time interface checks
var (
	_ adapter.Source         = (*Source)(nil)
	_ adapter.FileEntry      = (*fileEntry)(nil)
	_ adapter.DirectoryEntry = (*dirEntry)(nil)
)
