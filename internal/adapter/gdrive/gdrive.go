package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/domain"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// DefaultPageSize is the number of children fetched per listing request
	DefaultPageSize = 100
	// DefaultRequestsPerSecond keeps well below the per-user Drive quota
	DefaultRequestsPerSecond = 10

	fileFields = "id, name, mimeType, size"
	listFields = "nextPageToken, files(" + fileFields + ")"
)

// Options tunes listing behavior
type Options struct {
	PageSize          int64
	RequestsPerSecond float64
	Burst             int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if o.Burst <= 0 {
		o.Burst = int(o.RequestsPerSecond)
		if o.Burst < 1 {
			o.Burst = 1
		}
	}
	return o
}

// Source implements adapter.Source for a Google Drive folder
type Source struct {
	service  *drive.Service
	root     string   // root folder path in Drive (e.g., "/Uploads/inbox")
	cache    *idCache // path -> ID
	limiter  *rate.Limiter
	pageSize int64
}

// idCache caches folder ID lookups with thread-safe access
type idCache struct {
	mu    sync.RWMutex
	paths map[string]string
}

func newIDCache() *idCache {
	return &idCache{
		paths: make(map[string]string),
	}
}

func (c *idCache) get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.paths[path]
	return id, ok
}

func (c *idCache) set(path, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[path] = id
}

// New creates a Drive source using the stored OAuth token
func New(ctx context.Context, clientID, clientSecret, tokenPath, root string, opts Options) (*Source, error) {
	auth := NewAuthenticator(clientID, clientSecret, tokenPath)

	token, err := auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	client := auth.Config().Client(ctx, token)
	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return NewWithService(ctx, service, root, opts)
}

// NewWithService creates a Drive source on an existing service.
// The root folder must exist; it is never created.
func NewWithService(ctx context.Context, service *drive.Service, root string, opts Options) (*Source, error) {
	opts = opts.withDefaults()

	s := &Source{
		service:  service,
		root:     normalizeRoot(root),
		cache:    newIDCache(),
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		pageSize: opts.PageSize,
	}

	if _, err := s.getFileID(ctx, s.root); err != nil {
		return nil, fmt.Errorf("failed to resolve root folder %q: %w", s.root, err)
	}

	return s, nil
}

// normalizeRoot normalizes the root path
func normalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" || root == "/" {
		return ""
	}
	// Ensure leading slash, no trailing slash
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return strings.TrimSuffix(root, "/")
}

// Root returns the root folder path
func (s *Source) Root() string {
	return s.root
}

// Type returns domain.SourceGDrive
func (s *Source) Type() domain.SourceType {
	return domain.SourceGDrive
}

// Close releases any resources
func (s *Source) Close() error {
	return nil
}

// Entry returns the file or folder at relPath
func (s *Source) Entry(ctx context.Context, relPath string) (adapter.Entry, error) {
	fullPath, err := s.joinPath(relPath)
	if err != nil {
		return nil, err
	}
	id, err := s.getFileID(ctx, fullPath)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f, err := s.service.Files.Get(id).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	return s.entryFromDrive(f), nil
}

func (s *Source) entryFromDrive(f *drive.File) adapter.Entry {
	if f.MimeType == MimeTypeFolder {
		return &folderEntry{src: s, id: f.Id, name: f.Name}
	}
	return &fileEntry{src: s, file: f}
}

// joinPath joins relative path with root and validates against path traversal
func (s *Source) joinPath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return s.root, nil
	}

	cleanPath := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))

	if path.IsAbs(cleanPath) {
		return "", domain.ErrPermissionDenied
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, "../") {
		return "", domain.ErrPermissionDenied
	}

	return path.Join(s.root, cleanPath), nil
}

// escapeQueryString escapes special characters in Drive query strings
func escapeQueryString(s string) string {
	// Escape backslash first, then single quote
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// getFileID returns the ID of a file or folder at the given full path,
// walking and caching every intermediate folder
func (s *Source) getFileID(ctx context.Context, fullPath string) (string, error) {
	if id, ok := s.cache.get(fullPath); ok {
		return id, nil
	}
	if fullPath == "" {
		return "root", nil
	}

	parts := strings.Split(strings.TrimPrefix(fullPath, "/"), "/")
	currentID := "root"

	for i, part := range parts {
		if part == "" {
			continue
		}

		partialPath := "/" + strings.Join(parts[:i+1], "/")
		if id, ok := s.cache.get(partialPath); ok {
			currentID = id
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQueryString(part), currentID)
		fileList, err := s.service.Files.List().
			Q(query).
			PageSize(1).
			Fields("files(id, mimeType)").
			Context(ctx).Do()
		if err != nil {
			return "", mapError(err)
		}

		if len(fileList.Files) == 0 {
			return "", domain.ErrNotFound
		}

		currentID = fileList.Files[0].Id
		s.cache.set(partialPath, currentID)
	}

	return currentID, nil
}

// fileEntry is a Drive file; its metadata comes straight from the listing
type fileEntry struct {
	src  *Source
	file *drive.File
}

func (e *fileEntry) Name() string { return e.file.Name }
func (e *fileEntry) IsDir() bool  { return false }

func (e *fileEntry) File(ctx context.Context) (domain.FileCandidate, error) {
	if err := ctx.Err(); err != nil {
		return domain.FileCandidate{}, err
	}

	id := e.file.Id
	src := e.src
	return domain.FileCandidate{
		Name:     e.file.Name,
		MimeType: e.file.MimeType,
		Size:     e.file.Size,
		Path:     e.file.Name,
		Content: domain.OpenerFunc(func(ctx context.Context) (io.ReadCloser, error) {
			resp, err := src.service.Files.Get(id).Context(ctx).Download()
			if err != nil {
				return nil, mapError(err)
			}
			return resp.Body, nil
		}),
	}, nil
}

// folderEntry is a Drive folder
type folderEntry struct {
	src  *Source
	id   string
	name string
}

func (e *folderEntry) Name() string { return e.name }
func (e *folderEntry) IsDir() bool  { return true }

func (e *folderEntry) CreateReader() adapter.DirectoryReader {
	return &folderReader{src: e.src, folderID: e.id}
}

// folderReader pages through Files.List with the returned page token
type folderReader struct {
	src       *Source
	folderID  string
	pageToken string
	done      bool
}

// ReadEntries returns the next page of children. Drive can answer with an
// empty page that still carries a next token; such pages are skipped so an
// empty page always means the listing is exhausted.
func (r *folderReader) ReadEntries(ctx context.Context) ([]adapter.Entry, error) {
	for !r.done {
		if err := r.src.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := r.src.service.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", r.folderID)).
			PageSize(r.src.pageSize).
			OrderBy("folder,name").
			Fields(listFields)
		if r.pageToken != "" {
			call = call.PageToken(r.pageToken)
		}

		fileList, err := call.Context(ctx).Do()
		if err != nil {
			r.done = true
			return nil, mapError(err)
		}

		r.pageToken = fileList.NextPageToken
		if r.pageToken == "" {
			r.done = true
		}

		if len(fileList.Files) == 0 {
			continue
		}

		page := make([]adapter.Entry, 0, len(fileList.Files))
		for _, f := range fileList.Files {
			page = append(page, r.src.entryFromDrive(f))
		}
		return page, nil
	}
	return nil, nil
}

// mapError converts Google API errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return domain.ErrNotFound
		case 403:
			for _, item := range apiErr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
				}
			}
			return domain.ErrPermissionDenied
		case 429:
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}

	// Fallback to string matching for non-googleapi errors
	if strings.Contains(err.Error(), "notFound") {
		return domain.ErrNotFound
	}

	return err
}

// Compile-time interface checks
var (
	_ adapter.Source         = (*Source)(nil)
	_ adapter.FileEntry      = (*fileEntry)(nil)
	_ adapter.DirectoryEntry = (*folderEntry)(nil)
)
