// Package s3 exposes an S3 (or MinIO) key prefix as a drop source.
// Prefixes ending in "/" are directories; objects are files.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/domain"
)

const (
	// DefaultPageSize is the number of keys returned per directory page
	DefaultPageSize = 100
	// DefaultRequestsPerSecond paces listing pages
	DefaultRequestsPerSecond = 50
)

// Config holds the connection settings of an S3 source
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool

	PageSize          int
	RequestsPerSecond float64
}

// objectAPI is the part of *minio.Client the source uses
type objectAPI interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
}

var _ objectAPI = (*minio.Client)(nil)

// Source implements adapter.Source over a bucket prefix
type Source struct {
	api      objectAPI
	bucket   string
	root     string // key prefix without trailing slash; "" for the whole bucket
	pageSize int
	limiter  *rate.Limiter
}

// New connects to the endpoint with static credentials
func New(cfg Config, root string) (*Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 source requires a bucket", domain.ErrConfigInvalid)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return newSource(client, cfg, root), nil
}

func newSource(api objectAPI, cfg Config, root string) *Source {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Source{
		api:      api,
		bucket:   cfg.Bucket,
		root:     strings.Trim(root, "/"),
		pageSize: cfg.PageSize,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Type returns domain.SourceS3
func (s *Source) Type() domain.SourceType {
	return domain.SourceS3
}

// Close releases any resources
func (s *Source) Close() error {
	return nil
}

// key joins relPath with the root prefix, rejecting escapes
func (s *Source) key(relPath string) (string, error) {
	relPath = strings.ReplaceAll(relPath, "\\", "/")
	if relPath == "" || relPath == "." {
		return s.root, nil
	}

	clean := path.Clean(relPath)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", domain.ErrPermissionDenied
	}

	if s.root == "" {
		return clean, nil
	}
	return s.root + "/" + clean, nil
}

// Entry returns the object or prefix at relPath. An object wins over a
// prefix of the same name.
func (s *Source) Entry(ctx context.Context, relPath string) (adapter.Entry, error) {
	key, err := s.key(relPath)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return &prefixEntry{src: s, prefix: "", name: s.bucket}, nil
	}

	info, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return &objectEntry{src: s, key: key, size: info.Size}, nil
	}
	if mapped := mapError(err); mapped != domain.ErrNotFound {
		return nil, mapped
	}

	// Not an object; a prefix exists if anything is listed under it
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range s.api.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{Prefix: key + "/", MaxKeys: 1}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err)
		}
		return &prefixEntry{src: s, prefix: key + "/", name: path.Base(key)}, nil
	}

	return nil, domain.ErrNotFound
}

// objectEntry is one object
type objectEntry struct {
	src  *Source
	key  string
	size int64
}

func (e *objectEntry) Name() string { return path.Base(e.key) }
func (e *objectEntry) IsDir() bool  { return false }

// File stats the object so a key deleted after listing fails here. Generic
// binary content types fall back to the extension guess.
func (e *objectEntry) File(ctx context.Context) (domain.FileCandidate, error) {
	info, err := e.src.api.StatObject(ctx, e.src.bucket, e.key, minio.StatObjectOptions{})
	if err != nil {
		return domain.FileCandidate{}, mapError(err)
	}

	name := path.Base(e.key)
	mimeType, _, _ := strings.Cut(info.ContentType, ";")
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" || mimeType == "binary/octet-stream" {
		mimeType = adapter.MimeTypeByName(name)
	}

	src, key := e.src, e.key
	return domain.FileCandidate{
		Name:     name,
		MimeType: mimeType,
		Size:     info.Size,
		Path:     strings.TrimPrefix(strings.TrimPrefix(key, src.root), "/"),
		Content: domain.OpenerFunc(func(ctx context.Context) (io.ReadCloser, error) {
			obj, err := src.api.GetObject(ctx, src.bucket, key, minio.GetObjectOptions{})
			if err != nil {
				return nil, mapError(err)
			}
			return obj, nil
		}),
	}, nil
}

// prefixEntry is a "directory": every key sharing the prefix
type prefixEntry struct {
	src    *Source
	prefix string // ends with "/" unless it is the bucket root
	name   string
}

func (e *prefixEntry) Name() string { return e.name }
func (e *prefixEntry) IsDir() bool  { return true }

func (e *prefixEntry) CreateReader() adapter.DirectoryReader {
	return &prefixReader{src: e.src, prefix: e.prefix}
}

// prefixReader consumes a non-recursive listing in pages of pageSize.
// The listing starts on the first call and is bound to that call's context.
type prefixReader struct {
	src     *Source
	prefix  string
	objects <-chan minio.ObjectInfo
	cancel  context.CancelFunc
	done    bool
}

func (r *prefixReader) ReadEntries(ctx context.Context) ([]adapter.Entry, error) {
	if r.done {
		return nil, nil
	}
	if err := r.src.limiter.Wait(ctx); err != nil {
		r.Close()
		return nil, err
	}

	if r.objects == nil {
		listCtx, cancel := context.WithCancel(ctx)
		r.cancel = cancel
		r.objects = r.src.api.ListObjects(listCtx, r.src.bucket, minio.ListObjectsOptions{
			Prefix:    r.prefix,
			Recursive: false,
		})
	}

	page := make([]adapter.Entry, 0, r.src.pageSize)
	for len(page) < r.src.pageSize {
		var obj minio.ObjectInfo
		var ok bool
		select {
		case obj, ok = <-r.objects:
		case <-ctx.Done():
			r.Close()
			return nil, ctx.Err()
		}
		if !ok {
			r.Close()
			break
		}
		if obj.Err != nil {
			r.Close()
			return nil, mapError(obj.Err)
		}
		// folder marker object
		if obj.Key == r.prefix {
			continue
		}

		if strings.HasSuffix(obj.Key, "/") {
			name := path.Base(strings.TrimSuffix(obj.Key, "/"))
			page = append(page, &prefixEntry{src: r.src, prefix: obj.Key, name: name})
			continue
		}
		page = append(page, &objectEntry{src: r.src, key: obj.Key, size: obj.Size})
	}

	return page, nil
}

// Close ends the listing and stops the background ListObjects goroutine
func (r *prefixReader) Close() error {
	r.done = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	return nil
}

// mapError converts S3 error responses to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return domain.ErrNotFound
	case "AccessDenied":
		return domain.ErrPermissionDenied
	case "SlowDown", "SlowDownRead", "TooManyRequests":
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusForbidden:
		return domain.ErrPermissionDenied
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	return err
}

// Compile-time interface checks
var (
	_ adapter.Source         = (*Source)(nil)
	_ adapter.FileEntry      = (*objectEntry)(nil)
	_ adapter.DirectoryEntry = (*prefixEntry)(nil)
)
