// Package factory builds adapter.Source values from configured sources.
package factory

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/adapter/gdrive"
	"github.com/Ning0612/Dropzone/internal/adapter/local"
	"github.com/Ning0612/Dropzone/internal/adapter/s3"
	"github.com/Ning0612/Dropzone/internal/domain"
)

// Factory implements adapter.SourceFactory for every built-in backend
type Factory struct{}

// New returns the default factory
func New() *Factory {
	return &Factory{}
}

// Supports reports whether the backend is built in
func (f *Factory) Supports(sourceType domain.SourceType) bool {
	return sourceType.IsValid()
}

// Create opens the source described by src
func (f *Factory) Create(ctx context.Context, src domain.Source) (adapter.Source, error) {
	switch src.Type {
	case domain.SourceLocal:
		s, err := local.New(src.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to create local source %s: %w", src.Name, err)
		}
		if n := cast.ToInt(src.Config["page_size"]); n > 0 {
			s.SetPageSize(n)
		}
		return s, nil

	case domain.SourceGDrive:
		clientID := src.Config["client_id"]
		clientSecret := src.Config["client_secret"]
		if clientID == "" || clientSecret == "" {
			return nil, fmt.Errorf("%w: gdrive source %s requires client_id and client_secret", domain.ErrConfigInvalid, src.Name)
		}

		s, err := gdrive.New(ctx, clientID, clientSecret, src.Config["token_path"], src.Root, gdrive.Options{
			PageSize:          cast.ToInt64(src.Config["page_size"]),
			RequestsPerSecond: cast.ToFloat64(src.Config["requests_per_second"]),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gdrive source %s: %w", src.Name, err)
		}
		return s, nil

	case domain.SourceS3:
		s, err := s3.New(s3.Config{
			Endpoint:          src.Config["endpoint"],
			AccessKey:         src.Config["access_key"],
			SecretKey:         src.Config["secret_key"],
			Region:            src.Config["region"],
			Bucket:            src.Config["bucket"],
			UseSSL:            cast.ToBool(src.Config["use_ssl"]),
			PageSize:          cast.ToInt(src.Config["page_size"]),
			RequestsPerSecond: cast.ToFloat64(src.Config["requests_per_second"]),
		}, src.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 source %s: %w", src.Name, err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: unknown source type %q", domain.ErrConfigInvalid, src.Type)
	}
}

var _ adapter.SourceFactory = (*Factory)(nil)
