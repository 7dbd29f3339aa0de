package gdrive

import (
	"errors"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/Ning0612/Dropzone/internal/domain"
)

// TestMapError tests error mapping from Google API errors to domain errors
func TestMapError(t *testing.T) {
	generic := errors.New("generic error")
	serverErr := &googleapi.Error{Code: 500, Message: "server error"}

	tests := []struct {
		name  string
		input error
		want  error
	}{
		{"nil error", nil, nil},
		{"404 not found", &googleapi.Error{Code: 404}, domain.ErrNotFound},
		{"403 permission denied", &googleapi.Error{Code: 403}, domain.ErrPermissionDenied},
		{"429 rate limit", &googleapi.Error{Code: 429}, domain.ErrRateLimited},
		{
			"403 user rate limit",
			&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}},
			domain.ErrRateLimited,
		},
		{"500 passthrough", serverErr, serverErr},
		{"non-googleapi error with notFound string", errors.New("file notFound in drive"), domain.ErrNotFound},
		{"generic passthrough", generic, generic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.input)

			if tt.want == nil {
				if got != nil {
					t.Errorf("mapError(nil) = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMapError_RateLimitKeepsCause tests that the API error stays reachable
func TestMapError_RateLimitKeepsCause(t *testing.T) {
	apiErr := &googleapi.Error{Code: 429, Message: "slow down"}

	got := mapError(apiErr)

	var unwrapped *googleapi.Error
	if !errors.As(got, &unwrapped) || unwrapped.Message != "slow down" {
		t.Errorf("mapError(429) lost the original error: %v", got)
	}
}
