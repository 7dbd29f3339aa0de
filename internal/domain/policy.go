package domain

import "strings"

// AcceptAll is the accept value that lets every type through
const AcceptAll = "*"

// Policy holds the selection rules of one dropzone
type Policy struct {
	// Name identifies the dropzone in emitted events and logs
	Name string `mapstructure:"name"`

	// Accept is a comma separated list of MIME types, MIME wildcards and extensions
	Accept string `mapstructure:"accept"`

	// MaxFileSize is the inclusive size ceiling in bytes; 0 or less disables the check
	MaxFileSize int64 `mapstructure:"max_file_size"`

	// Multiple allows more than one added file per interaction
	Multiple bool `mapstructure:"multiple"`

	// ExpandDirectories enables recursive extraction of dropped directories
	ExpandDirectories bool `mapstructure:"expand_directories"`

	// Disabled makes the dropzone ignore every interaction
	Disabled bool `mapstructure:"disabled"`

	// Development turns precondition violations (missing payload) into errors
	Development bool `mapstructure:"development"`
}

// DefaultPolicy returns the defaults: accept everything, multiple selection,
// no size ceiling, no directory expansion
func DefaultPolicy() Policy {
	return Policy{
		Name:     "dropzone",
		Accept:   AcceptAll,
		Multiple: true,
	}
}

// HasSizeLimit reports whether the size check is active
func (p Policy) HasSizeLimit() bool {
	return p.MaxFileSize > 0
}

// Validate checks if the policy is properly configured.
// An empty accept string is valid: it accepts nothing.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrConfigInvalid
	}
	return nil
}

// SourceType identifies the backend a source lists from
type SourceType string

const (
	SourceLocal  SourceType = "local"
	SourceGDrive SourceType = "gdrive"
	SourceS3     SourceType = "s3"
)

// IsValid checks if the source type is a known value
func (t SourceType) IsValid() bool {
	switch t {
	case SourceLocal, SourceGDrive, SourceS3:
		return true
	}
	return false
}

// Source defines a place drops are resolved from
type Source struct {
	// Name is the unique identifier
	Name string `mapstructure:"name"`

	// Type identifies the backend
	Type SourceType `mapstructure:"type"`

	// Root path (local directory, Drive folder path, or bucket prefix)
	Root string `mapstructure:"root"`

	// Config holds backend specific settings (client_id, bucket, endpoint...)
	Config map[string]string `mapstructure:"config"`
}
