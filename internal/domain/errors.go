package domain

import "errors"

// Adapter errors - returned by directory sources
var (
	// ErrNotFound indicates the requested entry does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions or a path outside the source root
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrNoContent indicates the candidate carries no content handle
	ErrNoContent = errors.New("candidate has no content")

	// ErrRateLimited indicates the remote source throttled a listing request
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Drop errors - interaction level
var (
	// ErrNoPayload indicates a drop event arrived without any payload data
	ErrNoPayload = errors.New("drop event carries no payload")

	// ErrSuperseded indicates a newer interaction replaced this one before it emitted
	ErrSuperseded = errors.New("interaction superseded by a newer one")

	// ErrDisabled indicates the dropzone is disabled and ignored the interaction
	ErrDisabled = errors.New("dropzone disabled")

	// ErrAlreadyWatched indicates another live process watches the same directory
	ErrAlreadyWatched = errors.New("directory already watched")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrSourceNotFound indicates a referenced source doesn't exist
	ErrSourceNotFound = errors.New("source not found")
)
