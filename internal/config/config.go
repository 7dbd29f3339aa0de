package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/logger"
)

// Config represents the complete configuration for dropzone
type Config struct {
	// Dropzone is the selection policy applied to every interaction
	Dropzone domain.Policy `mapstructure:"dropzone"`

	// Sources are the named places drops are resolved from
	Sources []domain.Source `mapstructure:"sources"`

	Logging logger.Settings `mapstructure:"logging"`
	Watch   WatchConfig     `mapstructure:"watch"`
	Metrics MetricsConfig   `mapstructure:"metrics"`
}

// WatchConfig configures the watch-folder command
type WatchConfig struct {
	// Debounce is the quiet period that closes a batch of created entries
	Debounce time.Duration `mapstructure:"debounce"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Listen is the HTTP address serving /metrics; empty disables it
	Listen string `mapstructure:"listen"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if err := c.Dropzone.Validate(); err != nil {
		return fmt.Errorf("%w: dropzone name cannot be empty", err)
	}

	names := make(map[string]bool)
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("%w: source name cannot be empty", domain.ErrConfigInvalid)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate source name: %s", domain.ErrConfigInvalid, s.Name)
		}
		if !s.Type.IsValid() {
			return fmt.Errorf("%w: invalid source type: %s", domain.ErrConfigInvalid, s.Type)
		}
		if s.Type == domain.SourceLocal && s.Root == "" {
			return fmt.Errorf("%w: local source %s has no root path", domain.ErrConfigInvalid, s.Name)
		}
		names[s.Name] = true
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch debounce cannot be negative", domain.ErrConfigInvalid)
	}

	return nil
}

// GetSource returns a source by name
func (c *Config) GetSource(name string) (*domain.Source, error) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, name)
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
