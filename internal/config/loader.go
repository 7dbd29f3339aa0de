package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/Dropzone/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. DROPZONE_DROPZONE_ACCEPT
// or DROPZONE_LOGGING_LEVEL
const EnvPrefix = "DROPZONE"

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "dropzone"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "dropzone"))
		paths = append(paths, filepath.Join(homeDir, ".dropzone"))
	}

	return paths
}

// newViper returns a viper instance with defaults and env overrides applied
func newViper() *viper.Viper {
	v := viper.New()

	policy := domain.DefaultPolicy()
	v.SetDefault("dropzone.name", policy.Name)
	v.SetDefault("dropzone.accept", policy.Accept)
	v.SetDefault("dropzone.max_file_size", policy.MaxFileSize)
	v.SetDefault("dropzone.multiple", policy.Multiple)
	v.SetDefault("dropzone.expand_directories", policy.ExpandDirectories)
	v.SetDefault("dropzone.disabled", policy.Disabled)
	v.SetDefault("dropzone.development", policy.Development)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.compress", false)

	v.SetDefault("watch.debounce", "500ms")
	v.SetDefault("metrics.listen", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Default returns the configuration used when no file exists: defaults plus
// environment overrides, no sources
func Default() (*Config, error) {
	return decode(newViper())
}

// Load reads and parses a configuration file.
// If path is empty, searches default locations for config.yaml
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	for i := range cfg.Sources {
		if cfg.Sources[i].Type == domain.SourceLocal && cfg.Sources[i].Root != "" {
			cfg.Sources[i].Root = ExpandPath(cfg.Sources[i].Root)
		}
	}
	if cfg.Logging.File != "" {
		cfg.Logging.File = ExpandPath(cfg.Logging.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
