package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the inputs of a single packaging run.
type Config struct {
	// Architecture is the target architecture token, e.g. "x86_64".
	Architecture string `yaml:"architecture"`
	// RootDir is the working checkout the toolchains run in.
	RootDir string `yaml:"root_dir"`
	// OutputRoot is the directory receiving the per-target output tree.
	OutputRoot string `yaml:"output_root"`
	// TemporalVersion selects the third-party temporal CLI release to fetch.
	TemporalVersion string `yaml:"temporal_version"`
	// SkipTemporal disables the external fetch entirely: no network access is attempted.
	SkipTemporal bool `yaml:"skip_temporal"`
	// Strict promotes recovered warnings to a fatal result after the run completes.
	Strict bool `yaml:"strict"`
	// DownloadTimeout bounds the external artifact download.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "goose-packager.yaml"

	// DefaultOutputRoot is the default root of the per-target output tree.
	DefaultOutputRoot = "out"

	// DefaultTemporalVersion is the pinned temporal CLI release fetched when
	// no version is configured.
	DefaultTemporalVersion = "1.1.2"

	// DefaultDownloadTimeout bounds the external artifact download.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables overriding file-sourced settings.
const (
	// EnvArchitecture selects the target architecture token.
	EnvArchitecture = "GOOSE_ARCH"
	// EnvTemporalVersion selects the temporal CLI release version.
	EnvTemporalVersion = "GOOSE_TEMPORAL_VERSION"
	// EnvSkipTemporal disables the external fetch when set to a true-ish value.
	EnvSkipTemporal = "GOOSE_SKIP_TEMPORAL"
	// EnvStrict enables strict completeness when set to a true-ish value.
	EnvStrict = "GOOSE_STRICT"
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads configuration from the provided path, falling back to defaults
// when the file is absent, and applies environment overrides on top.
// A .env file in the working directory is loaded best-effort first.
func Load(path string) (*Config, error) {
	// Advisory only: a missing .env is the common case.
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := &Config{}

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// The settings file is optional.
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	applyEnvironment(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// applyEnvironment overlays process environment values onto the configuration.
func applyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvArchitecture); v != "" {
		cfg.Architecture = v
	}

	if v := os.Getenv(EnvTemporalVersion); v != "" {
		cfg.TemporalVersion = v
	}

	if v := os.Getenv(EnvSkipTemporal); v != "" {
		cfg.SkipTemporal = isTrue(v)
	}

	if v := os.Getenv(EnvStrict); v != "" {
		cfg.Strict = isTrue(v)
	}
}

// applyDefaults fills unset fields with their default values.
func applyDefaults(cfg *Config) {
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}

	if cfg.OutputRoot == "" {
		cfg.OutputRoot = DefaultOutputRoot
	}

	if cfg.TemporalVersion == "" {
		cfg.TemporalVersion = DefaultTemporalVersion
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}
}

// isTrue interprets common boolean spellings, treating unparseable values as true
// so that setting the variable at all acts as an enable switch.
func isTrue(v string) bool {
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}

	return parsed
}
