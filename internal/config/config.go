// =============================================================================
// Speakboard - Configuration Module
// =============================================================================
//
// Loads the application configuration from a YAML file and environment
// variables. Priority: ENV > YAML > defaults (env-default tags).
//
// CONFIGURATION SECTIONS:
//   paths   - where spreadsheets are picked up, archived and reported
//   store   - where the folder collection is persisted (file or postgres)
//   fetch   - image download limits
//   import  - spreadsheet reading options
//   server  - HTTP import API
//   log     - level and format
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ginjaninja78/speakboard/internal/validation"
)

// DefaultPath is read when neither an explicit path nor CONFIG_PATH is set.
const DefaultPath = "./config.yaml"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config is the root application configuration.
type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	Store  StoreConfig  `yaml:"store"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Import ImportConfig `yaml:"import"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// PathsConfig holds the batch directories used by the import command.
type PathsConfig struct {
	// InputDir is scanned for spreadsheets when no file is given.
	InputDir string `yaml:"input_dir" env:"SPEAKBOARD_INPUT_DIR" env-default:"./input" validate:"notblank"`

	// ArchiveDir receives input files after a successful import.
	ArchiveDir string `yaml:"archive_dir" env:"SPEAKBOARD_ARCHIVE_DIR" env-default:"./input_archive" validate:"notblank"`

	// ReportDir receives one YAML report per imported file.
	ReportDir string `yaml:"report_dir" env:"SPEAKBOARD_REPORT_DIR" env-default:"./reports" validate:"notblank"`

	// FilePattern is a comma-separated list of globs matched in InputDir.
	FilePattern string `yaml:"file_pattern" env:"SPEAKBOARD_FILE_PATTERN" env-default:"*.xlsx,*.csv"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"SPEAKBOARD_STORE_DRIVER" env-default:"file" validate:"oneof=file postgres"`
	Dir    string `yaml:"dir"    env:"SPEAKBOARD_STORE_DIR"    env-default:"./library"`
	DSN    string `yaml:"dsn"    env:"DATABASE_DSN"`
}

// FetchConfig bounds image downloads. Attempts counts the first try.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"       env:"SPEAKBOARD_FETCH_TIMEOUT"       env-default:"15s"      validate:"gt=0"`
	MaxBytes     int64         `yaml:"max_bytes"     env:"SPEAKBOARD_FETCH_MAX_BYTES"     env-default:"10485760" validate:"gt=0"`
	Attempts     int           `yaml:"attempts"      env:"SPEAKBOARD_FETCH_ATTEMPTS"      env-default:"2"        validate:"gte=1,lte=6"`
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"SPEAKBOARD_FETCH_RETRY_BACKOFF" env-default:"500ms"    validate:"gte=0"`
	Concurrency  int           `yaml:"concurrency"   env:"SPEAKBOARD_FETCH_CONCURRENCY"   env-default:"4"        validate:"gte=1,lte=64"`
	UserAgent    string        `yaml:"user_agent"    env:"SPEAKBOARD_FETCH_USER_AGENT"    env-default:"speakboard-importer/1.0"`
}

// ImportConfig holds spreadsheet reading options.
type ImportConfig struct {
	// CSVDelimiter accepts a single character or one of the aliases
	// "comma", "semicolon", "tab", "pipe".
	CSVDelimiter string `yaml:"csv_delimiter" env:"SPEAKBOARD_CSV_DELIMITER" env-default:","`

	// KeepInput leaves imported files in place instead of moving them to
	// Paths.ArchiveDir.
	KeepInput bool `yaml:"keep_input" env:"SPEAKBOARD_KEEP_INPUT"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                 string        `yaml:"host"                   env:"SERVER_HOST"                   env-default:"0.0.0.0"`
	Port                 int           `yaml:"port"                   env:"SERVER_PORT"                   env-default:"8080"     validate:"gt=0,lte=65535"`
	MaxUploadSize        int64         `yaml:"max_upload_size"        env:"SERVER_MAX_UPLOAD_SIZE"        env-default:"33554432" validate:"gt=0"`
	MaxConcurrentImports int           `yaml:"max_concurrent_imports" env:"SERVER_MAX_CONCURRENT_IMPORTS" env-default:"2"        validate:"gte=1"`
	ImportWaitTime       time.Duration `yaml:"import_wait_time"       env:"SERVER_IMPORT_WAIT_TIME"       env-default:"10s"`
	ReadTimeout          time.Duration `yaml:"read_timeout"           env:"SERVER_READ_TIMEOUT"           env-default:"30s"`
	WriteTimeout         time.Duration `yaml:"write_timeout"          env:"SERVER_WRITE_TIMEOUT"          env-default:"5m"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"           env:"SERVER_IDLE_TIMEOUT"           env-default:"60s"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"       env:"SERVER_SHUTDOWN_TIMEOUT"       env-default:"15s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Retries returns the number of attempts after the first.
func (f FetchConfig) Retries() int {
	return f.Attempts - 1
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" validate:"oneof=text json"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration. The file is path when given, otherwise
// CONFIG_PATH, otherwise DefaultPath. A missing file is an error only when
// it was named explicitly; otherwise ENV and defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	case explicit || !errors.Is(statErr, fs.ErrNotExist):
		return nil, fmt.Errorf("config: file %s: %w", path, statErr)
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks field rules and cross-field constraints.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	case "file":
		if c.Store.Dir == "" {
			return errors.New("store.dir is required for the file driver")
		}
	}
	return nil
}
