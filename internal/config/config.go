// Package config provides the layered configuration of a tabload run.
//
// Values are applied in increasing priority: DefaultConfig, a YAML or JSON
// file (LoadFromFile), TABLOAD_* environment variables (LoadFromEnv) and
// finally command-line flags, which the cmd package applies itself.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/arkilian/tabload/internal/dispatch"
	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/pkg/types"
)

// SourceType selects where the dataset is read from.
type SourceType string

const (
	SourceDir   SourceType = "dir"
	SourceLocal SourceType = "local"
	SourceS3    SourceType = "s3"
)

// Config holds the configuration of one benchmark run.
type Config struct {
	// Folder is the directory to load; for object-store sources it is the key prefix
	Folder string `json:"folder" yaml:"folder"`

	// Extensions lists the file extensions to load, without the leading dot
	Extensions []string `json:"extensions" yaml:"extensions"`

	// Concurrent enables a concurrent strategy
	Concurrent bool `json:"concurrent" yaml:"concurrent"`

	// MultiCore selects the partitioned strategy; only honoured together with Concurrent
	MultiCore bool `json:"multicore" yaml:"multicore"`

	// Parallelism is the worker bound P of the partitioned strategy
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	// FailFast aborts the run on the first file that fails to load
	FailFast bool `json:"fail_fast" yaml:"fail_fast"`

	// ReportPath, when set, receives a JSON or YAML run report
	ReportPath string `json:"report_path" yaml:"report_path"`

	// Decode configuration
	Decode DecodeConfig `json:"decode" yaml:"decode"`

	// Source configuration
	Source SourceConfig `json:"source" yaml:"source"`
}

// DecodeConfig holds row-decoder settings.
type DecodeConfig struct {
	// HasHeader consumes the first CSV row as a header that is not counted
	HasHeader bool `json:"has_header" yaml:"has_header"`

	// Delimiter is the CSV field separator (single character)
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// Comment starts a comment line when non-empty (single character)
	Comment string `json:"comment" yaml:"comment"`

	// LazyQuotes relaxes quote handling in CSV fields
	LazyQuotes bool `json:"lazy_quotes" yaml:"lazy_quotes"`

	// SQLiteTable restricts SQLite files to one table; empty means every user table
	SQLiteTable string `json:"sqlite_table" yaml:"sqlite_table"`
}

// SourceConfig holds dataset source settings.
type SourceConfig struct {
	// Type is one of: dir, local, s3
	Type SourceType `json:"type" yaml:"type"`

	// Path is the root of the local object store (type local)
	Path string `json:"path" yaml:"path"`

	// DownloadDir receives staged objects before the run starts
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// Concurrency bounds parallel staging downloads
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// S3 configuration (only used when type is s3)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3-specific configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle forces path-style addressing, as MinIO and LocalStack need
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration: the sequential strategy
// over the CSV files of the current directory.
func DefaultConfig() *Config {
	return &Config{
		Folder:      ".",
		Extensions:  []string{"csv"},
		Parallelism: runtime.NumCPU(),
		Decode: DecodeConfig{
			HasHeader: true,
			Delimiter: ",",
		},
		Source: SourceConfig{
			Type:        SourceDir,
			Concurrency: 10,
		},
	}
}

// Resolve fills derived settings that depend on other fields.
func (c *Config) Resolve() {
	if len(c.Extensions) == 0 {
		c.Extensions = []string{"csv"}
	}
	for i, ext := range c.Extensions {
		c.Extensions[i] = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	}
	if c.Source.Type == "" {
		c.Source.Type = SourceDir
	}
	if c.Source.DownloadDir == "" {
		c.Source.DownloadDir = filepath.Join(os.TempDir(), "tabload", "staging")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Folder == "" && c.Source.Type == SourceDir {
		return loaderr.NewValidationError("folder is required")
	}

	if c.Parallelism < 1 {
		return loaderr.NewValidationError(fmt.Sprintf("parallelism must be at least 1, got %d", c.Parallelism))
	}

	for _, ext := range c.Extensions {
		if ext == "" {
			return loaderr.NewValidationError("extensions must not be empty")
		}
	}

	if len([]rune(c.Decode.Delimiter)) != 1 {
		return loaderr.NewValidationError(fmt.Sprintf("decode.delimiter must be a single character, got %q", c.Decode.Delimiter))
	}
	if !csvSeparator(c.DelimiterRune()) {
		return loaderr.NewValidationError(fmt.Sprintf("decode.delimiter %q cannot separate CSV fields", c.Decode.Delimiter))
	}
	if len([]rune(c.Decode.Comment)) > 1 {
		return loaderr.NewValidationError(fmt.Sprintf("decode.comment must be at most one character, got %q", c.Decode.Comment))
	}
	if c.Decode.Comment != "" && !csvSeparator(c.CommentRune()) {
		return loaderr.NewValidationError(fmt.Sprintf("decode.comment %q cannot start a CSV comment", c.Decode.Comment))
	}
	if c.Decode.Comment != "" && c.Decode.Comment == c.Decode.Delimiter {
		return loaderr.NewValidationError("decode.comment must differ from decode.delimiter")
	}

	switch c.Source.Type {
	case SourceDir:
	case SourceLocal:
		if c.Source.Path == "" {
			return loaderr.NewValidationError("source.path is required when source type is local")
		}
	case SourceS3:
		if c.Source.S3.Bucket == "" {
			return loaderr.NewValidationError("source.s3.bucket is required when source type is s3")
		}
	default:
		return loaderr.NewValidationError(fmt.Sprintf("invalid source type: %s (must be dir, local, or s3)", c.Source.Type))
	}
	if c.Source.Type != SourceDir && c.Source.Concurrency < 1 {
		return loaderr.NewValidationError(fmt.Sprintf("source.concurrency must be at least 1, got %d", c.Source.Concurrency))
	}

	if c.ReportPath != "" {
		switch strings.ToLower(filepath.Ext(c.ReportPath)) {
		case ".json", ".yaml", ".yml":
		default:
			return loaderr.NewValidationError(fmt.Sprintf("report_path must end in .json, .yaml or .yml, got %s", c.ReportPath))
		}
	}

	return nil
}

// Strategy returns the execution strategy selected by Concurrent and MultiCore.
// MultiCore without Concurrent has no effect.
func (c *Config) Strategy() types.StrategyName {
	return dispatch.Select(c.Concurrent, c.MultiCore)
}

// DelimiterRune returns the CSV delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	return firstRune(c.Decode.Delimiter, ',')
}

// CommentRune returns the CSV comment character, or 0 when comments are disabled.
func (c *Config) CommentRune() rune {
	return firstRune(c.Decode.Comment, 0)
}

// LoadFromFile loads configuration from a YAML or JSON file on top of DefaultConfig.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TABLOAD_ prefix. Unparseable numbers and
// booleans are ignored and leave the current value in place.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("TABLOAD_FOLDER"); v != "" {
		cfg.Folder = v
	}
	if v := os.Getenv("TABLOAD_EXTENSIONS"); v != "" {
		cfg.Extensions = SplitList(v)
	}
	if v := os.Getenv("TABLOAD_CONCURRENT"); v != "" {
		setBool(&cfg.Concurrent, v)
	}
	if v := os.Getenv("TABLOAD_MULTICORE"); v != "" {
		setBool(&cfg.MultiCore, v)
	}
	if v := os.Getenv("TABLOAD_PARALLELISM"); v != "" {
		setInt(&cfg.Parallelism, v)
	}
	if v := os.Getenv("TABLOAD_FAIL_FAST"); v != "" {
		setBool(&cfg.FailFast, v)
	}
	if v := os.Getenv("TABLOAD_REPORT_PATH"); v != "" {
		cfg.ReportPath = v
	}

	// Decode configuration
	if v := os.Getenv("TABLOAD_DECODE_HAS_HEADER"); v != "" {
		setBool(&cfg.Decode.HasHeader, v)
	}
	if v := os.Getenv("TABLOAD_DECODE_DELIMITER"); v != "" {
		cfg.Decode.Delimiter = v
	}
	if v := os.Getenv("TABLOAD_DECODE_COMMENT"); v != "" {
		cfg.Decode.Comment = v
	}
	if v := os.Getenv("TABLOAD_DECODE_LAZY_QUOTES"); v != "" {
		setBool(&cfg.Decode.LazyQuotes, v)
	}
	if v := os.Getenv("TABLOAD_SQLITE_TABLE"); v != "" {
		cfg.Decode.SQLiteTable = v
	}

	// Source configuration
	if v := os.Getenv("TABLOAD_SOURCE_TYPE"); v != "" {
		cfg.Source.Type = SourceType(v)
	}
	if v := os.Getenv("TABLOAD_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("TABLOAD_SOURCE_DOWNLOAD_DIR"); v != "" {
		cfg.Source.DownloadDir = v
	}
	if v := os.Getenv("TABLOAD_SOURCE_CONCURRENCY"); v != "" {
		setInt(&cfg.Source.Concurrency, v)
	}
	if v := os.Getenv("TABLOAD_S3_BUCKET"); v != "" {
		cfg.Source.S3.Bucket = v
	}
	if v := os.Getenv("TABLOAD_S3_REGION"); v != "" {
		cfg.Source.S3.Region = v
	}
	if v := os.Getenv("TABLOAD_S3_ENDPOINT"); v != "" {
		cfg.Source.S3.Endpoint = v
	}
	if v := os.Getenv("TABLOAD_S3_USE_PATH_STYLE"); v != "" {
		setBool(&cfg.Source.S3.UsePathStyle, v)
	}
}

func setBool(dst *bool, v string) {
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// SplitList parses a comma-separated list, dropping empty entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// csvSeparator mirrors the characters encoding/csv accepts as Comma or Comment.
func csvSeparator(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

func firstRune(s string, def rune) rune {
	for _, r := range s {
		return r
	}
	return def
}
