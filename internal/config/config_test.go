package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"csv"}, cfg.Extensions)
	assert.Equal(t, runtime.NumCPU(), cfg.Parallelism)
	assert.Equal(t, types.StrategySequential, cfg.Strategy())
	assert.Equal(t, ',', cfg.DelimiterRune())
	assert.Equal(t, rune(0), cfg.CommentRune())
	assert.True(t, cfg.Decode.HasHeader)
	assert.NotEmpty(t, cfg.Source.DownloadDir)
}

func TestStrategy(t *testing.T) {
	tests := []struct {
		concurrent, multicore bool
		want                  types.StrategyName
	}{
		{false, false, types.StrategySequential},
		{false, true, types.StrategySequential},
		{true, false, types.StrategyConcurrent},
		{true, true, types.StrategyMulticore},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Concurrent, cfg.MultiCore = tt.concurrent, tt.multicore
		assert.Equal(t, tt.want, cfg.Strategy(), "concurrent=%v multicore=%v", tt.concurrent, tt.multicore)
	}
}

func TestResolve_NormalizesExtensions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extensions = []string{".csv", " tsv ", "csv.sz"}
	cfg.Resolve()
	assert.Equal(t, []string{"csv", "tsv", "csv.sz"}, cfg.Extensions)

	cfg.Extensions = nil
	cfg.Resolve()
	assert.Equal(t, []string{"csv"}, cfg.Extensions)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"negative parallelism", func(c *Config) { c.Parallelism = -2 }},
		{"empty folder", func(c *Config) { c.Folder = "" }},
		{"long delimiter", func(c *Config) { c.Decode.Delimiter = ";;" }},
		{"empty delimiter", func(c *Config) { c.Decode.Delimiter = "" }},
		{"comment equals delimiter", func(c *Config) { c.Decode.Comment = "," }},
		{"quote delimiter", func(c *Config) { c.Decode.Delimiter = `"` }},
		{"carriage return delimiter", func(c *Config) { c.Decode.Delimiter = "\r" }},
		{"newline delimiter", func(c *Config) { c.Decode.Delimiter = "\n" }},
		{"invalid utf-8 delimiter", func(c *Config) { c.Decode.Delimiter = "\xff" }},
		{"newline comment", func(c *Config) { c.Decode.Comment = "\n" }},
		{"quote comment", func(c *Config) { c.Decode.Comment = `"` }},
		{"unknown source", func(c *Config) { c.Source.Type = "ftp" }},
		{"local without path", func(c *Config) { c.Source.Type = SourceLocal }},
		{"s3 without bucket", func(c *Config) { c.Source.Type = SourceS3 }},
		{"s3 zero concurrency", func(c *Config) {
			c.Source.Type = SourceS3
			c.Source.S3.Bucket = "b"
			c.Source.Concurrency = 0
		}},
		{"report format", func(c *Config) { c.ReportPath = "out.txt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, loaderr.ErrCategoryValidation, loaderr.GetCategory(err))
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Type = SourceS3
	cfg.Source.S3.Bucket = "datasets"
	cfg.Decode.Delimiter = "\t"
	cfg.Decode.Comment = "#"
	cfg.ReportPath = "out/run.YAML"
	cfg.Parallelism = 1
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabload.yaml")
	content := `
folder: /data/bench
extensions: [csv, csv.sz]
concurrent: true
multicore: true
parallelism: 6
fail_fast: true
decode:
  delimiter: ";"
  lazy_quotes: true
source:
  type: s3
  s3:
    bucket: datasets
    use_path_style: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/bench", cfg.Folder)
	assert.Equal(t, []string{"csv", "csv.sz"}, cfg.Extensions)
	assert.Equal(t, types.StrategyMulticore, cfg.Strategy())
	assert.Equal(t, 6, cfg.Parallelism)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, ';', cfg.DelimiterRune())
	assert.True(t, cfg.Decode.LazyQuotes)
	assert.True(t, cfg.Decode.HasHeader, "unset fields keep their defaults")
	assert.Equal(t, SourceS3, cfg.Source.Type)
	assert.Equal(t, "datasets", cfg.Source.S3.Bucket)
	assert.True(t, cfg.Source.S3.UsePathStyle)
	assert.Equal(t, 10, cfg.Source.Concurrency)
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"folder": "in", "concurrent": true, "parallelism": 2}`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "in", cfg.Folder)
	assert.Equal(t, types.StrategyConcurrent, cfg.Strategy())
	assert.Equal(t, 2, cfg.Parallelism)
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "tabload.toml")
	require.NoError(t, os.WriteFile(txt, []byte("folder = 'x'"), 0644))
	_, err = LoadFromFile(txt)
	assert.ErrorContains(t, err, "unsupported config file format")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("parallelism: [oops"), 0644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "failed to parse YAML config")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TABLOAD_FOLDER", "/env/data")
	t.Setenv("TABLOAD_EXTENSIONS", "csv, tsv,,")
	t.Setenv("TABLOAD_CONCURRENT", "true")
	t.Setenv("TABLOAD_MULTICORE", "1")
	t.Setenv("TABLOAD_PARALLELISM", "3")
	t.Setenv("TABLOAD_FAIL_FAST", "yes") // not a bool: ignored
	t.Setenv("TABLOAD_DECODE_DELIMITER", "|")
	t.Setenv("TABLOAD_SQLITE_TABLE", "events")
	t.Setenv("TABLOAD_SOURCE_TYPE", "local")
	t.Setenv("TABLOAD_SOURCE_PATH", "/store")
	t.Setenv("TABLOAD_SOURCE_CONCURRENCY", "4")
	t.Setenv("TABLOAD_S3_REGION", "eu-west-1")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	assert.Equal(t, "/env/data", cfg.Folder)
	assert.Equal(t, []string{"csv", "tsv"}, cfg.Extensions)
	assert.Equal(t, types.StrategyMulticore, cfg.Strategy())
	assert.Equal(t, 3, cfg.Parallelism)
	assert.False(t, cfg.FailFast)
	assert.Equal(t, '|', cfg.DelimiterRune())
	assert.Equal(t, "events", cfg.Decode.SQLiteTable)
	assert.Equal(t, SourceLocal, cfg.Source.Type)
	assert.Equal(t, "/store", cfg.Source.Path)
	assert.Equal(t, 4, cfg.Source.Concurrency)
	assert.Equal(t, "eu-west-1", cfg.Source.S3.Region)
}

func TestLoadFromEnv_BadNumberKeepsValue(t *testing.T) {
	t.Setenv("TABLOAD_PARALLELISM", "many")
	cfg := DefaultConfig()
	cfg.Parallelism = 5
	LoadFromEnv(cfg)
	assert.Equal(t, 5, cfg.Parallelism)
}
