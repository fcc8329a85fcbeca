package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herdcore/internal/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, core.StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, core.DefaultMaturityConcurrency, cfg.Maturity.Concurrency)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "herdcore.yaml", `
storage:
  driver: memory
archive:
  driver: s3
  s3:
    bucket: herd-archive
    region: eu-west-1
http:
  addr: ":9090"
log:
  level: debug
maturity:
  concurrency: 8
`)
	t.Setenv("HERDCORE_HTTP_ADDR", ":7070")
	t.Setenv("HERDCORE_S3_PATH_STYLE", "true")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, core.StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "herd-archive", cfg.Archive.S3.Bucket)
	assert.True(t, cfg.Archive.S3.PathStyle)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep their defaults")
	assert.Equal(t, 8, cfg.Maturity.Concurrency)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "HERDCORE_MATURITY_CONCURRENCY=6\nHERDCORE_ARCHIVE_ROOT=/srv/archive\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("HERDCORE_MATURITY_CONCURRENCY")
		_ = os.Unsetenv("HERDCORE_ARCHIVE_ROOT")
	})
	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Maturity.Concurrency)
	assert.Equal(t, "/srv/archive", cfg.Archive.Root)

	_, err = Load("", filepath.Join(dir, "missing.env"))
	assert.Error(t, err, "an explicit env file must exist")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := Load(filepath.Join(dir, "missing.yaml"), "")
	assert.ErrorContains(t, err, "read config")

	bad := writeFile(t, dir, "bad.yaml", "storage: [")
	_, err = Load(bad, "")
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("HERDCORE_MATURITY_CONCURRENCY", "many")
	_, err = Load("", "")
	assert.ErrorContains(t, err, "HERDCORE_MATURITY_CONCURRENCY")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown storage", func(c *Config) { c.Storage.Driver = "cassandra" }, "storage"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = core.StoragePostgres }, "postgres_dsn"},
		{"unknown archive", func(c *Config) { c.Archive.Driver = "tape" }, "archive"},
		{"s3 without bucket", func(c *Config) { c.Archive.Driver = "s3" }, "bucket"},
		{"zero concurrency", func(c *Config) { c.Maturity.Concurrency = 0 }, "concurrency"},
		{"missing addr", func(c *Config) { c.HTTP.Addr = "" }, "addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.errMsg)
		})
	}
	assert.NoError(t, Default().Validate())
}
