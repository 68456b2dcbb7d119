package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, uint8(127), cfg.Threshold)
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "qpixel.yaml", "seed: 42\nworkers: 8\nsimulate: true\nchunk_size: 64\nthreshold: 100\nlog_file: run.log\n")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 64, cfg.ChunkSize)
	assert.Equal(t, uint8(100), cfg.Threshold)
	assert.Equal(t, "run.log", cfg.LogFile)
	assert.Equal(t, 3, cfg.TraceCircuits, "unset keys keep their defaults")
}

func TestLoadEmptyYAML(t *testing.T) {
	cfg, err := Load(writeTemp(t, "empty.yaml", ""), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeTemp(t, "bad.yaml", "wokers: 2\n"), "")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeTemp(t, "qpixel.yaml", "workers: 2\nseed: 5\n")
	t.Setenv("QPIXEL_WORKERS", "6")
	t.Setenv("QPIXEL_TUI", "true")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, uint64(5), cfg.Seed)
	assert.True(t, cfg.TUI)
}

func TestDotEnvFile(t *testing.T) {
	// Registered so the variable is restored after the test.
	t.Setenv("QPIXEL_CHUNK_SIZE", "")
	os.Unsetenv("QPIXEL_CHUNK_SIZE")
	env := writeTemp(t, ".env", "QPIXEL_CHUNK_SIZE=250\n")

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ChunkSize)
}

func TestMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("QPIXEL_THRESHOLD", "300")
	_, err := Load("", "")
	assert.ErrorContains(t, err, "QPIXEL_THRESHOLD")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ChunkSize = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}
