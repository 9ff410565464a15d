package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pbaille/jot/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnv = []string{
	"JOT_DATA_DIR", "JOT_STORAGE_BACKEND", "JOT_STORAGE_PATH", "JOT_STORAGE_KEY",
	"JOT_REDIS_ADDR", "JOT_REDIS_PREFIX", "JOT_LOG_LEVEL", "JOT_LOG_FORMAT",
	"JOT_LOG_FILE", "JOT_DICTATION_COMMAND", "JOT_DICTATION_LANGUAGE",
}

// clearEnv blanks every JOT_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnv {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("JOT_DATA_DIR", dir)

	cfg, err := Load(filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, kv.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "jot.db"), cfg.Storage.Path)
	assert.Equal(t, "notes", cfg.Storage.Key)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, "jot:", cfg.Storage.RedisPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.Empty(t, cfg.Dictation.Command)
	assert.Equal(t, "en-US", cfg.Dictation.Language)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: `+dir+`
storage:
  backend: file
log:
  level: debug
  format: json
  file: jot.log
dictation:
  command: [vosk-stream, --model, small]
  language: pt-BR
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, kv.BackendFile, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "store"), cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, filepath.Join(dir, "jot.log"), cfg.Log.File)
	assert.Equal(t, []string{"vosk-stream", "--model", "small"}, cfg.Dictation.Command)
	assert.Equal(t, "pt-BR", cfg.Dictation.Language)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: file\n  key: personal\n"), 0644))

	t.Setenv("JOT_DATA_DIR", dir)
	t.Setenv("JOT_STORAGE_BACKEND", "redis")
	t.Setenv("JOT_REDIS_ADDR", "127.0.0.1:7000")
	t.Setenv("JOT_DICTATION_COMMAND", "my-recognizer --stream")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, kv.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "personal", cfg.Storage.Key)
	assert.Empty(t, cfg.Storage.Path, "redis has no path")
	assert.Equal(t, []string{"my-recognizer", "--stream"}, cfg.Dictation.Command)

	opts := cfg.KVOptions()
	assert.Equal(t, kv.Options{
		Backend:     kv.BackendRedis,
		RedisAddr:   "127.0.0.1:7000",
		RedisPrefix: "jot:",
	}, opts)
}

func TestLoadInvalid(t *testing.T) {
	for name, env := range map[string][2]string{
		"backend": {"JOT_STORAGE_BACKEND", "s3"},
		"level":   {"JOT_LOG_LEVEL", "loud"},
		"format":  {"JOT_LOG_FORMAT", "xml"},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JOT_DATA_DIR", t.TempDir())
			t.Setenv(env[0], env[1])
			_, err := Load(filepath.Join(t.TempDir(), "none.yml"))
			assert.Error(t, err)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
