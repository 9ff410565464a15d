// Package config loads jot settings from an optional YAML file and JOT_*
// environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pbaille/jot/internal/kv"
	"github.com/rs/zerolog"
)

// Config is the full jot configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir" env:"JOT_DATA_DIR"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Dictation DictationConfig `yaml:"dictation"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend     string `yaml:"backend" env:"JOT_STORAGE_BACKEND" env-default:"sqlite"`
	Path        string `yaml:"path" env:"JOT_STORAGE_PATH"`
	Key         string `yaml:"key" env:"JOT_STORAGE_KEY" env-default:"notes"`
	RedisAddr   string `yaml:"redis_addr" env:"JOT_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPrefix string `yaml:"redis_prefix" env:"JOT_REDIS_PREFIX" env-default:"jot:"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"JOT_LOG_LEVEL" env-default:"info"`
	// Format is "console" or "json".
	Format string `yaml:"format" env:"JOT_LOG_FORMAT" env-default:"console"`
	// File, when set, receives logs instead of stderr. Relative paths are
	// resolved against DataDir.
	File string `yaml:"file" env:"JOT_LOG_FILE"`
}

type DictationConfig struct {
	// Command is the recognizer argv, see dictation.CommandEngine.
	Command  []string `yaml:"command" env:"JOT_DICTATION_COMMAND" env-separator:" "`
	Language string   `yaml:"language" env:"JOT_DICTATION_LANGUAGE" env-default:"en-US"`
}

// DefaultDir returns ~/.jot.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jot"
	}
	return filepath.Join(home, ".jot")
}

// DefaultPath returns the config file looked up when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yml")
}

// Load reads path if it exists, then the environment. An empty path means
// DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	var cfg Config
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat config %s: %w", path, statErr)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDir()
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case kv.BackendSQLite:
			c.Storage.Path = filepath.Join(c.DataDir, "jot.db")
		case kv.BackendFile:
			c.Storage.Path = filepath.Join(c.DataDir, "store")
		}
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(c.DataDir, c.Log.File)
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case kv.BackendSQLite, kv.BackendFile, kv.BackendRedis, kv.BackendMemory:
	default:
		return fmt.Errorf("invalid storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return errors.New("storage key must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

// KVOptions maps the storage section onto kv.Open options.
func (c *Config) KVOptions() kv.Options {
	return kv.Options{
		Backend:     c.Storage.Backend,
		Path:        c.Storage.Path,
		RedisAddr:   c.Storage.RedisAddr,
		RedisPrefix: c.Storage.RedisPrefix,
	}
}
