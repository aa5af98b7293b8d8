package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"crudgen/internal/schema"
)

// FileName is the project config file looked up in the working directory.
const FileName = "crudgen.json"

type Config struct {
	ProjectRoot string `json:"projectRoot"`
	EntitiesDir string `json:"entitiesDir"` // relative to ProjectRoot unless absolute
	EnumsDir    string `json:"enumsDir"`

	Dialect        string `json:"dialect"`
	Audit          bool   `json:"audit"`
	OptimisticLock bool   `json:"optimisticLock"`

	Listen   string `json:"listen"`
	LogLevel string `json:"logLevel"`
}

func def() Config {
	return Config{
		ProjectRoot:    ".",
		EntitiesDir:    "dsl",
		EnumsDir:       "reference/enums",
		Dialect:        "postgres",
		Audit:          false,
		OptimisticLock: false,
		Listen:         ":8080",
		LogLevel:       "info",
	}
}

// Default returns the built-in configuration.
func Default() Config { return def() }

func loadJSON(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, c)
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

// Load layers the defaults, the JSON file at path (when it exists) and the
// CRUDGEN_* environment. Command-line flags are applied by the caller.
func Load(path string) (Config, error) {
	cfg := def()

	if path != "" {
		err := loadJSON(path, &cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.ProjectRoot = getenv("CRUDGEN_ROOT", cfg.ProjectRoot)
	cfg.EntitiesDir = getenv("CRUDGEN_ENTITIES_DIR", cfg.EntitiesDir)
	cfg.EnumsDir = getenv("CRUDGEN_ENUMS_DIR", cfg.EnumsDir)
	cfg.Dialect = getenv("CRUDGEN_DIALECT", cfg.Dialect)
	cfg.Audit = getenvBool("CRUDGEN_AUDIT", cfg.Audit)
	cfg.OptimisticLock = getenvBool("CRUDGEN_OPTIMISTIC_LOCK", cfg.OptimisticLock)
	cfg.Listen = getenv("CRUDGEN_LISTEN", cfg.Listen)
	cfg.LogLevel = getenv("CRUDGEN_LOG_LEVEL", cfg.LogLevel)

	return cfg, cfg.Validate()
}

// Validate checks the values that have a closed set of options.
func (c Config) Validate() error {
	var errs []error
	if _, err := schema.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.ProjectRoot) == "" {
		errs = append(errs, errors.New("project root is empty"))
	}
	return errors.Join(errs...)
}

// SchemaDialect returns the configured target dialect.
func (c Config) SchemaDialect() schema.Dialect {
	d, err := schema.ParseDialect(c.Dialect)
	if err != nil {
		return schema.Postgres
	}
	return d
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Path resolves a directory setting against the project root.
func (c Config) Path(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.ProjectRoot, dir)
}

// SchemaOptions returns the synthesis defaults.
func (c Config) SchemaOptions(logger *slog.Logger) schema.Options {
	return schema.Options{Audit: c.Audit, OptimisticLock: c.OptimisticLock, Logger: logger}
}
