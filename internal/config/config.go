// Package config loads the backend configuration from a YAML file, an
// optional .env file and FBD_* environment variables, in rising priority.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/davidelias/django-firebird/internal/database"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/logger"
)

// DefaultEnvPrefix prefixes every environment override, e.g.
// FBD_DATABASE_HOST or FBD_DATABASE_OPTIONS_ROLE.
const DefaultEnvPrefix = "FBD"

// Config is the whole backend configuration.
type Config struct {
	Database database.Config `koanf:"database"`
	Log      LogConfig       `koanf:"log"`
	Server   ServerConfig    `koanf:"server"`
}

// LogConfig is the file form of logger.Config.
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ServerConfig configures the admin HTTP listener.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// Logger builds the logger described by c.
func (c LogConfig) Logger() *logger.Logger {
	lc := logger.DefaultConfig()
	if c.Level != "" {
		lc.Level = c.Level
	}
	if c.Format != "" {
		lc.Format = c.Format
	}
	if c.File != "" {
		lc.File = &logger.RotateConfig{
			Filename:   c.File,
			MaxSizeMB:  c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAgeDays: c.MaxAgeDays,
			Compress:   c.Compress,
		}
	}
	return logger.New(lc)
}

type options struct {
	envPrefix string
	envFile   string
}

// Option customises Load.
type Option func(*options)

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = prefix }
}

// WithEnvFile reads dotenv variables from path instead of ./.env.
func WithEnvFile(path string) Option {
	return func(o *options) { o.envFile = path }
}

// Load reads the configuration. path may be empty to use defaults and the
// environment only. The database section is validated before returning.
func Load(path string, opts ...Option) (*Config, error) {
	o := &options{envPrefix: DefaultEnvPrefix, envFile: ".env"}
	for _, opt := range opts {
		opt(o)
	}

	k := koanf.New(".")
	_ = k.Set("database.port", 3050)
	_ = k.Set("database.options.charset", database.DefaultCharset)
	_ = k.Set("log.level", "info")
	_ = k.Set("log.format", "json")
	_ = k.Set("server.addr", ":8080")

	if err := loadEnvFile(o.envFile); err != nil {
		return nil, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.ErrKindConfiguration, "load config file "+path, err)
		}
	}

	prefix := o.envPrefix + "_"
	if err := k.Load(env.Provider(prefix, ".", envKey(prefix)), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "load environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "decode config", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errs.Wrap(errs.ErrKindConfiguration, "load env file "+path, err)
	}
	return nil
}

// envKey maps FBD_DATABASE_MAX_THING to database.max_thing: the first
// segment is the section and the rest keeps its underscores, except that
// DATABASE_OPTIONS_X becomes database.options.x.
func envKey(prefix string) func(string) string {
	return func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, prefix))
		section, rest, ok := strings.Cut(key, "_")
		if !ok {
			return key
		}
		if opt, found := strings.CutPrefix(rest, "options_"); found {
			return section + ".options." + opt
		}
		return section + "." + rest
	}
}
