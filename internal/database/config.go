package database

import (
	"maps"
	"strings"

	"github.com/davidelias/django-firebird/internal/errs"
)

// DefaultCharset is the attachment character set requested when the options
// do not name one.
const DefaultCharset = "UNICODE_FSS"

// Config is the connection record handed to the connection manager.
// It is treated as immutable once a connection has been opened from it;
// use Clone when a modified copy is needed.
type Config struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"` // file path or server-side alias
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Options are forwarded verbatim to the wire driver (charset, role, timeout, …).
	Options map[string]string `koanf:"options"`
}

// Validate fails with a configuration error before any I/O is attempted.
func (c *Config) Validate() error {
	if c == nil {
		return errs.New(errs.ErrKindConfiguration, "no database configuration supplied")
	}
	if strings.TrimSpace(c.Database) == "" {
		return errs.New(errs.ErrKindConfiguration, "database name or alias must be set")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errs.Newf(errs.ErrKindConfiguration, "port %d out of range", c.Port)
	}
	return nil
}

// Charset returns the requested attachment charset.
func (c *Config) Charset() string {
	if cs := c.Options["charset"]; cs != "" {
		return strings.ToUpper(cs)
	}
	return DefaultCharset
}

// Clone returns a deep copy so later edits never reach an open connection.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Options = maps.Clone(c.Options)
	return &cp
}
