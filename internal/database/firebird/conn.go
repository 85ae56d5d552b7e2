// Package firebird is the Firebird connection manager and cursor adapter.
//
// A Conn owns exactly one server attachment, opened lazily on first use.
// Statements are written in format style (`%s` per parameter, `%%s` for a
// literal) and rewritten to the driver's `?` placeholders on every call.
// Parameters and fetched values go through a translator built from the
// attachment's live character set.
package firebird

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	_ "github.com/nakagami/firebirdsql" // register "firebirdsql" driver

	"github.com/davidelias/django-firebird/internal/database"
	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/logger"
	"github.com/davidelias/django-firebird/internal/translator"
)

const (
	charsetQuery = `SELECT TRIM(cs.RDB$CHARACTER_SET_NAME)
FROM MON$ATTACHMENTS a
JOIN RDB$CHARACTER_SETS cs ON cs.RDB$CHARACTER_SET_ID = a.MON$CHARACTER_SET_ID
WHERE a.MON$ATTACHMENT_ID = CURRENT_CONNECTION`

	versionQuery = `SELECT RDB$GET_CONTEXT('SYSTEM', 'ENGINE_VERSION') FROM RDB$DATABASE`
)

// Opener opens a *sql.DB. It defaults to sql.Open.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Option configures a Conn.
type Option func(*Conn)

// WithOpener replaces sql.Open, e.g. with one returning a mock.
func WithOpener(open Opener) Option {
	return func(c *Conn) { c.open = open }
}

// WithRegistry sets the charset registry the translator is resolved from.
func WithRegistry(r *translator.Registry) Option {
	return func(c *Conn) { c.registry = r }
}

// WithLogger sets the logger. Statements are logged at debug level.
func WithLogger(l *logger.Logger) Option {
	return func(c *Conn) { c.log = l }
}

// WithStrictBatches makes ExecuteMany fail on empty or ragged batches
// instead of returning NoBatch.
func WithStrictBatches() Option {
	return func(c *Conn) { c.strictBatches = true }
}

// Conn manages one attachment to a Firebird database. It is safe for
// concurrent use; a cursor keeps the attachment it was created on, and
// fails with a database error once Close has released it.
type Conn struct {
	cfg           *database.Config
	open          Opener
	registry      *translator.Registry
	log           *logger.Logger
	strictBatches bool

	mu      sync.Mutex
	db      *sql.DB
	conn    *sql.Conn
	tr      *translator.Translator
	version string
}

// New validates cfg and returns an unconnected Conn. No I/O happens until
// the first cursor, version query or transaction.
func New(cfg *database.Config, opts ...Option) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := connectTimeout(cfg); err != nil {
		return nil, err
	}

	c := &Conn{
		cfg:  cfg.Clone(),
		open: sql.Open,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = translator.DefaultRegistry()
	}
	if c.log == nil {
		c.log = logger.Global()
	}
	c.log = c.log.Component("firebird")

	if _, err := c.registry.Lookup(c.cfg.Charset()); err != nil {
		return nil, err
	}
	return c, nil
}

// connect opens the attachment once and builds the translator from the
// charset the server reports for it. It returns the attachment and
// translator as seen under the lock.
func (c *Conn) connect(ctx context.Context) (*sql.Conn, *translator.Translator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, c.tr, nil
	}

	timeout, _ := connectTimeout(c.cfg)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := c.open(driverName, buildDSN(c.cfg))
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrKindConfiguration, "invalid connection parameters", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, mapError(err, "", nil)
	}

	name, err := c.liveCharset(ctx, conn)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, err
	}
	cs, err := c.registry.Lookup(name)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, err
	}

	c.db, c.conn, c.tr = db, conn, translator.New(cs)
	c.log.InfoWith("connected", map[string]any{
		"host":     c.cfg.Host,
		"database": c.cfg.Database,
		"charset":  cs.Name,
	})
	return c.conn, c.tr, nil
}

// liveCharset asks the server which charset the attachment uses. Servers
// without monitoring tables fall back to the requested charset.
func (c *Conn) liveCharset(ctx context.Context, conn *sql.Conn) (string, error) {
	var name sql.NullString
	err := conn.QueryRowContext(ctx, charsetQuery).Scan(&name)
	switch {
	case err == nil && name.Valid && strings.TrimSpace(name.String) != "":
		return strings.TrimSpace(name.String), nil
	case ctx.Err() != nil:
		return "", mapError(ctx.Err(), charsetQuery, nil)
	}
	c.log.WarnWith("attachment charset unavailable, using requested charset", map[string]any{
		"charset": c.cfg.Charset(),
		"error":   errString(err),
	})
	return c.cfg.Charset(), nil
}

// Cursor returns a cursor bound to the attachment and its translator.
func (c *Conn) Cursor(ctx context.Context) (*Cursor, error) {
	conn, tr, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	return c.newCursor(conn, tr), nil
}

func (c *Conn) newCursor(ex ExecQuerier, tr *translator.Translator) *Cursor {
	return &Cursor{
		ExecQuerier: ex,
		tr:          tr,
		log:         c.log,
		strict:      c.strictBatches,
	}
}

// Charset returns the attachment charset. It is only meaningful after the
// first cursor has been created.
func (c *Conn) Charset() translator.Charset {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return translator.Charset{}
	}
	return c.tr.Charset()
}

// ServerVersion returns the engine version string, e.g. "4.0.2". It is
// queried once per Conn.
func (c *Conn) ServerVersion(ctx context.Context) (string, error) {
	conn, _, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != "" {
		return c.version, nil
	}

	var v sql.NullString
	if err := conn.QueryRowContext(ctx, versionQuery).Scan(&v); err != nil {
		return "", mapError(err, versionQuery, nil)
	}
	if !v.Valid || v.String == "" {
		return "", errs.New(errs.ErrKindDatabase, "server reported no engine version")
	}
	c.version = strings.TrimSpace(v.String)
	return c.version, nil
}

// FirebirdVersion returns the numeric parts of ServerVersion.
func (c *Conn) FirebirdVersion(ctx context.Context) ([]int, error) {
	v, err := c.ServerVersion(ctx)
	if err != nil {
		return nil, err
	}
	return dialect.ParseVersion(v)
}

// Ping checks that the attachment is alive.
func (c *Conn) Ping(ctx context.Context) error {
	conn, _, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		return mapError(err, "", nil)
	}
	return nil
}

// Begin starts a transaction on the attachment. opts is passed to the
// driver unchanged, isolation level included.
func (c *Conn) Begin(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	conn, tr, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, mapError(err, "", nil)
	}
	return &Tx{Cursor: c.newCursor(tx, tr), tx: tx}, nil
}

// Close releases the attachment. A closed Conn reconnects on next use.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	c.db, c.conn, c.tr, c.version = nil, nil, nil, ""
	if connErr != nil {
		return mapError(connErr, "", nil)
	}
	return mapError(dbErr, "", nil)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
