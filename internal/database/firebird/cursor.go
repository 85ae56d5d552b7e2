package firebird

import (
	"context"
	"database/sql"
	"errors"

	"github.com/davidelias/django-firebird/internal/database"
	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/logger"
	"github.com/davidelias/django-firebird/internal/translator"
)

// ExecQuerier is the raw statement surface shared by *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// NoBatch is what ExecuteMany returns, with a nil error, for an empty batch
// or one whose parameter sets differ in width. Compare with ==.
var NoBatch sql.Result = noBatch{}

type noBatch struct{}

func (noBatch) LastInsertId() (int64, error) { return 0, nil }
func (noBatch) RowsAffected() (int64, error) { return 0, nil }

type batchResult int64

func (r batchResult) LastInsertId() (int64, error) {
	return 0, errs.New(errs.ErrKindDatabase, "Firebird has no last insert id; use LastInsertID or RETURNING")
}
func (r batchResult) RowsAffected() (int64, error) { return int64(r), nil }

// Cursor runs format-style statements on one attachment. The raw
// ExecContext, QueryContext and PrepareContext stay reachable through the
// embedded ExecQuerier and bypass rewriting and translation.
type Cursor struct {
	ExecQuerier

	tr     *translator.Translator
	log    *logger.Logger
	strict bool
}

var _ database.Executor = (*Cursor)(nil)

// Translator returns the translator the cursor was created with.
func (c *Cursor) Translator() *translator.Translator { return c.tr }

// Execute rewrites query for len(params) placeholders and runs it.
// Constraint violations come back as integrity errors, other server
// failures as database errors, both carrying the rewritten query.
func (c *Cursor) Execute(ctx context.Context, query string, params ...any) (sql.Result, error) {
	q, args, err := c.prepare(query, params)
	if err != nil {
		return nil, err
	}
	c.log.Statement("execute", q, len(args))

	res, err := c.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, q, params)
	}
	return res, nil
}

// ExecuteMany runs query once per parameter set through one prepared
// statement. The query is rewritten for the width of the first set.
// An empty or ragged batch is logged and returns NoBatch with no error,
// unless the Conn was opened WithStrictBatches.
func (c *Cursor) ExecuteMany(ctx context.Context, query string, paramSets [][]any) (sql.Result, error) {
	if reason := batchProblem(paramSets); reason != "" {
		if c.strict {
			return nil, errs.New(errs.ErrKindInvalidInput, reason).WithQuery(query, nil)
		}
		c.log.WarnWith("batch skipped", map[string]any{"reason": reason, "sql": query})
		return NoBatch, nil
	}

	q, err := dialect.Rewrite(query, len(paramSets[0]))
	if err != nil {
		return nil, err
	}
	c.log.Statement("execute_many", q, len(paramSets[0]))

	stmt, err := c.PrepareContext(ctx, q)
	if err != nil {
		return nil, mapError(err, q, nil)
	}
	defer stmt.Close()

	var total int64
	for _, params := range paramSets {
		args, err := c.tr.BindAll(params)
		if err != nil {
			return nil, withQuery(err, q, params)
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, mapError(err, q, params)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return batchResult(total), nil
}

// Query runs a row-returning statement. Column values come back translated.
func (c *Cursor) Query(ctx context.Context, query string, params ...any) (database.Rows, error) {
	q, args, err := c.prepare(query, params)
	if err != nil {
		return nil, err
	}
	c.log.Statement("query", q, len(args))

	rows, err := c.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, q, params)
	}
	r, err := newRows(rows, c.tr)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// QueryRow runs a statement expected to return at most one row. Errors are
// deferred to Scan.
func (c *Cursor) QueryRow(ctx context.Context, query string, params ...any) database.Row {
	rows, err := c.Query(ctx, query, params...)
	return &Row{rows: rows, err: err}
}

// LastInsertID reads the current value of table's generator.
func (c *Cursor) LastInsertID(ctx context.Context, table string) (int64, error) {
	var id int64
	if err := c.QueryRow(ctx, dialect.LastInsertIDSQL(table)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Cursor) prepare(query string, params []any) (string, []any, error) {
	q, err := dialect.Rewrite(query, len(params))
	if err != nil {
		return "", nil, err
	}
	args, err := c.tr.BindAll(params)
	if err != nil {
		return "", nil, withQuery(err, q, params)
	}
	return q, args, nil
}

func batchProblem(sets [][]any) string {
	if len(sets) == 0 {
		return "empty parameter batch"
	}
	width := len(sets[0])
	for _, s := range sets[1:] {
		if len(s) != width {
			return "parameter sets differ in width"
		}
	}
	return ""
}

func withQuery(err error, query string, params []any) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.WithQuery(query, params)
	}
	return errs.Wrap(errs.ErrKindInvalidInput, "cannot bind parameters", err).WithQuery(query, params)
}

// Tx is a cursor inside a transaction.
type Tx struct {
	*Cursor
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return mapError(t.tx.Commit(), "COMMIT", nil)
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return mapError(t.tx.Rollback(), "ROLLBACK", nil)
}

// Savepoint marks a point the transaction can roll back to.
func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.Execute(ctx, dialect.SavepointCreateSQL(name))
	return err
}

// RollbackTo undoes work done since the savepoint.
func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.Execute(ctx, dialect.SavepointRollbackSQL(name))
	return err
}

// Release forgets a savepoint.
func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.Execute(ctx, dialect.SavepointReleaseSQL(name))
	return err
}
