package database

import (
	"context"
	"database/sql"
)

// Rows is a translated result set. Values and Scan see the same row: values
// are converted once per Next. Close must be called even after an error.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Values() ([]any, error)
	Columns() ([]string, error)
	Close() error
	Err() error
}

// Row is the result of QueryRow. Scan reports sql.ErrNoRows for an empty
// result and any query error deferred from QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// Querier runs format-style statements: `%s` marks each parameter and `%%s`
// a literal `%s`. Implementations rewrite to the driver's own placeholders.
type Querier interface {
	Query(ctx context.Context, query string, params ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, params ...any) Row
}

// Executor is a Querier that also runs statements without a result set.
type Executor interface {
	Querier
	Execute(ctx context.Context, query string, params ...any) (sql.Result, error)
	ExecuteMany(ctx context.Context, query string, paramSets [][]any) (sql.Result, error)
}
