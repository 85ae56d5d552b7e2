package database

import (
	"fmt"
	"strings"

	"github.com/davidelias/django-firebird/internal/errs"
)

// ScanRows drains rows into one map per row, keyed by column name, and
// closes it. Zero rows give an empty, non-nil slice.
func ScanRows(rows Rows) ([]map[string]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindDatabase, "read column names", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, zip(cols, vals))
	}
	return out, rows.Err()
}

// ScanRow reads a QueryRow result into a map keyed by columns, which must
// match the selected columns in order.
func ScanRow(row Row, columns []string) (map[string]any, error) {
	vals := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, err
	}
	return zip(columns, vals), nil
}

// ScanNames collects the first column of every row as a trimmed string.
// Catalog queries return CHAR columns padded with blanks.
func ScanNames(rows Rows) ([]string, error) {
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 || vals[0] == nil {
			continue
		}
		names = append(names, strings.TrimSpace(fmt.Sprint(vals[0])))
	}
	return names, rows.Err()
}

func zip(cols []string, vals []any) map[string]any {
	m := make(map[string]any, len(cols))
	for i, c := range cols {
		m[c] = vals[i]
	}
	return m
}
