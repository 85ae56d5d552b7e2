package database

import (
	"fmt"
	"strings"

	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
)

// maxRow closes an open-ended ROWS range.
const maxRow = int64(9223372036854775807)

// likeEscaper escapes LIKE wildcards for the ESCAPE'\' clause in the lookup table.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SelectBuilder constructs a format-style SELECT: each value becomes a `%s`
// placeholder and an argument, ready for a cursor's Query. Conditions use the
// Firebird lookup names (exact, icontains, startswith, ...).
//
// Usage:
//
//	sql, args, err := Select("orders").
//	    Columns("id", "total").
//	    Where("status", "exact", "paid").
//	    Where("customer", "icontains", "smith").
//	    OrderBy("placed_at", Desc).
//	    Limit(20).
//	    Offset(40).
//	    Build()
type SelectBuilder struct {
	table   string
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int64
	offset  *int64
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	lookup string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table.
func Select(table string) *SelectBuilder {
	return &SelectBuilder{table: table}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a condition. lookup is one of the dialect's lookup names, or
// "isnull" with a bool value. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, lookup string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, lookup, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int64) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip.
func (b *SelectBuilder) Offset(n int64) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the SQL string and argument slice. Unknown lookups and
// negative limits or offsets are rejected.
func (b *SelectBuilder) Build() (string, []any, error) {
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(b.table))

	var args []any

	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			cond, arg, hasArg, err := condition(w)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, cond)
			if hasArg {
				args = append(args, arg)
			}
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", quoteIdent(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	// Firebird pages with ROWS m TO n, both 1-based and inclusive.
	if b.limit != nil || b.offset != nil {
		var offset int64
		if b.offset != nil {
			offset = *b.offset
		}
		if offset < 0 || (b.limit != nil && *b.limit < 0) {
			return "", nil, errs.New(errs.ErrKindInvalidInput, "limit and offset must not be negative")
		}
		switch {
		case b.limit == nil:
			sb.WriteString(" ROWS %s TO %s")
			args = append(args, offset+1, maxRow)
		case offset == 0:
			sb.WriteString(" ROWS %s")
			args = append(args, *b.limit)
		default:
			sb.WriteString(" ROWS %s TO %s")
			args = append(args, offset+1, offset+*b.limit)
		}
	}

	return sb.String(), args, nil
}

// condition renders one WHERE term. The column side gets the lookup's cast,
// the value side the operator fragment with its single placeholder.
func condition(w whereClause) (string, any, bool, error) {
	col := quoteIdent(w.column)

	if w.lookup == "isnull" {
		isNull, ok := w.value.(bool)
		if !ok {
			return "", nil, false, errs.Newf(errs.ErrKindInvalidInput, "isnull lookup on %s needs a bool, got %T", w.column, w.value)
		}
		if isNull {
			return col + " IS NULL", nil, false, nil
		}
		return col + " IS NOT NULL", nil, false, nil
	}

	op, ok := dialect.Operator(w.lookup)
	if !ok {
		return "", nil, false, errs.Newf(errs.ErrKindInvalidInput, "unsupported lookup %q on %s", w.lookup, w.column)
	}

	value := w.value
	if s, isText := value.(string); isText {
		switch w.lookup {
		case "contains":
			value = "%" + likeEscaper.Replace(s) + "%"
		case "endswith", "iendswith":
			value = "%" + likeEscaper.Replace(s)
		}
	}

	lhs := strings.Replace(dialect.LookupCast(w.lookup), "%s", col, 1)
	return lhs + " " + op, value, true, nil
}

// quoteIdent quotes an identifier the way the DDL created it and doubles
// any percent sign so it survives placeholder rewriting.
func quoteIdent(name string) string {
	return strings.ReplaceAll(dialect.QuoteName(name), "%", "%%")
}
