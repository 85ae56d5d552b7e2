package dialect

import (
	"strings"

	"github.com/davidelias/django-firebird/internal/errs"
)

// Rewrite converts format-style SQL into qmark style for the wire driver.
//
// Every `%s` becomes `?`; `%%` collapses to a single `%`, so `%%s` survives as
// a literal `%s`. Any other use of `%` is rejected, as is a placeholder
// count that differs from params. The result is not meant to be rewritten
// again.
func Rewrite(query string, params int) (string, error) {
	var (
		sb    strings.Builder
		found int
	)
	sb.Grow(len(query))

	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+1 >= len(query) {
			return "", formatError(query, params, "incomplete placeholder at end of query")
		}
		i++
		switch query[i] {
		case '%':
			sb.WriteByte('%')
		case 's':
			found++
			sb.WriteString(NativePlaceholder)
		default:
			return "", formatError(query, params, "unsupported placeholder %"+string(query[i]))
		}
	}

	switch {
	case found > params:
		return "", formatError(query, params, "not enough parameters for query placeholders")
	case found < params:
		return "", formatError(query, params, "not all parameters were used by the query")
	}
	return sb.String(), nil
}

// CountPlaceholders reports how many genuine placeholders query holds.
func CountPlaceholders(query string) int {
	n := 0
	for i := 0; i+1 < len(query); i++ {
		if query[i] != '%' {
			continue
		}
		if query[i+1] == 's' {
			n++
		}
		i++
	}
	return n
}

func formatError(query string, params int, msg string) error {
	return errs.Newf(errs.ErrKindFormat, "%s (%d parameters supplied)", msg, params).WithQuery(query, nil)
}
