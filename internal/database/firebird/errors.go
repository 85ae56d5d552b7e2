package firebird

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/davidelias/django-firebird/internal/errs"
)

// Firebird SQLCODE for unique key violations.
const sqlCodeIntegrity = -803

// uniqueViolations are the server texts firebirdsql passes through verbatim,
// without a SQLCODE, for unique key violations.
var uniqueViolations = []string{
	"violation of PRIMARY or UNIQUE KEY constraint", // isc_unique_key_violation, 335544665
	"attempt to store duplicate value",              // isc_no_dup, 335544349
}

// sqlCoder is implemented by driver errors that carry the SQLCODE as a field.
type sqlCoder interface {
	SQLCode() int
}

// mapError translates a driver error into *errs.Error, keeping the
// dispatched statement and its parameters for diagnosis.
func mapError(err error, query string, params []any) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "statement interrupted", err).WithQuery(query, params)
	}

	code, msg := classify(err)
	kind := errs.ErrKindDatabase
	if code == sqlCodeIntegrity {
		kind = errs.ErrKindIntegrity
	}
	return errs.Wrap(kind, msg, err).WithCode(code).WithQuery(query, params)
}

// classify extracts the SQLCODE and a readable message. A structured code
// wins; otherwise the code is the leading numeric token of the message,
// e.g. "(-803, 'isc_dsql_execute: \n violation of ...')". Plain server
// texts of a unique violation get -803; anything else without a code gets 0.
func classify(err error) (int, string) {
	text := err.Error()

	var coder sqlCoder
	if errors.As(err, &coder) {
		return coder.SQLCode(), readable(text)
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, "empty driver error"
	}
	code, convErr := strconv.Atoi(strings.Trim(fields[0], ",()"))
	if convErr != nil {
		if isUniqueViolation(text) {
			return sqlCodeIntegrity, readable(text)
		}
		return 0, readable(text)
	}
	return code, readable(strings.TrimSpace(strings.TrimPrefix(text, fields[0])))
}

func isUniqueViolation(text string) bool {
	for _, v := range uniqueViolations {
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}

// readable takes the quoted part of a driver message when there is one and
// flattens its escaped and real line breaks.
func readable(text string) string {
	if first, last := strings.Index(text, "'"), strings.LastIndex(text, "'"); first >= 0 && last > first {
		text = text[first+1 : last]
	}
	text = strings.ReplaceAll(text, `\n`, "\n")
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' })
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return "driver error"
	}
	return strings.Join(out, "; ")
}
