// Package dialect holds the static Firebird SQL rules: identifier limits and
// quoting, lookup operators, auxiliary object naming, and the placeholder
// rewriter that turns format-style SQL into the driver's qmark style.
package dialect

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const (
	// MaxNameLength is the longest identifier Firebird accepts.
	MaxNameLength = 31

	// Placeholder marks one parameter in the SQL handed to the cursor.
	Placeholder = "%s"

	// NativePlaceholder is what the wire driver expects in its place.
	NativePlaceholder = "?"

	generatorSuffix = "_GN"
	triggerSuffix   = "_TR"
	hashLen         = 4
)

// Operators maps lookup names to the SQL fragment placed after the column.
// Each fragment carries exactly one placeholder.
var Operators = map[string]string{
	"exact":       "= %s",
	"iexact":      "= UPPER(%s)",
	"contains":    `LIKE %s ESCAPE'\'`,
	"icontains":   "CONTAINING %s", // case is ignored by CONTAINING
	"gt":          "> %s",
	"gte":         ">= %s",
	"lt":          "< %s",
	"lte":         "<= %s",
	"startswith":  "STARTING WITH %s",
	"endswith":    `LIKE %s ESCAPE'\'`,
	"istartswith": "STARTING WITH UPPER(%s)",
	"iendswith":   `LIKE UPPER(%s) ESCAPE'\'`,
}

// Operator returns the fragment for a lookup name.
func Operator(lookup string) (string, bool) {
	op, ok := Operators[lookup]
	return op, ok
}

// TruncateName shortens name to length, replacing the tail with a short
// md5 digest so that distinct long names stay distinct.
func TruncateName(name string, length int) string {
	if length <= 0 || len(name) <= length {
		return name
	}
	sum := md5.Sum([]byte(name))
	digest := hex.EncodeToString(sum[:])[:hashLen]
	return name[:length-hashLen] + digest
}

// QuoteName upper-cases an identifier and wraps it in double quotes,
// truncating it to MaxNameLength first. Already-quoted names are only
// upper-cased.
func QuoteName(name string) string {
	if !strings.HasPrefix(name, `"`) && !strings.HasSuffix(name, `"`) {
		name = `"` + TruncateName(name, MaxNameLength) + `"`
	}
	return strings.ToUpper(name)
}

// GeneratorName is the unquoted name of the generator backing a table's
// auto-increment column.
func GeneratorName(table string) string {
	return strings.ToUpper(TruncateName(table, MaxNameLength-len(generatorSuffix))) + generatorSuffix
}

// TriggerName is the unquoted name of the BEFORE INSERT trigger that feeds
// the generator into a table's auto-increment column.
func TriggerName(table string) string {
	return strings.ToUpper(TruncateName(table, MaxNameLength-len(triggerSuffix))) + triggerSuffix
}
