package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/davidelias/django-firebird/internal/errs"
)

// DateExtractSQL extracts a date part from field. Firebird spells the
// day-of-week part WEEKDAY.
func DateExtractSQL(lookup, field string) string {
	if lookup == "week_day" {
		lookup = "weekday"
	}
	return fmt.Sprintf("EXTRACT(%s FROM %s)", strings.ToUpper(lookup), field)
}

// DateTruncSQL truncates a date/timestamp field to year, month or day by
// rebuilding it from its extracted parts.
func DateTruncSQL(lookup, field string) (string, error) {
	var sql string
	switch lookup {
	case "year":
		sql = fmt.Sprintf("EXTRACT(year FROM %s)||'-01-01 00:00:00'", field)
	case "month":
		sql = fmt.Sprintf("EXTRACT(year FROM %[1]s)||'-'||EXTRACT(month FROM %[1]s)||'-01 00:00:00'", field)
	case "day":
		sql = fmt.Sprintf("EXTRACT(year FROM %[1]s)||'-'||EXTRACT(month FROM %[1]s)||'-'||EXTRACT(day FROM %[1]s)||' 00:00:00'", field)
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "cannot truncate date to %q", lookup)
	}
	return "CAST(" + sql + " AS TIMESTAMP)", nil
}

// LookupCast wraps the column side of case-insensitive lookups.
// icontains is left alone because CONTAINING already ignores case.
func LookupCast(lookup string) string {
	switch lookup {
	case "iexact", "istartswith", "iendswith":
		return "UPPER(%s)"
	}
	return "%s"
}

// FulltextSearchSQL matches a text column with CONTAINING.
func FulltextSearchSQL(field string) string {
	return "%s CONTAINING " + QuoteName(field)
}

// LastInsertIDSQL reads the current value of a table's generator.
func LastInsertIDSQL(table string) string {
	return fmt.Sprintf("SELECT GEN_ID(%s, 0) FROM rdb$database", GeneratorName(table))
}

// ReturnInsertIDSQL is appended to INSERT statements to fetch the new key.
func ReturnInsertIDSQL() string {
	return "RETURNING %s"
}

func SavepointCreateSQL(sid string) string   { return "SAVEPOINT " + QuoteName(sid) }
func SavepointRollbackSQL(sid string) string { return "ROLLBACK TO " + QuoteName(sid) }
func SavepointReleaseSQL(sid string) string  { return "RELEASE SAVEPOINT " + QuoteName(sid) }

// ParseVersion returns the numeric parts of the last whitespace-separated
// token of an engine version string, e.g. "WI-V6.3.5.4926 Firebird 1.5" -> [1 5].
func ParseVersion(engine string) ([]int, error) {
	fields := strings.Fields(engine)
	if len(fields) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "empty engine version")
	}
	parts := strings.Split(fields[len(fields)-1], ".")
	version := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("malformed engine version %q", engine), err)
		}
		version = append(version, n)
	}
	return version, nil
}
