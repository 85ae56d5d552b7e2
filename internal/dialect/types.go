package dialect

import (
	"strconv"
	"strings"

	"github.com/davidelias/django-firebird/internal/schema"
)

// NotNullMarker marks where NOT NULL must go inside a column type. Firebird
// wants it ahead of an inline CHECK constraint rather than after it.
const NotNullMarker = "{not_null}"

// DataTypes maps field kinds to Firebird column types. Types may reference
// {max_length}, {max_digits}, {decimal_places} and {column} (quoted column
// name). An empty string means the kind has no column in its table.
var DataTypes = map[schema.FieldKind]string{
	schema.KindAuto:                  "integer",
	schema.KindBoolean:               "integer",
	schema.KindChar:                  "varchar({max_length})",
	schema.KindCommaSeparatedInteger: "varchar({max_length})",
	schema.KindDate:                  "date",
	schema.KindDateTime:              "timestamp",
	schema.KindDecimal:               "numeric({max_digits}, {decimal_places})",
	schema.KindFile:                  "varchar({max_length})",
	schema.KindFilePath:              "varchar({max_length})",
	schema.KindFloat:                 "double precision",
	schema.KindInteger:               "integer",
	schema.KindIPAddress:             "char(15)",
	schema.KindNullBoolean:           "integer",
	schema.KindOneToOne:              "integer",
	schema.KindForeignKey:            "integer",
	schema.KindPositiveInteger:       "integer " + NotNullMarker + " CHECK ({column} >= 0)",
	schema.KindPositiveSmallInteger:  "smallint " + NotNullMarker + " CHECK ({column} >= 0)",
	schema.KindSlug:                  "varchar({max_length})",
	schema.KindSmallInteger:          "smallint",
	schema.KindText:                  "blob sub_type 1",
	schema.KindTime:                  "time",
	schema.KindManyToMany:            "",
}

// ColumnType renders the column type for col. ok is false when the kind has
// no mapping at all.
func ColumnType(col *schema.Column) (string, bool) {
	tmpl, ok := DataTypes[col.Kind]
	if !ok {
		return "", false
	}
	r := strings.NewReplacer(
		"{max_length}", strconv.Itoa(col.MaxLength),
		"{max_digits}", strconv.Itoa(col.MaxDigits),
		"{decimal_places}", strconv.Itoa(col.DecimalPlaces),
		"{column}", QuoteName(col.Name),
	)
	return r.Replace(tmpl), true
}
