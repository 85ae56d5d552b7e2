package firebird

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/davidelias/django-firebird/internal/database"
	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/schema"
)

const (
	listTablesQuery = `SELECT TRIM(RDB$RELATION_NAME)
FROM RDB$RELATIONS
WHERE COALESCE(RDB$SYSTEM_FLAG, 0) = 0
  AND RDB$VIEW_BLR IS NULL
ORDER BY RDB$RELATION_NAME`

	tableExistsQuery = `SELECT 1
FROM RDB$RELATIONS
WHERE COALESCE(RDB$SYSTEM_FLAG, 0) = 0
  AND RDB$VIEW_BLR IS NULL
  AND RDB$RELATION_NAME = %s`

	listGeneratorsQuery = `SELECT TRIM(RDB$GENERATOR_NAME)
FROM RDB$GENERATORS
WHERE COALESCE(RDB$SYSTEM_FLAG, 0) = 0
ORDER BY RDB$GENERATOR_NAME`

	inspectTableQuery = `SELECT TRIM(rf.RDB$FIELD_NAME),
       f.RDB$FIELD_TYPE,
       f.RDB$FIELD_SUB_TYPE,
       COALESCE(rf.RDB$NULL_FLAG, f.RDB$NULL_FLAG, 0),
       CAST(COALESCE(rf.RDB$DEFAULT_SOURCE, f.RDB$DEFAULT_SOURCE) AS VARCHAR(255)),
       f.RDB$CHARACTER_LENGTH,
       f.RDB$FIELD_PRECISION,
       f.RDB$FIELD_SCALE,
       (SELECT CAST(LIST(TRIM(rc.RDB$CONSTRAINT_TYPE)) AS VARCHAR(64))
          FROM RDB$RELATION_CONSTRAINTS rc
          JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = rc.RDB$INDEX_NAME
         WHERE rc.RDB$RELATION_NAME = rf.RDB$RELATION_NAME
           AND s.RDB$FIELD_NAME = rf.RDB$FIELD_NAME
           AND rc.RDB$CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE'))
FROM RDB$RELATION_FIELDS rf
JOIN RDB$FIELDS f ON f.RDB$FIELD_NAME = rf.RDB$FIELD_SOURCE
WHERE rf.RDB$RELATION_NAME = %s
ORDER BY rf.RDB$FIELD_POSITION`

	listForeignKeysQuery = `SELECT TRIM(rc.RDB$CONSTRAINT_NAME),
       TRIM(rc.RDB$RELATION_NAME),
       TRIM(s.RDB$FIELD_NAME),
       TRIM(pk.RDB$RELATION_NAME),
       TRIM(ps.RDB$FIELD_NAME)
FROM RDB$RELATION_CONSTRAINTS rc
JOIN RDB$REF_CONSTRAINTS ref ON ref.RDB$CONSTRAINT_NAME = rc.RDB$CONSTRAINT_NAME
JOIN RDB$RELATION_CONSTRAINTS pk ON pk.RDB$CONSTRAINT_NAME = ref.RDB$CONST_NAME_UQ
JOIN RDB$INDEX_SEGMENTS s ON s.RDB$INDEX_NAME = rc.RDB$INDEX_NAME
JOIN RDB$INDEX_SEGMENTS ps ON ps.RDB$INDEX_NAME = pk.RDB$INDEX_NAME
 AND ps.RDB$FIELD_POSITION = s.RDB$FIELD_POSITION
WHERE rc.RDB$CONSTRAINT_TYPE = 'FOREIGN KEY'
ORDER BY rc.RDB$CONSTRAINT_NAME, s.RDB$FIELD_POSITION`
)

// fieldTypes maps RDB$FIELDS.RDB$FIELD_TYPE codes to type names.
var fieldTypes = map[int64]string{
	7:   "SMALLINT",
	8:   "INTEGER",
	10:  "FLOAT",
	12:  "DATE",
	13:  "TIME",
	14:  "CHAR",
	16:  "BIGINT",
	23:  "BOOLEAN",
	27:  "DOUBLE PRECISION",
	35:  "TIMESTAMP",
	37:  "VARCHAR",
	261: "BLOB",
}

var _ schema.Inspector = (*Conn)(nil)

// ListTables returns the user tables, views excluded.
func (c *Conn) ListTables(ctx context.Context) ([]string, error) {
	return c.names(ctx, listTablesQuery)
}

// ListGenerators returns the user generators.
func (c *Conn) ListGenerators(ctx context.Context) ([]string, error) {
	return c.names(ctx, listGeneratorsQuery)
}

// TableExists reports whether table exists, matching it the way QuoteName
// stores it.
func (c *Conn) TableExists(ctx context.Context, table string) (bool, error) {
	cur, err := c.Cursor(ctx)
	if err != nil {
		return false, err
	}
	var one int
	err = cur.QueryRow(ctx, tableExistsQuery, storedName(table)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InspectTable reads the columns of table in position order.
func (c *Conn) InspectTable(ctx context.Context, table string) (*schema.TableInfo, error) {
	cur, err := c.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := cur.Query(ctx, inspectTableQuery, storedName(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := &schema.TableInfo{Name: storedName(table)}
	for rows.Next() {
		var (
			name        string
			code        int64
			subType     *int64
			notNull     int64
			def         *string
			length      *int64
			precision   *int64
			scale       *int64
			constraints *string
		)
		if err := rows.Scan(&name, &code, &subType, &notNull, &def, &length, &precision, &scale, &constraints); err != nil {
			return nil, err
		}

		col := schema.ColumnInfo{
			Name:     strings.TrimSpace(name),
			DataType: fieldTypeName(code, deref(subType), deref(scale)),
			Nullable: notNull == 0,
		}
		if def != nil {
			d := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(*def), "DEFAULT"))
			col.Default = &d
		}
		if length != nil {
			n := int(*length)
			col.Length = &n
		}
		if precision != nil && *precision > 0 {
			p := int(*precision)
			col.Precision = &p
		}
		if s := deref(scale); s < 0 {
			col.Scale = int(-s)
		}
		if constraints != nil {
			col.PrimaryKey = strings.Contains(*constraints, "PRIMARY KEY")
			col.Unique = strings.Contains(*constraints, "UNIQUE")
		}
		info.Columns = append(info.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(info.Columns) == 0 {
		return nil, errs.Newf(errs.ErrKindSchema, "table %s not found or has no columns", table)
	}
	return info, nil
}

// ListForeignKeys returns every foreign key column pair, ordered by
// constraint name.
func (c *Conn) ListForeignKeys(ctx context.Context) ([]schema.ForeignKey, error) {
	cur, err := c.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := cur.Query(ctx, listForeignKeysQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make([]schema.ForeignKey, 0)
	for rows.Next() {
		var fk schema.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.FromTable, &fk.FromColumn, &fk.ToTable, &fk.ToColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// fieldTypeName names a stored type. Integer storage with a NUMERIC or
// DECIMAL subtype, or a non-zero scale, is reported as fixed point.
func fieldTypeName(code, subType, scale int64) string {
	name, ok := fieldTypes[code]
	if !ok {
		return fmt.Sprintf("UNKNOWN(%d)", code)
	}
	switch code {
	case 7, 8, 16:
		switch {
		case subType == 2:
			return "DECIMAL"
		case subType == 1 || scale != 0:
			return "NUMERIC"
		}
	case 261:
		if subType == 1 {
			return "BLOB SUB_TYPE TEXT"
		}
	}
	return name
}

// storedName is table as the catalog stores it after QuoteName.
func storedName(table string) string {
	return strings.Trim(dialect.QuoteName(table), `"`)
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func (c *Conn) names(ctx context.Context, query string) ([]string, error) {
	cur, err := c.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := cur.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return database.ScanNames(rows)
}
