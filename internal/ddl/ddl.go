// Package ddl synthesises Firebird DDL from schema descriptions.
//
// Firebird has no auto-increment column type, so an auto primary key expands
// into three statements: the table, a generator, and a BEFORE INSERT trigger
// that draws from the generator when the incoming key is NULL. Dropping runs
// the same chain backwards.
//
// Every function here is pure: foreign keys to tables that are not yet known
// are returned as data for the caller to resolve once all tables exist.
package ddl

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/schema"
)

const orderColumn = "_order"

// Result holds the ordered statements for one table and the foreign keys that
// still need their referenced table, keyed by that table's name.
type Result struct {
	Statements []string
	Pending    map[string][]schema.PendingReference
}

// CreateTableStatements returns CREATE TABLE followed, for tables with an auto
// primary key, by CREATE GENERATOR and CREATE TRIGGER. known holds the names
// of tables already declared; references to any other table are deferred.
// Firebird has no tablespaces, so Tablespace settings are accepted and ignored.
func CreateTableStatements(t *schema.Table, known map[string]bool) (*Result, error) {
	res := &Result{Pending: map[string][]schema.PendingReference{}}

	var lines []string
	for i := range t.Columns {
		col := &t.Columns[i]
		def, skip, err := columnDefinition(t.Name, col)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}

		if ref := col.References; ref != nil {
			if known[ref.Table] || ref.Table == t.Name {
				def += fmt.Sprintf(" REFERENCES %s (%s)", dialect.QuoteName(ref.Table), dialect.QuoteName(refColumn(ref)))
			} else {
				res.Pending[ref.Table] = append(res.Pending[ref.Table], schema.PendingReference{
					Table:     t.Name,
					Column:    col.Name,
					RefTable:  ref.Table,
					RefColumn: refColumn(ref),
				})
			}
		}
		lines = append(lines, def)
	}

	if t.OrderWithRespectTo {
		lines = append(lines, dialect.QuoteName(orderColumn)+" "+dialect.DataTypes[schema.KindInteger])
	}

	for _, group := range t.UniqueTogether {
		cols := lo.Map(group, func(c string, _ int) string { return dialect.QuoteName(c) })
		lines = append(lines, "UNIQUE ("+strings.Join(cols, ", ")+")")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE " + dialect.QuoteName(t.Name) + " (\n")
	for i, line := range lines {
		sb.WriteString("    " + line)
		if i < len(lines)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	res.Statements = append(res.Statements, sb.String())

	if auto, ok := t.AutoColumn(); ok {
		res.Statements = append(res.Statements, AutoIncrementStatements(t.Name, auto.Name)...)
	}
	return res, nil
}

// AutoIncrementStatements emulates an auto-increment column with a generator
// and a trigger. The generator statement comes first.
func AutoIncrementStatements(table, column string) []string {
	gen := dialect.QuoteName(dialect.GeneratorName(table))
	trg := dialect.QuoteName(dialect.TriggerName(table))
	tbl := dialect.QuoteName(table)
	col := dialect.QuoteName(column)

	generator := "CREATE GENERATOR " + gen
	trigger := fmt.Sprintf(`CREATE TRIGGER %s FOR %s
BEFORE INSERT
AS
BEGIN
   IF (NEW.%s IS NULL) THEN
       NEW.%s = GEN_ID(%s, 1);
END`, trg, tbl, col, col, gen)
	return []string{generator, trigger}
}

// DropTableStatements reverses CreateTableStatements. Foreign keys in other
// tables that point at t are dropped first, then the trigger and generator,
// and the table last.
func DropTableStatements(t *schema.Table, referencedBy []schema.PendingReference) []string {
	var stmts []string
	for _, ref := range referencedBy {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			dialect.QuoteName(ref.Table), dialect.QuoteName(ConstraintName(ref))))
	}
	if _, ok := t.AutoColumn(); ok {
		stmts = append(stmts,
			"DROP TRIGGER "+dialect.QuoteName(dialect.TriggerName(t.Name)),
			"DROP GENERATOR "+dialect.QuoteName(dialect.GeneratorName(t.Name)),
		)
	}
	return append(stmts, "DROP TABLE "+dialect.QuoteName(t.Name))
}

// PendingReferenceStatements adds the deferred foreign keys that point at
// refTable, once refTable has been created.
func PendingReferenceStatements(refTable string, pending map[string][]schema.PendingReference) []string {
	refs := pending[refTable]
	stmts := make([]string, 0, len(refs))
	for _, ref := range refs {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			dialect.QuoteName(ref.Table),
			dialect.QuoteName(ConstraintName(ref)),
			dialect.QuoteName(ref.Column),
			dialect.QuoteName(ref.RefTable),
			dialect.QuoteName(ref.RefColumn),
		))
	}
	delete(pending, refTable)
	return stmts
}

// ConstraintName derives a stable name for a deferred foreign key.
func ConstraintName(ref schema.PendingReference) string {
	return fmt.Sprintf("%s_refs_%s_%s", ref.Column, ref.RefColumn, digest(ref.Table, ref.RefTable))
}

// IndexStatements creates indexes for indexed columns that are not already
// covered by a primary key or unique constraint.
func IndexStatements(t *schema.Table) []string {
	var stmts []string
	for _, col := range t.Columns {
		if !col.Index || col.Unique || col.PrimaryKey || col.Kind == schema.KindManyToMany {
			continue
		}
		name := dialect.TruncateName(t.Name+"_"+digest(col.Name), dialect.MaxNameLength)
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			dialect.QuoteName(name), dialect.QuoteName(t.Name), dialect.QuoteName(col.Name)))
	}
	return stmts
}

// Script joins statements for isql. Statements with a PSQL body are wrapped in
// SET TERM so their inner semicolons survive.
func Script(stmts []string) string {
	var sb strings.Builder
	for _, s := range stmts {
		if strings.Contains(s, "\nBEGIN\n") {
			sb.WriteString("SET TERM ^ ;\n" + s + "^\nSET TERM ; ^\n\n")
			continue
		}
		sb.WriteString(s + ";\n\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// columnDefinition renders `name type [NOT NULL] [PRIMARY KEY | UNIQUE]`.
// skip is true for kinds that have no column in this table.
func columnDefinition(table string, col *schema.Column) (def string, skip bool, err error) {
	colType, ok := dialect.ColumnType(col)
	if !ok {
		return "", false, errs.Newf(errs.ErrKindSchema, "column %s.%s: no Firebird type for kind %q", table, col.Name, col.Kind)
	}
	if colType == "" {
		return "", true, nil
	}

	parts := []string{dialect.QuoteName(col.Name)}
	switch {
	case col.Null:
		colType = strings.ReplaceAll(colType, dialect.NotNullMarker+" ", "")
		parts = append(parts, strings.ReplaceAll(colType, dialect.NotNullMarker, ""))
	case strings.Contains(colType, dialect.NotNullMarker):
		parts = append(parts, strings.ReplaceAll(colType, dialect.NotNullMarker, "NOT NULL"))
	default:
		parts = append(parts, colType, "NOT NULL")
	}

	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " "), false, nil
}

func refColumn(ref *schema.Reference) string {
	if ref.Column == "" {
		return "id"
	}
	return ref.Column
}

func digest(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])[:8]
}
