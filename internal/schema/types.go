package schema

// FieldKind is the semantic kind of a column as the ORM sees it.
type FieldKind string

const (
	KindAuto                  FieldKind = "auto"
	KindBoolean               FieldKind = "boolean"
	KindChar                  FieldKind = "char"
	KindCommaSeparatedInteger FieldKind = "comma_separated_integer"
	KindDate                  FieldKind = "date"
	KindDateTime              FieldKind = "datetime"
	KindDecimal               FieldKind = "decimal"
	KindFile                  FieldKind = "file"
	KindFilePath              FieldKind = "file_path"
	KindFloat                 FieldKind = "float"
	KindInteger               FieldKind = "integer"
	KindIPAddress             FieldKind = "ip_address"
	KindNullBoolean           FieldKind = "null_boolean"
	KindOneToOne              FieldKind = "one_to_one"
	KindForeignKey            FieldKind = "foreign_key"
	KindPositiveInteger       FieldKind = "positive_integer"
	KindPositiveSmallInteger  FieldKind = "positive_small_integer"
	KindSlug                  FieldKind = "slug"
	KindSmallInteger          FieldKind = "small_integer"
	KindText                  FieldKind = "text"
	KindTime                  FieldKind = "time"

	// KindManyToMany lives in a join table and has no column of its own.
	KindManyToMany FieldKind = "many_to_many"
)

// Reference points a column at another table's column.
type Reference struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// Column describes one column of a table.
type Column struct {
	Name          string     `yaml:"name"`
	Kind          FieldKind  `yaml:"kind"`
	Null          bool       `yaml:"null"`
	PrimaryKey    bool       `yaml:"primary_key"`
	Unique        bool       `yaml:"unique"`
	Index         bool       `yaml:"index"`
	MaxLength     int        `yaml:"max_length"`
	MaxDigits     int        `yaml:"max_digits"`
	DecimalPlaces int        `yaml:"decimal_places"`
	Tablespace    string     `yaml:"tablespace"`
	References    *Reference `yaml:"references"`
}

// IsAuto reports whether the column is fed by a generator.
func (c *Column) IsAuto() bool {
	return c.Kind == KindAuto
}

// Table is the description of one table, supplied per call and never persisted.
type Table struct {
	Name           string     `yaml:"name"`
	Columns        []Column   `yaml:"columns"`
	UniqueTogether [][]string `yaml:"unique_together"`
	Tablespace     string     `yaml:"tablespace"`

	// OrderWithRespectTo adds the integer `_order` column.
	OrderWithRespectTo bool `yaml:"order_with_respect_to"`
}

// AutoColumn returns the auto-increment column, if any.
func (t *Table) AutoColumn() (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].IsAuto() {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// PendingReference is a foreign key that could not be written inline because
// the referenced table was not yet known. It is resolved by the caller once
// every table has been declared.
type PendingReference struct {
	Table     string `json:"table"` // table holding the foreign key column
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}
