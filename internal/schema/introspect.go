package schema

import "context"

// ColumnInfo describes a column as the server stores it.
type ColumnInfo struct {
	Name       string  `json:"name"`
	DataType   string  `json:"data_type"` // server type, e.g. VARCHAR, NUMERIC, BLOB SUB_TYPE TEXT
	Nullable   bool    `json:"nullable"`
	PrimaryKey bool    `json:"primary_key"`
	Unique     bool    `json:"unique"`
	Default    *string `json:"default,omitempty"`
	Length     *int    `json:"length,omitempty"`
	Precision  *int    `json:"precision,omitempty"`
	Scale      int     `json:"scale,omitempty"`
}

// TableInfo describes a table and its columns in position order.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ForeignKey is one column of a foreign key constraint.
type ForeignKey struct {
	Name       string `json:"name"`
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// Info is the full introspected catalog.
type Info struct {
	Tables      []TableInfo  `json:"tables"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Generators  []string     `json:"generators"`
}

// Inspector reads table structure on top of the Catalog listings.
type Inspector interface {
	Catalog
	InspectTable(ctx context.Context, table string) (*TableInfo, error)
	ListForeignKeys(ctx context.Context) ([]ForeignKey, error)
}

// Inspect builds the full Info by walking every table.
func Inspect(ctx context.Context, i Inspector) (*Info, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	info := &Info{Tables: make([]TableInfo, 0, len(tables))}
	for _, table := range tables {
		ti, err := i.InspectTable(ctx, table)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, *ti)
	}

	if info.ForeignKeys, err = i.ListForeignKeys(ctx); err != nil {
		return nil, err
	}
	if info.Generators, err = i.ListGenerators(ctx); err != nil {
		return nil, err
	}
	return info, nil
}
