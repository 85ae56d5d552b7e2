package schema

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/lo"
	"go.yaml.in/yaml/v3"

	"github.com/davidelias/django-firebird/internal/errs"
)

// Catalog is the interface for reading which objects already exist on the
// server, so DDL for them can be skipped or references resolved inline.
type Catalog interface {
	// ListTables returns all user tables.
	ListTables(ctx context.Context) ([]string, error)

	// TableExists checks whether a table exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// ListGenerators returns all user generators.
	ListGenerators(ctx context.Context) ([]string, error)
}

// Document is the on-disk shape of a schema description file.
type Document struct {
	Tables []Table `yaml:"tables"`
}

// LoadFile reads and validates a YAML schema description.
func LoadFile(path string) ([]Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindSchema, fmt.Sprintf("read schema file %s", path), err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML schema description.
func Parse(data []byte) ([]Table, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindSchema, "decode schema", err)
	}
	for i := range doc.Tables {
		if err := Validate(&doc.Tables[i]); err != nil {
			return nil, err
		}
	}
	return doc.Tables, nil
}

// Validate checks the structural rules every table must satisfy before
// DDL can be synthesised for it.
func Validate(t *Table) error {
	if t.Name == "" {
		return errs.New(errs.ErrKindSchema, "table without a name")
	}
	if len(t.Columns) == 0 {
		return errs.Newf(errs.ErrKindSchema, "table %s has no columns", t.Name)
	}

	names := lo.Map(t.Columns, func(c Column, _ int) string { return c.Name })
	if lo.Contains(names, "") {
		return errs.Newf(errs.ErrKindSchema, "table %s has a column without a name", t.Name)
	}
	if dup := lo.FindDuplicates(names); len(dup) > 0 {
		return errs.Newf(errs.ErrKindSchema, "table %s declares column %s more than once", t.Name, dup[0])
	}

	autos := lo.Filter(t.Columns, func(c Column, _ int) bool { return c.IsAuto() })
	if len(autos) > 1 {
		return errs.Newf(errs.ErrKindSchema, "table %s has more than one auto column", t.Name)
	}
	if len(autos) == 1 && !autos[0].PrimaryKey {
		return errs.Newf(errs.ErrKindSchema, "auto column %s.%s must be the primary key", t.Name, autos[0].Name)
	}

	for _, group := range t.UniqueTogether {
		for _, name := range group {
			if _, ok := t.Column(name); !ok {
				return errs.Newf(errs.ErrKindSchema, "unique_together on %s names unknown column %s", t.Name, name)
			}
		}
	}
	return nil
}
