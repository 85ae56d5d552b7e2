package ddl

import (
	"slices"

	"github.com/samber/lo"

	"github.com/davidelias/django-firebird/internal/schema"
)

// Plan is the full creation sequence for a set of tables.
type Plan struct {
	Statements []string

	// Deferred are the foreign keys emitted as ALTER TABLE after their
	// referenced table appeared later in the set.
	Deferred []schema.PendingReference

	// Unresolved are foreign keys whose referenced table is neither in the
	// set nor in existing.
	Unresolved []schema.PendingReference
}

// CreateAll plans tables in declaration order. existing names tables already
// on the server, which are referenced inline. Each table's indexes follow its
// CREATE statements, and deferred foreign keys follow the table they point at.
func CreateAll(tables []schema.Table, existing map[string]bool) (*Plan, error) {
	known := make(map[string]bool, len(existing)+len(tables))
	for name := range existing {
		known[name] = true
	}

	plan := &Plan{}
	pending := map[string][]schema.PendingReference{}
	for i := range tables {
		t := &tables[i]
		res, err := CreateTableStatements(t, known)
		if err != nil {
			return nil, err
		}
		known[t.Name] = true
		plan.Statements = append(plan.Statements, res.Statements...)
		plan.Statements = append(plan.Statements, IndexStatements(t)...)

		for ref, refs := range res.Pending {
			pending[ref] = append(pending[ref], refs...)
		}
		plan.Deferred = append(plan.Deferred, pending[t.Name]...)
		plan.Statements = append(plan.Statements, PendingReferenceStatements(t.Name, pending)...)
	}

	names := lo.Keys(pending)
	slices.Sort(names)
	for _, name := range names {
		plan.Unresolved = append(plan.Unresolved, pending[name]...)
	}
	return plan, nil
}

// DropAll drops tables in reverse declaration order. Deferred foreign keys
// pointing at a table are removed before it.
func DropAll(tables []schema.Table) ([]string, error) {
	plan, err := CreateAll(tables, nil)
	if err != nil {
		return nil, err
	}

	var stmts []string
	for i := len(tables) - 1; i >= 0; i-- {
		t := &tables[i]
		refs := lo.Filter(plan.Deferred, func(r schema.PendingReference, _ int) bool {
			return r.RefTable == t.Name
		})
		stmts = append(stmts, DropTableStatements(t, refs)...)
	}
	return stmts, nil
}
