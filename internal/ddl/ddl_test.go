package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/schema"
)

func orderItems() *schema.Table {
	return &schema.Table{
		Name: "order_items",
		Columns: []schema.Column{
			{Name: "id", Kind: schema.KindAuto, PrimaryKey: true},
			{Name: "order_id", Kind: schema.KindForeignKey, Index: true, References: &schema.Reference{Table: "orders", Column: "id"}},
			{Name: "sku", Kind: schema.KindChar, MaxLength: 32},
			{Name: "quantity", Kind: schema.KindPositiveInteger},
			{Name: "discount", Kind: schema.KindPositiveSmallInteger, Null: true},
			{Name: "price", Kind: schema.KindDecimal, MaxDigits: 18, DecimalPlaces: 4},
			{Name: "note", Kind: schema.KindText, Null: true},
			{Name: "tags", Kind: schema.KindManyToMany},
		},
		UniqueTogether: [][]string{{"order_id", "sku"}},
	}
}

func TestCreateTableStatements_AutoPrimaryKey(t *testing.T) {
	res, err := CreateTableStatements(orderItems(), map[string]bool{"orders": true})
	require.NoError(t, err)
	require.Len(t, res.Statements, 3)

	assert.True(t, strings.HasPrefix(res.Statements[0], `CREATE TABLE "ORDER_ITEMS" (`))
	assert.Equal(t, `CREATE GENERATOR "ORDER_ITEMS_GN"`, res.Statements[1])
	assert.True(t, strings.HasPrefix(res.Statements[2], `CREATE TRIGGER "ORDER_ITEMS_TR" FOR "ORDER_ITEMS"`))
	assert.Contains(t, res.Statements[2], `IF (NEW."ID" IS NULL) THEN`)
	assert.Contains(t, res.Statements[2], `NEW."ID" = GEN_ID("ORDER_ITEMS_GN", 1);`)
	assert.Empty(t, res.Pending)
}

func TestCreateTableStatements_Columns(t *testing.T) {
	res, err := CreateTableStatements(orderItems(), map[string]bool{"orders": true})
	require.NoError(t, err)

	want := `CREATE TABLE "ORDER_ITEMS" (
    "ID" integer NOT NULL PRIMARY KEY,
    "ORDER_ID" integer NOT NULL REFERENCES "ORDERS" ("ID"),
    "SKU" varchar(32) NOT NULL,
    "QUANTITY" integer NOT NULL CHECK ("QUANTITY" >= 0),
    "DISCOUNT" smallint CHECK ("DISCOUNT" >= 0),
    "PRICE" numeric(18, 4) NOT NULL,
    "NOTE" blob sub_type 1,
    UNIQUE ("ORDER_ID", "SKU")
)`
	assert.Equal(t, want, res.Statements[0])
}

func TestCreateTableStatements_PendingReference(t *testing.T) {
	res, err := CreateTableStatements(orderItems(), nil)
	require.NoError(t, err)

	assert.NotContains(t, res.Statements[0], "REFERENCES")
	require.Len(t, res.Pending["orders"], 1)
	assert.Equal(t, schema.PendingReference{
		Table: "order_items", Column: "order_id", RefTable: "orders", RefColumn: "id",
	}, res.Pending["orders"][0])

	stmts := PendingReferenceStatements("orders", res.Pending)
	require.Len(t, stmts, 1)
	assert.True(t, strings.HasPrefix(stmts[0], `ALTER TABLE "ORDER_ITEMS" ADD CONSTRAINT "`))
	assert.True(t, strings.HasSuffix(stmts[0], `FOREIGN KEY ("ORDER_ID") REFERENCES "ORDERS" ("ID")`))
	assert.NotContains(t, res.Pending, "orders")
}

func TestCreateTableStatements_SelfReference(t *testing.T) {
	tbl := &schema.Table{
		Name: "categories",
		Columns: []schema.Column{
			{Name: "id", Kind: schema.KindAuto, PrimaryKey: true},
			{Name: "parent_id", Kind: schema.KindForeignKey, Null: true, References: &schema.Reference{Table: "categories"}},
		},
	}
	res, err := CreateTableStatements(tbl, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Statements[0], `"PARENT_ID" integer REFERENCES "CATEGORIES" ("ID")`)
	assert.Empty(t, res.Pending)
}

func TestCreateTableStatements_NoAuto(t *testing.T) {
	tbl := &schema.Table{
		Name:               "settings",
		Columns:            []schema.Column{{Name: "key", Kind: schema.KindSlug, MaxLength: 50, PrimaryKey: true}, {Name: "enabled", Kind: schema.KindBoolean, Unique: true}},
		OrderWithRespectTo: true,
		Tablespace:         "fast",
	}
	res, err := CreateTableStatements(tbl, nil)
	require.NoError(t, err)
	require.Len(t, res.Statements, 1)
	assert.Contains(t, res.Statements[0], `"KEY" varchar(50) NOT NULL PRIMARY KEY`)
	assert.Contains(t, res.Statements[0], `"ENABLED" integer NOT NULL UNIQUE`)
	assert.Contains(t, res.Statements[0], `"_ORDER" integer`)
	assert.NotContains(t, res.Statements[0], "fast")
}

func TestCreateTableStatements_UnmappedKind(t *testing.T) {
	tbl := &schema.Table{
		Name:    "shapes",
		Columns: []schema.Column{{Name: "outline", Kind: "geometry"}},
	}
	_, err := CreateTableStatements(tbl, nil)
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.Contains(t, err.Error(), "shapes.outline")
	assert.Contains(t, err.Error(), "geometry")
}

func TestCreateTableStatements_Stable(t *testing.T) {
	first, err := CreateTableStatements(orderItems(), nil)
	require.NoError(t, err)
	second, err := CreateTableStatements(orderItems(), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Statements, second.Statements)
}

func TestAutoIncrementStatements_LongTable(t *testing.T) {
	stmts := AutoIncrementStatements("customer_loyalty_program_enrollments", "id")
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE GENERATOR "CUSTOMER_LOYALTY_PROGRAM8668_GN"`, stmts[0])
	assert.LessOrEqual(t, len(dialect.GeneratorName("customer_loyalty_program_enrollments")), dialect.MaxNameLength)
}

func TestDropTableStatements(t *testing.T) {
	refs := []schema.PendingReference{{Table: "shipments", Column: "item_id", RefTable: "order_items", RefColumn: "id"}}
	stmts := DropTableStatements(orderItems(), refs)
	require.Len(t, stmts, 4)
	assert.True(t, strings.HasPrefix(stmts[0], `ALTER TABLE "SHIPMENTS" DROP CONSTRAINT "`))
	assert.Equal(t, `DROP TRIGGER "ORDER_ITEMS_TR"`, stmts[1])
	assert.Equal(t, `DROP GENERATOR "ORDER_ITEMS_GN"`, stmts[2])
	assert.Equal(t, `DROP TABLE "ORDER_ITEMS"`, stmts[3])

	plain := DropTableStatements(&schema.Table{Name: "settings", Columns: []schema.Column{{Name: "k", Kind: schema.KindChar}}}, nil)
	assert.Equal(t, []string{`DROP TABLE "SETTINGS"`}, plain)
}

func TestConstraintName(t *testing.T) {
	ref := schema.PendingReference{Table: "order_items", Column: "order_id", RefTable: "orders", RefColumn: "id"}
	assert.Equal(t, ConstraintName(ref), ConstraintName(ref))
	assert.True(t, strings.HasPrefix(ConstraintName(ref), "order_id_refs_id_"))
	assert.LessOrEqual(t, len(dialect.QuoteName(ConstraintName(ref))), dialect.MaxNameLength+2)
}

func TestIndexStatements(t *testing.T) {
	stmts := IndexStatements(orderItems())
	require.Len(t, stmts, 1)
	assert.True(t, strings.HasPrefix(stmts[0], `CREATE INDEX "ORDER_ITEMS_`))
	assert.True(t, strings.HasSuffix(stmts[0], `ON "ORDER_ITEMS" ("ORDER_ID")`))
}

func TestScript(t *testing.T) {
	res, err := CreateTableStatements(orderItems(), map[string]bool{"orders": true})
	require.NoError(t, err)

	out := Script(res.Statements)
	assert.Contains(t, out, `CREATE GENERATOR "ORDER_ITEMS_GN";`)
	assert.Contains(t, out, "SET TERM ^ ;\nCREATE TRIGGER")
	assert.True(t, strings.HasSuffix(out, "END^\nSET TERM ; ^\n"))
}
