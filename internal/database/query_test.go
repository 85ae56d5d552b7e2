package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidelias/django-firebird/internal/dialect"
	"github.com/davidelias/django-firebird/internal/errs"
)

func TestSelectBuilder(t *testing.T) {
	tests := []struct {
		name     string
		builder  *SelectBuilder
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "star",
			builder: Select("orders"),
			wantSQL: `SELECT * FROM "ORDERS"`,
		},
		{
			name: "exact and order",
			builder: Select("orders").Columns("id", "total").
				Where("status", "exact", "paid").
				OrderBy("placed_at", Desc).OrderBy("id", Asc),
			wantSQL:  `SELECT "ID", "TOTAL" FROM "ORDERS" WHERE "STATUS" = %s ORDER BY "PLACED_AT" DESC, "ID" ASC`,
			wantArgs: []any{"paid"},
		},
		{
			name:     "iexact casts both sides",
			builder:  Select("customers").Where("email", "iexact", "A@B.C"),
			wantSQL:  `SELECT * FROM "CUSTOMERS" WHERE UPPER("EMAIL") = UPPER(%s)`,
			wantArgs: []any{"A@B.C"},
		},
		{
			name:     "contains escapes wildcards",
			builder:  Select("items").Where("sku", "contains", "10%_off"),
			wantSQL:  `SELECT * FROM "ITEMS" WHERE "SKU" LIKE %s ESCAPE'\'`,
			wantArgs: []any{`%10\%\_off%`},
		},
		{
			name:     "icontains uses CONTAINING",
			builder:  Select("items").Where("name", "icontains", "bolt"),
			wantSQL:  `SELECT * FROM "ITEMS" WHERE "NAME" CONTAINING %s`,
			wantArgs: []any{"bolt"},
		},
		{
			name:     "startswith",
			builder:  Select("items").Where("name", "startswith", "M"),
			wantSQL:  `SELECT * FROM "ITEMS" WHERE "NAME" STARTING WITH %s`,
			wantArgs: []any{"M"},
		},
		{
			name:     "iendswith",
			builder:  Select("items").Where("name", "iendswith", "x"),
			wantSQL:  `SELECT * FROM "ITEMS" WHERE UPPER("NAME") LIKE UPPER(%s) ESCAPE'\'`,
			wantArgs: []any{"%x"},
		},
		{
			name:    "isnull",
			builder: Select("items").Where("note", "isnull", true).Where("sku", "isnull", false),
			wantSQL: `SELECT * FROM "ITEMS" WHERE "NOTE" IS NULL AND "SKU" IS NOT NULL`,
		},
		{
			name:     "limit only",
			builder:  Select("items").Where("qty", "gte", 2).Limit(10),
			wantSQL:  `SELECT * FROM "ITEMS" WHERE "QTY" >= %s ROWS %s`,
			wantArgs: []any{2, int64(10)},
		},
		{
			name:     "limit and offset",
			builder:  Select("items").Limit(20).Offset(40),
			wantSQL:  `SELECT * FROM "ITEMS" ROWS %s TO %s`,
			wantArgs: []any{int64(41), int64(60)},
		},
		{
			name:     "offset only",
			builder:  Select("items").Offset(5),
			wantSQL:  `SELECT * FROM "ITEMS" ROWS %s TO %s`,
			wantArgs: []any{int64(6), maxRow},
		},
		{
			name:    "percent in identifier",
			builder: Select("rates").Columns("pct%"),
			wantSQL: `SELECT "PCT%%" FROM "RATES"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)

			// output is always valid rewriter input
			_, err = dialect.Rewrite(sql, len(args))
			assert.NoError(t, err)
		})
	}
}

func TestSelectBuilder_Errors(t *testing.T) {
	_, _, err := Select("t").Where("a", "regex", "x").Build()
	assert.True(t, errs.IsInvalidInput(err))

	_, _, err = Select("t").Where("a", "isnull", "yes").Build()
	assert.True(t, errs.IsInvalidInput(err))

	_, _, err = Select("t").Limit(-1).Build()
	assert.True(t, errs.IsInvalidInput(err))
}
