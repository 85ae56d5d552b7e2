package dialect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidelias/django-firebird/internal/errs"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params int
		want   string
	}{
		{"no placeholders", "SELECT 1 FROM rdb$database", 0, "SELECT 1 FROM rdb$database"},
		{"one placeholder with literal", "SELECT * FROM t WHERE x = %s AND y = %%s", 1, "SELECT * FROM t WHERE x = ? AND y = %s"},
		{"several", "INSERT INTO t (a, b, c) VALUES (%s, %s, %s)", 3, "INSERT INTO t (a, b, c) VALUES (?, ?, ?)"},
		{"escaped percent in like", "SELECT * FROM t WHERE n LIKE '%%abc%%' AND id = %s", 1, "SELECT * FROM t WHERE n LIKE '%abc%' AND id = ?"},
		{"adjacent", "%s%s", 2, "??"},
		{"literal only", "SELECT '%%s' FROM rdb$database", 0, "SELECT '%s' FROM rdb$database"},
		{"question marks untouched", "SELECT '?' FROM t WHERE a = %s", 1, "SELECT '?' FROM t WHERE a = ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rewrite(tt.query, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewrite_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params int
	}{
		{"too few params", "SELECT * FROM t WHERE a = %s AND b = %s", 1},
		{"too many params", "SELECT * FROM t WHERE a = %s", 2},
		{"literal is not a placeholder", "SELECT * FROM t WHERE a = %%s", 1},
		{"unsupported verb", "SELECT * FROM t WHERE a = %d", 1},
		{"dangling percent", "SELECT 100%", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rewrite(tt.query, tt.params)
			require.Error(t, err)
			assert.True(t, errs.IsFormat(err))
		})
	}
}

func TestRewrite_PlaceholderProperty(t *testing.T) {
	// n genuine placeholders, k escaped literals, interleaved with filler.
	for n := 0; n < 5; n++ {
		for k := 0; k < 4; k++ {
			var sb strings.Builder
			sb.WriteString("SELECT * FROM t WHERE 1 = 1")
			for i := 0; i < n || i < k; i++ {
				if i < n {
					sb.WriteString(" AND a = %s")
				}
				if i < k {
					sb.WriteString(" AND b = '%%s'")
				}
			}
			query := sb.String()

			got, err := Rewrite(query, n)
			require.NoError(t, err)
			assert.Equal(t, n, strings.Count(got, "?"))
			assert.Equal(t, k, strings.Count(got, "%s"))
			assert.Equal(t, n, CountPlaceholders(query))

			_, err = Rewrite(query, n+1)
			assert.True(t, errs.IsFormat(err))
			if n > 0 {
				_, err = Rewrite(query, n-1)
				assert.True(t, errs.IsFormat(err))
			}
		}
	}
}

func TestQuoteName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"order_items", `"ORDER_ITEMS"`},
		{`"already"`, `"ALREADY"`},
		{"customer_loyalty_program_enrollments", `"CUSTOMER_LOYALTY_PROGRAM_EN8668"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := QuoteName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(strings.Trim(got, `"`)), MaxNameLength)
		})
	}
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short", TruncateName("short", MaxNameLength))
	assert.Equal(t, "customer_loyalty_program_en8668", TruncateName("customer_loyalty_program_enrollments", MaxNameLength))
	assert.NotEqual(t,
		TruncateName("customer_loyalty_program_enrollments", 28),
		TruncateName("customer_loyalty_program_enrollmentz", 28))
}

func TestGeneratorAndTriggerNames(t *testing.T) {
	assert.Equal(t, "ORDER_ITEMS_GN", GeneratorName("order_items"))
	assert.Equal(t, "ORDER_ITEMS_TR", TriggerName("order_items"))

	long := "customer_loyalty_program_enrollments"
	assert.Equal(t, "CUSTOMER_LOYALTY_PROGRAM8668_GN", GeneratorName(long))
	assert.Equal(t, "CUSTOMER_LOYALTY_PROGRAM8668_TR", TriggerName(long))

	// Stable across calls and never over the limit.
	for _, table := range []string{"t", "order_items", long, strings.Repeat("x", 100)} {
		assert.Equal(t, GeneratorName(table), GeneratorName(table))
		assert.Equal(t, TriggerName(table), TriggerName(table))
		assert.LessOrEqual(t, len(GeneratorName(table)), MaxNameLength)
		assert.LessOrEqual(t, len(TriggerName(table)), MaxNameLength)
		assert.NotEqual(t, GeneratorName(table), TriggerName(table))
	}
}

func TestOperators(t *testing.T) {
	for lookup, frag := range Operators {
		assert.Equal(t, 1, CountPlaceholders(frag), lookup)
	}
	op, ok := Operator("icontains")
	assert.True(t, ok)
	assert.Equal(t, "CONTAINING %s", op)

	_, ok = Operator("regex")
	assert.False(t, ok)
}

func TestDateSQL(t *testing.T) {
	assert.Equal(t, "EXTRACT(WEEKDAY FROM created)", DateExtractSQL("week_day", "created"))
	assert.Equal(t, "EXTRACT(MONTH FROM created)", DateExtractSQL("month", "created"))

	got, err := DateTruncSQL("month", "created")
	require.NoError(t, err)
	assert.Equal(t, "CAST(EXTRACT(year FROM created)||'-'||EXTRACT(month FROM created)||'-01 00:00:00' AS TIMESTAMP)", got)

	got, err = DateTruncSQL("year", "d")
	require.NoError(t, err)
	assert.Equal(t, "CAST(EXTRACT(year FROM d)||'-01-01 00:00:00' AS TIMESTAMP)", got)

	_, err = DateTruncSQL("hour", "created")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestMiscSQL(t *testing.T) {
	assert.Equal(t, "UPPER(%s)", LookupCast("iexact"))
	assert.Equal(t, "%s", LookupCast("icontains"))
	assert.Equal(t, `%s CONTAINING "BODY"`, FulltextSearchSQL("body"))
	assert.Equal(t, "SELECT GEN_ID(ORDER_ITEMS_GN, 0) FROM rdb$database", LastInsertIDSQL("order_items"))
	assert.Equal(t, "RETURNING %s", ReturnInsertIDSQL())
	assert.Equal(t, `SAVEPOINT "S1"`, SavepointCreateSQL("s1"))
	assert.Equal(t, `ROLLBACK TO "S1"`, SavepointRollbackSQL("s1"))
	assert.Equal(t, `RELEASE SAVEPOINT "S1"`, SavepointReleaseSQL("s1"))
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("WI-V6.3.5.4926 Firebird 1.5")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, v)

	v, err = ParseVersion("3.0.11")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0, 11}, v)

	_, err = ParseVersion("")
	assert.Error(t, err)
	_, err = ParseVersion("Firebird x.y")
	assert.True(t, errs.IsInvalidInput(err))
}
