package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/logger"
	"github.com/davidelias/django-firebird/internal/schema"
)

const shopSchema = `
tables:
  - name: order_items
    columns:
      - {name: id, kind: auto, primary_key: true}
      - {name: order_id, kind: foreign_key, references: {table: orders}}
  - name: orders
    columns:
      - {name: id, kind: auto, primary_key: true}
      - {name: customer_id, kind: foreign_key, references: {table: customers}}
`

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeCatalog struct {
	tables []string
	gens   []string
	err    error
}

func (c fakeCatalog) ListTables(context.Context) ([]string, error)       { return c.tables, c.err }
func (c fakeCatalog) ListGenerators(context.Context) ([]string, error)   { return c.gens, c.err }
func (c fakeCatalog) TableExists(context.Context, string) (bool, error) { return false, c.err }

type fakeInspector struct{ fakeCatalog }

func (fakeInspector) InspectTable(_ context.Context, table string) (*schema.TableInfo, error) {
	if table != "orders" {
		return nil, errs.Newf(errs.ErrKindSchema, "table %s not found or has no columns", table)
	}
	return &schema.TableInfo{Name: "ORDERS", Columns: []schema.ColumnInfo{{Name: "ID", DataType: "INTEGER", PrimaryKey: true}}}, nil
}

func (fakeInspector) ListForeignKeys(context.Context) ([]schema.ForeignKey, error) { return nil, nil }

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		status int
	}{
		{"no database", nil, http.StatusOK},
		{"database up", []Option{WithPinger(fakePinger{})}, http.StatusOK},
		{"database down", []Option{WithPinger(fakePinger{err: errs.New(errs.ErrKindDatabase, "unavailable")})}, http.StatusBadGateway},
		{"database slow", []Option{WithPinger(fakePinger{err: errs.Wrap(errs.ErrKindTimeout, "ping", context.DeadlineExceeded)})}, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", append(tt.opts, WithLogger(logger.Nop()))...)
			rec, _ := do(t, s, http.MethodGet, "/healthz", "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRewrite(t *testing.T) {
	s := New(":0", WithLogger(logger.Nop()))

	rec, out := do(t, s, http.MethodPost, "/rewrite", `{"sql": "SELECT * FROM t WHERE a = %s AND b LIKE '50%%'", "params": 1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b LIKE '50%'", out["sql"])

	rec, out = do(t, s, http.MethodPost, "/rewrite", `{"sql": "SELECT %s", "params": 2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "format", out["errorKind"])

	rec, out = do(t, s, http.MethodPost, "/rewrite", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", out["errorKind"])
}

func TestDDLCreate(t *testing.T) {
	s := New(":0", WithLogger(logger.Nop()))

	rec, out := do(t, s, http.MethodPost, "/ddl/create?existing=customers", shopSchema)
	require.Equal(t, http.StatusOK, rec.Code)

	stmts := out["statements"].([]any)
	require.Len(t, stmts, 7)
	assert.Contains(t, stmts[0], `CREATE TABLE "ORDER_ITEMS"`)
	assert.Contains(t, stmts[6], `ALTER TABLE "ORDER_ITEMS" ADD CONSTRAINT`)
	assert.Contains(t, out["script"], "SET TERM ^ ;")
	assert.Empty(t, out["unresolved"])

	_, out = do(t, s, http.MethodPost, "/ddl/create", shopSchema)
	unresolved := out["unresolved"].([]any)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "customers", unresolved[0].(map[string]any)["ref_table"])
}

func TestDDLDrop(t *testing.T) {
	s := New(":0", WithLogger(logger.Nop()))

	rec, out := do(t, s, http.MethodPost, "/ddl/drop", shopSchema)
	require.Equal(t, http.StatusOK, rec.Code)

	stmts := out["statements"].([]any)
	require.Len(t, stmts, 7)
	assert.Contains(t, stmts[0], "DROP CONSTRAINT")
	assert.Equal(t, `DROP TABLE "ORDER_ITEMS"`, stmts[6])
}

func TestDDLErrors(t *testing.T) {
	s := New(":0", WithLogger(logger.Nop()))
	tests := []struct {
		name string
		body string
	}{
		{"empty document", "tables: []"},
		{"bad yaml", "tables: [oops"},
		{"unmapped kind", "tables:\n  - name: t\n    columns:\n      - {name: shape, kind: geometry}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, s, http.MethodPost, "/ddl/create", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "schema", out["errorKind"])
		})
	}
}

func TestTables(t *testing.T) {
	s := New(":0", WithLogger(logger.Nop()))
	rec, _ := do(t, s, http.MethodGet, "/tables", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	s = New(":0", WithLogger(logger.Nop()), WithCatalog(fakeCatalog{
		tables: []string{"ORDERS"},
		gens:   []string{"ORDERS_GN"},
	}))
	rec, out := do(t, s, http.MethodGet, "/tables", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"ORDERS"}, out["tables"])
	assert.Equal(t, []any{"ORDERS_GN"}, out["generators"])
}

func TestTableDetail(t *testing.T) {
	s := New(":0", WithLogger(logger.Nop()), WithCatalog(fakeCatalog{}))
	rec, _ := do(t, s, http.MethodGet, "/tables/orders", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	s = New(":0", WithLogger(logger.Nop()), WithCatalog(fakeInspector{}))
	rec, out := do(t, s, http.MethodGet, "/tables/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ORDERS", out["name"])
	cols := out["columns"].([]any)
	require.Len(t, cols, 1)
	assert.Equal(t, true, cols[0].(map[string]any)["primary_key"])

	rec, out = do(t, s, http.MethodGet, "/tables/ghosts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "schema", out["errorKind"])
}

func TestRun_Shutdown(t *testing.T) {
	s := New("127.0.0.1:0", WithLogger(logger.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
