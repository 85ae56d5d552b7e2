package firebird

import (
	"database/sql"
	"fmt"
	"reflect"

	"github.com/davidelias/django-firebird/internal/database"
	"github.com/davidelias/django-firebird/internal/errs"
	"github.com/davidelias/django-firebird/internal/translator"
)

// Rows is a result set whose values pass through the outbound translator,
// picked per column from the driver's column type, on each fetch.
type Rows struct {
	rows   *sql.Rows
	tr     *translator.Translator
	cols   []string
	tags   []translator.WireTag
	scales []int32
	cur    []any
}

var _ database.Rows = (*Rows)(nil)

func newRows(rows *sql.Rows, tr *translator.Translator) (*Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, mapError(err, "", nil)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return nil, mapError(err, "", nil)
	}

	r := &Rows{
		rows:   rows,
		tr:     tr,
		cols:   cols,
		tags:   make([]translator.WireTag, len(cols)),
		scales: make([]int32, len(cols)),
	}
	for i, ct := range types {
		_, scale, ok := ct.DecimalSize()
		if !ok {
			scale = 0
		}
		if scale < 0 {
			scale = -scale
		}
		r.tags[i] = translator.ColumnTag(ct.DatabaseTypeName(), scale)
		r.scales[i] = int32(scale)
	}
	return r, nil
}

func (r *Rows) Next() bool {
	r.cur = nil
	return r.rows.Next()
}

func (r *Rows) Columns() ([]string, error) { return r.cols, nil }

func (r *Rows) Close() error { return mapError(r.rows.Close(), "", nil) }

func (r *Rows) Err() error { return mapError(r.rows.Err(), "", nil) }

// Values returns the current row, translated.
func (r *Rows) Values() ([]any, error) {
	if r.cur != nil {
		return r.cur, nil
	}

	raw := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, mapError(err, "", nil)
	}

	out := make([]any, len(raw))
	for i, v := range raw {
		if r.tags[i] == translator.TagFixed {
			if _, isInt := v.(int64); isInt {
				v = translator.Fixed{Value: v, Scale: r.scales[i]}
			}
		}
		tv, err := r.tr.Outbound(r.tags[i], v)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindDatabase, fmt.Sprintf("column %s", r.cols[i]), err)
		}
		out[i] = tv
	}
	r.cur = out
	return out, nil
}

// Scan copies the translated row into dest. A destination accepts a value
// it can hold directly, through sql.Scanner, or by numeric conversion.
func (r *Rows) Scan(dest ...any) error {
	vals, err := r.Values()
	if err != nil {
		return err
	}
	if len(dest) != len(vals) {
		return errs.Newf(errs.ErrKindInvalidInput, "expected %d destination arguments in Scan, not %d", len(vals), len(dest))
	}
	for i := range dest {
		if err := assign(dest[i], vals[i]); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("scan column %s", r.cols[i]), err)
		}
	}
	return nil
}

// Row is the result of QueryRow.
type Row struct {
	rows database.Rows
	err  error
}

// Scan reads the first row and closes the result. It returns sql.ErrNoRows
// when there is none.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func assign(dest, v any) error {
	if d, ok := dest.(*any); ok {
		*d = v
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a non-nil pointer", dest)
	}
	dv = dv.Elem()

	if v == nil {
		if s, ok := dest.(sql.Scanner); ok {
			return s.Scan(nil)
		}
		switch dv.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dv.Set(reflect.Zero(dv.Type()))
			return nil
		}
		return fmt.Errorf("cannot store NULL in %T", dest)
	}

	sv := reflect.ValueOf(v)
	switch {
	case sv.Type().AssignableTo(dv.Type()):
		dv.Set(sv)
		return nil
	case dv.Kind() == reflect.Pointer && sv.Type().AssignableTo(dv.Type().Elem()):
		p := reflect.New(dv.Type().Elem())
		p.Elem().Set(sv)
		dv.Set(p)
		return nil
	case dv.Kind() == reflect.Pointer && numeric(sv.Kind()) && numeric(dv.Type().Elem().Kind()):
		// SMALLINT arrives as int16, INTEGER as int32.
		p := reflect.New(dv.Type().Elem())
		p.Elem().Set(sv.Convert(dv.Type().Elem()))
		dv.Set(p)
		return nil
	}

	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(v)
	}
	if dv.Kind() == reflect.String {
		switch x := v.(type) {
		case []byte:
			dv.SetString(string(x))
			return nil
		case fmt.Stringer:
			dv.SetString(x.String())
			return nil
		}
	}
	if numeric(sv.Kind()) && numeric(dv.Kind()) {
		dv.Set(sv.Convert(dv.Type()))
		return nil
	}
	return fmt.Errorf("cannot store %T in %T", v, dest)
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
