package translator

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bind applies the inbound conversion a parameter's Go type implies. Plain
// strings and byte slices are left alone because the wire driver already
// encodes them with the connection charset; wrap them in Typed to force
// TEXT or BLOB handling.
func (t *Translator) Bind(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Typed:
		return t.Inbound(x.Tag, x.Value)
	case Fixed, *Fixed:
		return t.Inbound(TagFixed, x)
	case decimal.Decimal:
		return x.String(), nil
	case Date:
		return t.Inbound(TagDate, x)
	case TimeOfDay:
		return t.Inbound(TagTime, x)
	case time.Time:
		return t.Inbound(TagTimestamp, x)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return v, nil
}

// BindAll binds every parameter, stopping at the first failure.
func (t *Translator) BindAll(params []any) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		v, err := t.Bind(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ColumnTag maps a driver column type name to its wire tag. Integer columns
// with a non-zero scale are NUMERIC/DECIMAL storage. An empty tag means the
// value is returned untranslated.
func ColumnTag(typeName string, scale int64) WireTag {
	switch strings.ToUpper(typeName) {
	case "DATE":
		return TagDate
	case "TIME":
		return TagTime
	case "TIMESTAMP":
		return TagTimestamp
	case "SHORT", "LONG", "INT64", "INT128", "QUAD", "SMALLINT", "INTEGER", "BIGINT":
		if scale != 0 {
			return TagFixed
		}
		return TagInteger
	case "NUMERIC", "DECIMAL":
		return TagFixed
	case "TEXT", "VARYING", "CHAR", "VARCHAR":
		return TagText
	case "BLOB":
		return TagBlob
	}
	return ""
}
