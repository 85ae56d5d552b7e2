// Package translator converts values between Go and the Firebird wire types.
//
// A Translator is built once per connection from the connection's charset
// and holds two fixed tables keyed by wire tag: inbound conversions applied
// to parameters before they are bound, and outbound conversions applied to
// column values after each fetch.
package translator

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidelias/django-firebird/internal/errs"
)

// WireTag names a Firebird wire type family.
type WireTag string

const (
	TagDate        WireTag = "DATE"
	TagTime        WireTag = "TIME"
	TagTimestamp   WireTag = "TIMESTAMP"
	TagInteger     WireTag = "INTEGER"
	TagFixed       WireTag = "FIXED"
	TagText        WireTag = "TEXT"
	TagTextUnicode WireTag = "TEXT_UNICODE"
	TagBlob        WireTag = "BLOB"
)

// Precision is the finest time resolution Firebird stores.
const Precision = 100 * time.Microsecond

// maxDateText is the longest date/time string handed to the parser. Anything
// past it is finer than Precision and is cut, not rounded.
const maxDateText = 24

var dateLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

var timeLayouts = []string{
	"15:04:05.999999999",
	"15:04",
}

// Converter turns one value into another for a single wire tag.
type Converter func(v any) (any, error)

// Translator holds the per-connection conversion tables. It is immutable
// once built; a charset change needs a new Translator.
type Translator struct {
	charset  Charset
	inbound  map[WireTag]Converter
	outbound map[WireTag]Converter
}

// New builds the conversion tables for charset cs.
func New(cs Charset) *Translator {
	t := &Translator{charset: cs}
	t.inbound = map[WireTag]Converter{
		TagDate:        inDate,
		TagTime:        inTime,
		TagTimestamp:   inTimestamp,
		TagInteger:     identity,
		TagFixed:       inFixed,
		TagText:        t.inText,
		TagTextUnicode: t.inText,
		TagBlob:        t.inBlob,
	}
	t.outbound = map[WireTag]Converter{
		TagDate:        outDate,
		TagTime:        outTime,
		TagTimestamp:   outTimestamp,
		TagFixed:       outFixed,
		TagText:        t.outText,
		TagTextUnicode: t.outText,
		TagBlob:        t.outText,
	}
	return t
}

// Charset returns the charset the tables were built for.
func (t *Translator) Charset() Charset { return t.charset }

// Inbound converts a parameter for tag. Tags without a conversion pass the
// value through.
func (t *Translator) Inbound(tag WireTag, v any) (any, error) {
	if fn, ok := t.inbound[tag]; ok {
		return fn(v)
	}
	return v, nil
}

// Outbound converts a fetched column value for tag. Tags without a
// conversion pass the value through.
func (t *Translator) Outbound(tag WireTag, v any) (any, error) {
	if fn, ok := t.outbound[tag]; ok {
		return fn(v)
	}
	return v, nil
}

func identity(v any) (any, error) { return v, nil }

func inDate(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Date:
		return x.Time(), nil
	case time.Time:
		return DateOf(x).Time(), nil
	case string:
		ts, err := parseDateText(x)
		if err != nil {
			return nil, err
		}
		return DateOf(ts).Time(), nil
	}
	return nil, unsupported(TagDate, v)
}

func inTimestamp(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.Truncate(Precision), nil
	case Date:
		return x.Time(), nil
	case string:
		return parseDateText(x)
	}
	return nil, unsupported(TagTimestamp, v)
}

func inTime(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return TimeOfDayOf(x).Time(), nil
	case TimeOfDay:
		return TimeOfDayOf(x.Time()).Time(), nil
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return TimeOfDayOf(ts).Time(), nil
			}
		}
		return nil, errs.Newf(errs.ErrKindInvalidInput, "cannot parse %q as a time of day", x)
	}
	return nil, unsupported(TagTime, v)
}

func inFixed(v any) (any, error) {
	var f Fixed
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Fixed:
		f = x
	case *Fixed:
		if x == nil {
			return nil, nil
		}
		f = *x
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "FIXED parameter needs a value and a scale, got %T", v)
	}
	if f.Value == nil {
		return nil, nil
	}
	d, err := f.decimal()
	if err != nil {
		return nil, err
	}
	return d.StringFixed(f.Scale), nil
}

func (t *Translator) inText(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return t.charset.Encode(toText(v))
}

// inBlob accepts nil: the driver binds it as a NULL blob id.
func (t *Translator) inBlob(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return t.charset.Encode(toText(v))
}

func outDate(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return DateOf(x), nil
	case string, []byte:
		ts, err := parseDateText(textOf(x))
		if err != nil {
			return nil, err
		}
		return DateOf(ts), nil
	}
	return nil, unsupported(TagDate, v)
}

func outTime(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return TimeOfDayOf(x), nil
	}
	return nil, unsupported(TagTime, v)
}

func outTimestamp(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case string, []byte:
		return parseDateText(textOf(x))
	}
	return nil, unsupported(TagTimestamp, v)
}

// outFixed takes bare values at face value.
func outFixed(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Fixed:
		if x.Value == nil {
			return nil, nil
		}
		return x.decimal()
	}
	return toDecimal(v)
}

func (t *Translator) outText(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case []byte:
		return t.charset.Decode(x)
	}
	return nil, unsupported(TagText, v)
}

func parseDateText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxDateText {
		s = s[:maxDateText]
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Truncate(Precision), nil
		}
	}
	return time.Time{}, errs.Newf(errs.ErrKindInvalidInput, "cannot parse %q as a date", s)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x != nil {
			return *x, nil
		}
	case string, []byte:
		d, err := decimal.NewFromString(strings.TrimSpace(textOf(x)))
		if err != nil {
			return decimal.Decimal{}, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("cannot parse %q as a decimal", textOf(x)), err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return decimal.Decimal{}, unsupported(TagFixed, v)
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func textOf(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}

func unsupported(tag WireTag, v any) error {
	return errs.Newf(errs.ErrKindInvalidInput, "%s conversion does not accept %T", tag, v)
}
