package translator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Date is a calendar day with no clock or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf takes the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// TimeOfDay is a wall clock reading with Firebird's 100µs resolution.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// TimeOfDayOf projects the clock part out of t, dropping the date.
func TimeOfDayOf(t time.Time) TimeOfDay {
	t = t.Truncate(Precision)
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

// Time places the reading in year 0 UTC. The driver binds a time.Time as
// TIME only when its year is 0 and as TIMESTAMP otherwise.
func (t TimeOfDay) Time() time.Time {
	return time.Date(0, time.January, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%04d", t.Hour, t.Minute, t.Second, t.Nanosecond/int(Precision))
}

// Fixed is a NUMERIC/DECIMAL value with its scale. Value may be a
// decimal.Decimal, a string, an integer magnitude, or nil. An integer
// magnitude is the unscaled wire value, so Fixed{12345, 2} is 123.45 in
// both directions.
type Fixed struct {
	Value any
	Scale int32
}

func (f Fixed) decimal() (decimal.Decimal, error) {
	switch m := f.Value.(type) {
	case int64:
		return decimal.New(m, -f.Scale), nil
	case int32:
		return decimal.New(int64(m), -f.Scale), nil
	case int16:
		return decimal.New(int64(m), -f.Scale), nil
	case int:
		return decimal.New(int64(m), -f.Scale), nil
	}
	return toDecimal(f.Value)
}

// Typed forces a wire tag on a bound parameter instead of inferring it from
// the Go type.
type Typed struct {
	Tag   WireTag
	Value any
}
