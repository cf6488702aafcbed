package run

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface over the values a stage record can hold.
// Only Null, Int, Real, Text, Bool, and Series implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null marks a requested column that could not be extracted.
type Null struct{}

func (Null) value() {}

// Int is an integer value (ids, counters).
type Int int64

func (Int) value() {}

// Real is a floating-point scalar.
type Real float64

func (Real) value() {}

// Text is a string value.
type Text string

func (Text) value() {}

// Bool is a boolean flag.
type Bool bool

func (Bool) value() {}

// Series is a column slice over several rows. A record holding a Series
// is stored as one row per element.
type Series []float64

func (Series) value() {}

// Native returns the Go value for database binding.
// Null maps to nil. Series has no scalar form and returns itself.
func Native(v Value) any {
	switch x := v.(type) {
	case Int:
		return int64(x)
	case Real:
		return float64(x)
	case Text:
		return string(x)
	case Bool:
		return bool(x)
	case Series:
		return []float64(x)
	default:
		return nil
	}
}

// Format renders a value for log output.
func Format(v Value) string {
	switch x := v.(type) {
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Real:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case Text:
		return strconv.Quote(string(x))
	case Bool:
		return strconv.FormatBool(bool(x))
	case Series:
		return fmt.Sprintf("series[%d]", len(x))
	default:
		return "null"
	}
}

// Column is a named value.
type Column struct {
	Name  string
	Value Value
}

// Row is an ordered set of columns. Order is the order of first Set and
// becomes the column order of tables created from the row.
type Row []Column

// Set adds a column or replaces the value of an existing one in place.
func (r *Row) Set(name string, v Value) {
	for i := range *r {
		if (*r)[i].Name == name {
			(*r)[i].Value = v
			return
		}
	}
	*r = append(*r, Column{Name: name, Value: v})
}

// Get returns the value of a column.
func (r Row) Get(name string) (Value, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Names returns column names in order.
func (r Row) Names() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Name
	}
	return out
}

// NullColumns returns the names of columns holding Null.
func (r Row) NullColumns() []string {
	var out []string
	for _, c := range r {
		if _, ok := c.Value.(Null); ok {
			out = append(out, c.Name)
		}
	}
	return out
}

// HasNull reports whether any column holds Null.
func (r Row) HasNull() bool {
	return len(r.NullColumns()) > 0
}

// HasSeries reports whether any column holds a Series.
func (r Row) HasSeries() bool {
	for _, c := range r {
		if _, ok := c.Value.(Series); ok {
			return true
		}
	}
	return false
}
