package trip

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a single cell of a Batch.
type Value struct {
	str  string
	num  float64
	i    int64
	kind Kind
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating-point value.
func Float(v float64) Value { return Value{kind: KindFloat, num: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float64 returns the numeric value. Null and non-numeric strings yield NaN,
// so they fall out of any ratio through the non-finite filter.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.num
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return math.NaN()
		}

		return f
	default:
		return math.NaN()
	}
}

// Label returns the canonical string form of a categorical value.
// Integral floats render without a fractional part so that 1, 1.0 and "1"
// produce the same label. The second result is false for null or NaN.
func (v Value) Label() (string, bool) {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindFloat:
		return floatLabel(v.num)
	case KindString:
		s := strings.TrimSpace(v.str)

		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return floatLabel(f)
		}

		return s, true
	default:
		return "", false
	}
}

func floatLabel(f float64) (string, bool) {
	if math.IsNaN(f) {
		return "", false
	}

	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10), true
	}

	return strconv.FormatFloat(f, 'g', -1, 64), true
}
