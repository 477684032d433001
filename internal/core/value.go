// Package core provides the payload model shared by the formatter, the payload
// loader and the CLI.
package core

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a single payload value. The set of implementations is closed:
// Scalar, *Payload (a nested mapping), Sequence and File.
type Value interface{ isValue() }

// Scalar holds a string, number, boolean or null.
type Scalar struct {
	v any
}

func (Scalar) isValue() {}

// String returns a string scalar.
func String(s string) Scalar { return Scalar{v: s} }

// Int returns an integer scalar.
func Int(n int64) Scalar { return Scalar{v: n} }

// Float returns a floating point scalar.
func Float(f float64) Scalar { return Scalar{v: f} }

// Number returns a numeric scalar that keeps its literal form, as read from a
// JSON or YAML document.
func Number(literal string) Scalar { return Scalar{v: json.Number(literal)} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{v: b} }

// Null returns the null scalar.
func Null() Scalar { return Scalar{} }

// ScalarOf wraps an arbitrary Go value. Values without a JSON representation
// are accepted here and rejected when the payload is encoded.
func ScalarOf(v any) Scalar { return Scalar{v: v} }

// Interface returns the wrapped Go value.
func (s Scalar) Interface() any { return s.v }

// IsNull reports whether the scalar is null.
func (s Scalar) IsNull() bool { return s.v == nil }

// Text renders the scalar the way it travels as a form field.
func (s Scalar) Text() string {
	switch v := s.v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		if math.Trunc(v) == v && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Sequence is an ordered list of values.
type Sequence []Value

func (Sequence) isValue() {}

// File wraps a file handle placed in a payload.
type File struct {
	Handle FileHandle
}

func (File) isValue() {}

// FileOf wraps a handle as a payload value.
func FileOf(h FileHandle) File { return File{Handle: h} }
