package metadata

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindString represents a string value.
	KindString
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindBool represents a boolean value.
	KindBool
)

// Value is a small typed scalar used for item metadata and filter criteria.
//
// The representation avoids reflection and fmt-based stringification so that
// canonical keys are cheap and stable.
//
// NOTE: This is also used for persistence; keep it stable.
type Value struct {
	Kind Kind    `json:"k"`
	S    string  `json:"s,omitempty"`
	I64  int64   `json:"i,omitempty"`
	F64  float64 `json:"f,omitempty"`
	B    bool    `json:"b,omitempty"`
}

// String creates a string Value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Int creates an integer Value.
func Int(i int64) Value { return Value{Kind: KindInt, I64: i} }

// Float creates a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }

// Bool creates a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// FromAny converts a native Go scalar into a Value.
// Supported: string, bool, all int/uint widths, float32/float64.
func FromAny(v any) (Value, bool) {
	switch x := v.(type) {
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case int:
		return Int(int64(x)), true
	case int8:
		return Int(int64(x)), true
	case int16:
		return Int(int64(x)), true
	case int32:
		return Int(int64(x)), true
	case int64:
		return Int(x), true
	case uint:
		return Int(int64(x)), true
	case uint8:
		return Int(int64(x)), true
	case uint16:
		return Int(int64(x)), true
	case uint32:
		return Int(int64(x)), true
	case float32:
		return Float(float64(x)), true
	case float64:
		return Float(x), true
	default:
		return Value{}, false
	}
}

// Any returns the native Go scalar for wire formats that expect untyped JSON.
func (v Value) Any() any {
	switch v.Kind {
	case KindString:
		return v.S
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindBool:
		return v.B
	default:
		return nil
	}
}

// Equal reports whether two values are the same scalar.
// Int and float values compare numerically across kinds.
func (v Value) Equal(o Value) bool {
	if isNumber(v) && isNumber(o) {
		if v.Kind == KindInt && o.Kind == KindInt {
			return v.I64 == o.I64
		}
		return v.asFloat64() == o.asFloat64()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.S == o.S
	case KindBool:
		return v.B == o.B
	default:
		return false
	}
}

// Key returns a stable string representation for use in maps and hashes.
//
// It is used for fingerprinting and posting lists and must remain stable
// across versions for persisted cache entries to stay valid.
func (v Value) Key() string {
	switch v.Kind {
	case KindString:
		return "s:" + v.S
	case KindInt:
		return "i:" + strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return "f:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	default:
		return "invalid"
	}
}

func isNumber(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }

func (v Value) asFloat64() float64 {
	if v.Kind == KindInt {
		return float64(v.I64)
	}
	return v.F64
}

// Document is a string-keyed mapping of scalar metadata values.
type Document map[string]Value

// Clone returns a shallow copy of the document. A nil document clones to nil.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Key returns an order-normalized canonical encoding of the document:
// entries are sorted by key, so two documents with the same content always
// produce the same string regardless of construction order.
func (d Document) Key() string {
	if len(d) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(0x1e)
		}
		sb.WriteString(k)
		sb.WriteByte(0x1f)
		sb.WriteString(d[k].Key())
	}
	return sb.String()
}

// ToAny converts the document into an untyped map for JSON wire formats.
func (d Document) ToAny() map[string]any {
	if d == nil {
		return nil
	}
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v.Any()
	}
	return out
}

// FromAnyMap converts an untyped JSON object into a Document.
// Unsupported value types are dropped.
func FromAnyMap(m map[string]any) Document {
	if m == nil {
		return nil
	}
	out := make(Document, len(m))
	for k, raw := range m {
		if v, ok := FromAny(raw); ok {
			out[k] = v
		}
	}
	return out
}
