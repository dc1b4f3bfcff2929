package model

import (
	"fmt"
	"reflect"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface for the generic value representation.
//
// Values carry trigger metadata, intermediate results of expression
// evaluation, and query outputs converted for uniform transport.
// Implemented by Null, String, Int, Bool, Vec, Map, TriggerID, AccountID
// and Trigger. NO float variant - floats break determinism.
type Value interface {
	value() // Sealed - only the types in this package implement it
}

// Null is the explicit absence of a value.
type Null struct{}

func (Null) value() {}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value. Always int64, never float64.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Vec is an ordered list of values.
type Vec []Value

func (Vec) value() {}

// Map is a string-keyed mapping of values.
// Use SortedKeys() for deterministic iteration.
type Map map[string]Value

func (Map) value() {}

func (TriggerID) value() {}
func (AccountID) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for non-BMP runes.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Metadata is the key-value store attached to a trigger's action.
// Keys must be valid names (see ValidateName).
type Metadata map[string]Value

// Get returns the value stored under key.
func (m Metadata) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// Clone returns a deep copy of m: Vec and Map values are copied too.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue returns a copy of v that shares no slice or map with it.
func CloneValue(v Value) Value {
	switch vv := v.(type) {
	case Vec:
		if vv == nil {
			return vv
		}
		out := make(Vec, len(vv))
		for i, e := range vv {
			out[i] = CloneValue(e)
		}
		return out
	case Map:
		if vv == nil {
			return vv
		}
		out := make(Map, len(vv))
		for k, e := range vv {
			out[k] = CloneValue(e)
		}
		return out
	case Trigger:
		return NewTrigger(vv.ID, vv.Action.Clone())
	default:
		return v
	}
}

// Validate checks every metadata key.
func (m Metadata) Validate() error {
	for k := range m {
		if err := ValidateName(k); err != nil {
			return fmt.Errorf("metadata key: %w", err)
		}
	}
	return nil
}

// ValuesEqual reports whether two values are structurally identical.
// A nil Value is treated as Null.
func ValuesEqual(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	return reflect.DeepEqual(a, b)
}

// ValueFromAny converts a decoded YAML/JSON value into a Value.
// Floats are rejected; integral floats produced by JSON decoders are not
// special-cased so that scripts stay explicit about number types.
func ValueFromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in values: %v", val)
	case []any:
		vec := make(Vec, len(val))
		for i, elem := range val {
			conv, err := ValueFromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			vec[i] = conv
		}
		return vec, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			conv, err := ValueFromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			m[k] = conv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}
