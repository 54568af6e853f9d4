package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained value types.
// Only IRNull, IRString, IRInt, IRBool, IRArray, IRObject, IRRef and
// IRUnresolvable implement this.
// NO IRFloat - floats are forbidden in IR.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents a JSON null value in the IR.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value in the IR.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value in the IR.
// Always int64, never float64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value in the IR.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered sequence of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// IRObject is a mapping of string keys to IRValue elements.
//
// Keys keep their declaration order: Keys and Pairs iterate in the order the
// keys were first added. Use SortedKeys for canonical ordering.
// The zero value is an empty object. IRObject is immutable; With returns a
// modified copy.
type IRObject struct {
	keys   []string
	fields map[string]IRValue
}

func (IRObject) irValue() {}

// IRPair represents a key-value pair for IRObject construction.
// This provides compile-time type safety - floats cannot be passed.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is a shorthand for IRPair for ergonomic construction.
// Example: NewIRObject(O("name", IRString("alice")), O("age", IRInt(30)))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewIRObject creates an IRObject from pairs, preserving their order.
// A repeated key keeps its first position and its last value.
func NewIRObject(pairs ...IRPair) IRObject {
	if len(pairs) == 0 {
		return IRObject{}
	}
	obj := IRObject{
		keys:   make([]string, 0, len(pairs)),
		fields: make(map[string]IRValue, len(pairs)),
	}
	for _, p := range pairs {
		if _, ok := obj.fields[p.Key]; !ok {
			obj.keys = append(obj.keys, p.Key)
		}
		obj.fields[p.Key] = p.Value
	}
	return obj
}

// Len returns the number of keys.
func (obj IRObject) Len() int {
	return len(obj.keys)
}

// Get returns the value stored under key.
func (obj IRObject) Get(key string) (IRValue, bool) {
	v, ok := obj.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (obj IRObject) Has(key string) bool {
	_, ok := obj.fields[key]
	return ok
}

// Keys returns the keys in declaration order.
func (obj IRObject) Keys() []string {
	return slices.Clone(obj.keys)
}

// Pairs returns the key-value pairs in declaration order.
func (obj IRObject) Pairs() []IRPair {
	pairs := make([]IRPair, len(obj.keys))
	for i, k := range obj.keys {
		pairs[i] = IRPair{Key: k, Value: obj.fields[k]}
	}
	return pairs
}

// With returns a copy of obj with key set to value. An existing key keeps
// its position; a new key is appended.
func (obj IRObject) With(key string, value IRValue) IRObject {
	return NewIRObject(append(obj.Pairs(), IRPair{Key: key, Value: value})...)
}

// Pick returns a new object holding only the given keys that are present,
// in the order they are requested.
func (obj IRObject) Pick(keys ...string) IRObject {
	pairs := make([]IRPair, 0, len(keys))
	for _, k := range keys {
		if v, ok := obj.fields[k]; ok {
			pairs = append(pairs, IRPair{Key: k, Value: v})
		}
	}
	return NewIRObject(pairs...)
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which produces a different order.
func (obj IRObject) SortedKeys() []string {
	keys := obj.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as required by
// RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// MarshalJSON implements json.Marshaler for IRObject in declaration order.
// This is NOT canonical marshaling. Use MarshalCanonical for persistence
// and hashing.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalIRValue(obj.fields[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for IRObject, keeping the key
// order of the document.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// MarshalIRValue marshals an IRValue to JSON bytes.
// References and unresolvable markers are rendered as {"$ref": ...} and
// {"$unresolvable": ...} for diagnostics; they never reach persistence
// because MarshalCanonical rejects them.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRBool:
		return json.Marshal(bool(val))
	case IRArray:
		return marshalIRArray(val)
	case IRObject:
		return val.MarshalJSON()
	case IRRef:
		return json.Marshal(map[string]string{"$ref": referentName(val.Target)})
	case IRUnresolvable:
		return json.Marshal(map[string]string{"$unresolvable": referentName(val.Target)})
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

// marshalIRArray marshals an IRArray to JSON bytes.
func marshalIRArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalIRValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalIRValue decodes JSON into an IRValue. Object key order is kept.
// Floats are rejected; null becomes IRNull.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeIRValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeIRValue(dec *json.Decoder) (IRValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			arr := IRArray{}
			for dec.More() {
				elem, err := decodeIRValue(dec)
				if err != nil {
					return nil, fmt.Errorf("array[%d]: %w", len(arr), err)
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			var pairs []IRPair
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
				}
				val, err := decodeIRValue(dec)
				if err != nil {
					return nil, fmt.Errorf("object[%q]: %w", key, err)
				}
				pairs = append(pairs, IRPair{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return NewIRObject(pairs...), nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return IRString(t), nil
	case bool:
		return IRBool(t), nil
	case nil:
		return IRNull{}, nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are forbidden in IR: %s", t)
		}
		return IRInt(n), nil
	default:
		return nil, fmt.Errorf("unsupported JSON token %T", tok)
	}
}

// FromAny converts a plain Go value (as produced by decoders) to an IRValue.
// Map keys are sorted canonically since Go maps carry no order.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are forbidden in IR: %s", val)
		}
		return IRInt(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in IR: %v", val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)
		pairs := make([]IRPair, 0, len(keys))
		for _, k := range keys {
			irElem, err := FromAny(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			pairs = append(pairs, IRPair{Key: k, Value: irElem})
		}
		return NewIRObject(pairs...), nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToAny converts an IRValue to plain Go values (string, int64, bool, nil,
// []any, map[string]any). References and markers are rendered by name.
func ToAny(v IRValue) any {
	switch val := v.(type) {
	case IRNull, nil:
		return nil
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, val.Len())
		for _, k := range val.keys {
			out[k] = ToAny(val.fields[k])
		}
		return out
	case IRRef:
		return map[string]any{"$ref": referentName(val.Target)}
	case IRUnresolvable:
		return map[string]any{"$unresolvable": referentName(val.Target)}
	default:
		return nil
	}
}
