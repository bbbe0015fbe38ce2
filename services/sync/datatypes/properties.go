// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind discriminates the closed set of property value kinds a node
// or relationship may carry.
//
// The graph stores accept loosely-typed property bags; modeling them as a
// closed sum type instead of map[string]any keeps the adapters total:
// every kind has a known rendering in Cypher and in SQL.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindStringList
)

// Value is one property value: a string, number, boolean, null, or list
// of strings. The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

// String constructs a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number constructs a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null constructs a null Value.
func Null() Value { return Value{} }

// StringList constructs a string-list Value. The slice is copied.
func StringList(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindStringList, list: cp}
}

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean payload and whether the value is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsStringList returns the list payload and whether the value is a list.
func (v Value) AsStringList() ([]string, bool) {
	if v.kind != KindStringList {
		return nil, false
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// StringOr returns the string payload, or def when the value is not a
// string.
func (v Value) StringOr(def string) string {
	if v.kind != KindString {
		return def
	}
	return v.str
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns the value as a plain Go value suitable for JSON
// encoding or database/sql arguments: string, float64, bool, []string,
// or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindStringList:
		cp := make([]string, len(v.list))
		copy(cp, v.list)
		return cp
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its plain JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a plain JSON value into the closed sum.
// JSON arrays must contain only strings; objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts a plain Go value into a Value.
//
// Accepted inputs: nil, string, bool, any integer or float type, []string,
// and []any holding only strings. Anything else is an error, keeping the
// sum closed.
func ValueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case []string:
		return StringList(t), nil
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("unsupported list element %T (only string lists are allowed)", item)
			}
			items = append(items, s)
		}
		return StringList(items), nil
	default:
		return Value{}, fmt.Errorf("unsupported property value type %T", raw)
	}
}

// Properties is a property bag keyed by property name.
type Properties map[string]Value

// SortedKeys returns the property names in lexical order, so generated
// queries are deterministic.
func (p Properties) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the bag (Values are immutable).
func (p Properties) Clone() Properties {
	cp := make(Properties, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// StringValue returns the string payload of the named property, or ""
// if the property is absent or not a string.
func (p Properties) StringValue(key string) string {
	s, _ := p[key].AsString()
	return s
}
