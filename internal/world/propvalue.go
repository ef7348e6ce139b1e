// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// objectIDPrefix marks a JSON string that holds an ObjectID.
const objectIDPrefix = "_oid:"

// PropType tags the variant held by a PropValue.
type PropType uint8

// Prop value variants.
const (
	PropUnset PropType = iota
	PropObjectID
	PropString
	PropNumber
	PropList
)

// FlatPropValue is a scalar property value: a string, number or ObjectID.
// Its zero value is unset.
type FlatPropValue struct {
	typ PropType
	id  ObjectID
	str string
	num int64
}

// FlatString returns a string flat value.
func FlatString(s string) FlatPropValue { return FlatPropValue{typ: PropString, str: s} }

// FlatNumber returns a number flat value.
func FlatNumber(n int64) FlatPropValue { return FlatPropValue{typ: PropNumber, num: n} }

// FlatID returns an ObjectID flat value.
func FlatID(id ObjectID) FlatPropValue { return FlatPropValue{typ: PropObjectID, id: id} }

// Type returns the variant tag.
func (v FlatPropValue) Type() PropType { return v.typ }

// StringValue returns the string and whether v is a string.
func (v FlatPropValue) StringValue() (string, bool) { return v.str, v.typ == PropString }

// NumberValue returns the number and whether v is a number.
func (v FlatPropValue) NumberValue() (int64, bool) { return v.num, v.typ == PropNumber }

// IDValue returns the ObjectID and whether v is an ObjectID.
func (v FlatPropValue) IDValue() (ObjectID, bool) { return v.id, v.typ == PropObjectID }

// Equal reports whether both values have the same variant and content.
func (v FlatPropValue) Equal(o FlatPropValue) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case PropString:
		return v.str == o.str
	case PropNumber:
		return v.num == o.num
	case PropObjectID:
		return v.id.Equal(o.id)
	default:
		return true
	}
}

func (v FlatPropValue) String() string {
	switch v.typ {
	case PropString:
		return v.str
	case PropNumber:
		return strconv.FormatInt(v.num, 10)
	case PropObjectID:
		return v.id.ID()
	default:
		return "unknown"
	}
}

func (v FlatPropValue) wire() any {
	switch v.typ {
	case PropString:
		return v.str
	case PropNumber:
		return v.num
	case PropObjectID:
		return objectIDPrefix + v.id.ID()
	default:
		return nil
	}
}

// PropValue is a tagged property value: unset, string, number, ObjectID, or a
// list of flat values. Lists cannot nest. The zero value is unset.
type PropValue struct {
	FlatPropValue
	list []FlatPropValue
}

// Unset returns the unset value.
func Unset() PropValue { return PropValue{} }

// PropStringValue returns a string prop.
func PropStringValue(s string) PropValue { return PropValue{FlatPropValue: FlatString(s)} }

// PropNumberValue returns a number prop.
func PropNumberValue(n int64) PropValue { return PropValue{FlatPropValue: FlatNumber(n)} }

// PropIDValue returns an ObjectID prop.
func PropIDValue(id ObjectID) PropValue { return PropValue{FlatPropValue: FlatID(id)} }

// PropListValue returns a list prop. The slice is copied.
func PropListValue(items ...FlatPropValue) PropValue {
	list := make([]FlatPropValue, len(items))
	copy(list, items)
	return PropValue{FlatPropValue: FlatPropValue{typ: PropList}, list: list}
}

// IsUnset reports whether v holds no value.
func (v PropValue) IsUnset() bool { return v.typ == PropUnset }

// ListValue returns a copy of the list and whether v is a list.
func (v PropValue) ListValue() ([]FlatPropValue, bool) {
	if v.typ != PropList {
		return nil, false
	}
	out := make([]FlatPropValue, len(v.list))
	copy(out, v.list)
	return out, true
}

// Equal reports whether both values have the same variant and content.
func (v PropValue) Equal(o PropValue) bool {
	if v.typ != PropList || o.typ != PropList {
		return v.FlatPropValue.Equal(o.FlatPropValue)
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if !v.list[i].Equal(o.list[i]) {
			return false
		}
	}
	return true
}

func (v PropValue) String() string {
	if v.typ != PropList {
		return v.FlatPropValue.String()
	}
	parts := make([]string, len(v.list))
	for i, item := range v.list {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Encode returns the JSON wire form. ok is false for unset values, which have
// no stored representation.
func (v PropValue) Encode() (string, bool, error) {
	if v.IsUnset() {
		return "", false, nil
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// MarshalJSON implements json.Marshaler.
func (v PropValue) MarshalJSON() ([]byte, error) {
	var wire any
	if v.typ == PropList {
		items := make([]any, 0, len(v.list))
		for _, item := range v.list {
			items = append(items, item.wire())
		}
		wire = items
	} else {
		wire = v.FlatPropValue.wire()
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, oops.Code(CodePropDecode).Wrap(err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *PropValue) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePropValue(string(data))
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// DecodePropValue parses the JSON wire form. Objects, nested arrays, booleans
// and non-integer numbers are rejected. Nulls inside a list are dropped.
func DecodePropValue(data string) (PropValue, error) {
	if strings.TrimSpace(data) == "" {
		return Unset(), nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Unset(), oops.Code(CodePropDecode).With("data", data).Wrap(err)
	}
	if dec.More() {
		return Unset(), oops.Code(CodePropDecode).With("data", data).Errorf("trailing data after prop value")
	}

	switch val := raw.(type) {
	case nil:
		return Unset(), nil
	case []any:
		list := make([]FlatPropValue, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			flat, err := decodeFlat(item, data)
			if err != nil {
				return Unset(), err
			}
			list = append(list, flat)
		}
		return PropValue{FlatPropValue: FlatPropValue{typ: PropList}, list: list}, nil
	default:
		flat, err := decodeFlat(val, data)
		if err != nil {
			return Unset(), err
		}
		return PropValue{FlatPropValue: flat}, nil
	}
}

func decodeFlat(raw any, data string) (FlatPropValue, error) {
	switch val := raw.(type) {
	case string:
		return decodeFlatString(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return FlatPropValue{}, oops.Code(CodePropDecode).With("data", data).Wrapf(err, "prop number must be an integer")
		}
		return FlatNumber(n), nil
	default:
		return FlatPropValue{}, oops.Code(CodePropDecode).
			With("data", data).
			Errorf("unsupported prop value type %T", raw)
	}
}

func decodeFlatString(s string) FlatPropValue {
	if rest, ok := strings.CutPrefix(s, objectIDPrefix); ok {
		if id, err := ParseID(rest); err == nil && id.IsAssigned() {
			return FlatID(id)
		}
	}
	return FlatString(s)
}
