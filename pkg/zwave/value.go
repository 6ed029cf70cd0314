package zwave

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ListItem is one selectable entry of a list value.
type ListItem struct {
	Label string `json:"label"`
	Value int32  `json:"value"`
}

// Value is the mutable payload addressed by a ValueID.
//
// Data holds the Go representation of the current reading:
// bool (Bool, Button), uint8 (Byte), int16 (Short), int32 (Int and the
// selected List item value), string (Decimal, String) and []byte (Raw).
// Data is meaningful only when IsSet is true.
type Value struct {
	ID            ValueID    `json:"id"`
	Label         string     `json:"label"`
	Help          string     `json:"help,omitempty"`
	Units         string     `json:"units,omitempty"`
	Min           int32      `json:"min"`
	Max           int32      `json:"max"`
	Items         []ListItem `json:"items,omitempty"`
	ReadOnly      bool       `json:"read_only"`
	WriteOnly     bool       `json:"write_only"`
	IsSet         bool       `json:"is_set"`
	Data          any        `json:"data,omitempty"`
	PollIntensity uint8      `json:"poll_intensity"`
}

// ValueInfo is the descriptive part of a value.
type ValueInfo struct {
	Label string `json:"label"`
	Help  string `json:"help"`
	Units string `json:"units"`
	Min   int32  `json:"min"`
	Max   int32  `json:"max"`
}

// Info returns the value description.
func (v *Value) Info() ValueInfo {
	return ValueInfo{Label: v.Label, Help: v.Help, Units: v.Units, Min: v.Min, Max: v.Max}
}

// Clone returns a copy that shares no mutable state with v.
func (v *Value) Clone() Value {
	c := *v
	if raw, ok := v.Data.([]byte); ok {
		c.Data = bytes.Clone(raw)
	}
	return c
}

// String renders the current data the way GetValueAsString does.
func (v *Value) String() string {
	if !v.IsSet {
		return ""
	}
	return FormatValue(v, v.Data)
}

// Check validates data for a set request and returns it in canonical
// form. Read-only is checked first, then the Go type, then the range.
func (v *Value) Check(data any) (any, error) {
	if v.ReadOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, v.Label)
	}

	switch v.ID.Type {
	case ValueTypeBool, ValueTypeButton:
		b, ok := data.(bool)
		if !ok {
			return nil, v.mismatch(data)
		}
		return b, nil

	case ValueTypeByte:
		n, ok := data.(uint8)
		if !ok {
			return nil, v.mismatch(data)
		}
		return n, v.checkRange(int64(n))

	case ValueTypeShort:
		n, ok := data.(int16)
		if !ok {
			return nil, v.mismatch(data)
		}
		return n, v.checkRange(int64(n))

	case ValueTypeInt:
		n, ok := data.(int32)
		if !ok {
			return nil, v.mismatch(data)
		}
		return n, v.checkRange(int64(n))

	case ValueTypeDecimal:
		s, ok := data.(string)
		if !ok {
			return nil, v.mismatch(data)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %q is not a decimal", ErrTypeMismatch, s)
		}
		if v.Min != 0 || v.Max != 0 {
			if f < float64(v.Min) || f > float64(v.Max) {
				return nil, fmt.Errorf("%w: %s not in [%d, %d]", ErrOutOfRange, s, v.Min, v.Max)
			}
		}
		return strings.TrimSpace(s), nil

	case ValueTypeString:
		s, ok := data.(string)
		if !ok {
			return nil, v.mismatch(data)
		}
		return s, nil

	case ValueTypeList:
		switch d := data.(type) {
		case string:
			for _, item := range v.Items {
				if item.Label == d {
					return item.Value, nil
				}
			}
			return nil, fmt.Errorf("%w: %q is not a list item", ErrOutOfRange, d)
		case int32:
			if slices.ContainsFunc(v.Items, func(i ListItem) bool { return i.Value == d }) {
				return d, nil
			}
			return nil, fmt.Errorf("%w: %d is not a list item value", ErrOutOfRange, d)
		default:
			return nil, v.mismatch(data)
		}

	case ValueTypeRaw:
		raw, ok := data.([]byte)
		if !ok {
			return nil, v.mismatch(data)
		}
		return bytes.Clone(raw), nil
	}

	// Schedule values cannot be written through the generic path.
	return nil, v.mismatch(data)
}

func (v *Value) mismatch(data any) error {
	return fmt.Errorf("%w: %s value %s does not accept %T", ErrTypeMismatch, v.ID.Type, v.Label, data)
}

func (v *Value) checkRange(n int64) error {
	if v.Min == 0 && v.Max == 0 {
		return nil
	}
	if n < int64(v.Min) || n > int64(v.Max) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, n, v.Min, v.Max)
	}
	return nil
}

// ItemLabel returns the label of the list item with the given value.
func (v *Value) ItemLabel(n int32) (string, bool) {
	for _, item := range v.Items {
		if item.Value == n {
			return item.Label, true
		}
	}
	return "", false
}

// FormatValue renders data for v as a string.
func FormatValue(v *Value, data any) string {
	switch d := data.(type) {
	case bool:
		if d {
			return "True"
		}
		return "False"
	case uint8:
		return strconv.FormatUint(uint64(d), 10)
	case int16:
		return strconv.FormatInt(int64(d), 10)
	case int32:
		if v != nil && v.ID.Type == ValueTypeList {
			if label, ok := v.ItemLabel(d); ok {
				return label
			}
		}
		return strconv.FormatInt(int64(d), 10)
	case string:
		return d
	case []byte:
		return "0x" + hex.EncodeToString(d)
	case nil:
		return ""
	}
	return fmt.Sprint(data)
}

// ParseValue converts the string form of a reading into data for v.
// The result still has to pass Check.
func ParseValue(v *Value, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch v.ID.Type {
	case ValueTypeBool, ValueTypeButton:
		switch strings.ToLower(s) {
		case "true", "on", "1", "yes":
			return true, nil
		case "false", "off", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, s)

	case ValueTypeByte:
		return parseInt[uint8](s, 0, math.MaxUint8)
	case ValueTypeShort:
		return parseInt[int16](s, math.MinInt16, math.MaxInt16)
	case ValueTypeInt:
		return parseInt[int32](s, math.MinInt32, math.MaxInt32)
	case ValueTypeDecimal, ValueTypeString:
		return s, nil

	case ValueTypeList:
		for _, item := range v.Items {
			if strings.EqualFold(item.Label, s) {
				return item.Label, nil
			}
		}
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a list item", ErrOutOfRange, s)
		}
		return int32(n), nil

	case ValueTypeRaw:
		raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not hex", ErrTypeMismatch, s)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("%w: cannot parse %s values", ErrTypeMismatch, v.ID.Type)
}

func parseInt[T uint8 | int16 | int32](s string, lo, hi int64) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrTypeMismatch, s)
	}
	if n < lo || n > hi {
		return nil, fmt.Errorf("%w: %d does not fit the value width", ErrOutOfRange, n)
	}
	return T(n), nil
}

// FromJSON converts a decoded JSON scalar into the Go type expected by v.
// Numbers must be integral for integer types.
func FromJSON(v *Value, raw any) (any, error) {
	switch d := raw.(type) {
	case string:
		if v.ID.Type == ValueTypeList || v.ID.Type == ValueTypeDecimal || v.ID.Type == ValueTypeString || v.ID.Type == ValueTypeRaw {
			return ParseValue(v, d)
		}
		return nil, fmt.Errorf("%w: %s value does not accept a string", ErrTypeMismatch, v.ID.Type)
	case bool:
		if v.ID.Type == ValueTypeBool || v.ID.Type == ValueTypeButton {
			return d, nil
		}
		return nil, fmt.Errorf("%w: %s value does not accept a boolean", ErrTypeMismatch, v.ID.Type)
	case float64:
		switch v.ID.Type {
		case ValueTypeDecimal:
			return strconv.FormatFloat(d, 'f', -1, 64), nil
		case ValueTypeByte, ValueTypeShort, ValueTypeInt, ValueTypeList:
			if d != math.Trunc(d) {
				return nil, fmt.Errorf("%w: %v is not an integer", ErrTypeMismatch, d)
			}
			s := strconv.FormatInt(int64(d), 10)
			if v.ID.Type == ValueTypeList {
				return int32(d), nil
			}
			return ParseValue(v, s)
		}
		return nil, fmt.Errorf("%w: %s value does not accept a number", ErrTypeMismatch, v.ID.Type)
	}
	return nil, fmt.Errorf("%w: unsupported JSON value %T", ErrTypeMismatch, raw)
}

// Equal reports whether two readings are identical.
func Equal(a, b any) bool {
	ra, aok := a.([]byte)
	rb, bok := b.([]byte)
	if aok || bok {
		return aok && bok && bytes.Equal(ra, rb)
	}
	return a == b
}
