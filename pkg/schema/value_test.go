package schema

import (
	"testing"

	"github.com/urmzd/zwcore/pkg/zwave"
)

func value(t zwave.ValueType) zwave.Value {
	return zwave.Value{
		ID:    zwave.ValueID{HomeID: 1, NodeID: 5, Genre: zwave.GenreUser, CommandClassID: 0x26, Type: t},
		Label: "Level",
	}
}

func TestForValue_ByteBounds(t *testing.T) {
	v := NewValidator()
	val := value(zwave.ValueTypeByte)
	val.Max = 99
	doc := ForValue(val)

	if err := v.Validate(doc, map[string]any{PayloadKey: float64(99)}); err != nil {
		t.Errorf("max should be accepted, got: %v", err)
	}
	if err := v.Validate(doc, map[string]any{PayloadKey: float64(100)}); err == nil {
		t.Error("max+1 should be rejected")
	}
	if err := v.Validate(doc, map[string]any{PayloadKey: 1.5}); err == nil {
		t.Error("fractions should be rejected")
	}
}

func TestForValue_WidthWithoutRange(t *testing.T) {
	v := NewValidator()
	doc := ForValue(value(zwave.ValueTypeShort))

	if err := v.Validate(doc, map[string]any{PayloadKey: float64(-32768)}); err != nil {
		t.Errorf("int16 minimum should be accepted, got: %v", err)
	}
	if err := v.Validate(doc, map[string]any{PayloadKey: float64(32768)}); err == nil {
		t.Error("int16 overflow should be rejected")
	}
}

func TestForValue_Bool(t *testing.T) {
	v := NewValidator()
	doc := ForValue(value(zwave.ValueTypeBool))

	if err := v.Validate(doc, map[string]any{PayloadKey: true}); err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
	if err := v.Validate(doc, map[string]any{PayloadKey: "on"}); err == nil {
		t.Error("strings should be rejected for bool values")
	}
}

func TestForValue_List(t *testing.T) {
	v := NewValidator()
	val := value(zwave.ValueTypeList)
	val.Items = []zwave.ListItem{{Label: "Disabled", Value: 0}, {Label: "On and Off Enabled", Value: 255}}
	doc := ForValue(val)

	for _, ok := range []any{"Disabled", float64(255)} {
		if err := v.Validate(doc, map[string]any{PayloadKey: ok}); err != nil {
			t.Errorf("%v should be accepted, got: %v", ok, err)
		}
	}
	for _, bad := range []any{"Sometimes", float64(7)} {
		if err := v.Validate(doc, map[string]any{PayloadKey: bad}); err == nil {
			t.Errorf("%v should be rejected", bad)
		}
	}
}

func TestForValue_Decimal(t *testing.T) {
	v := NewValidator()
	doc := ForValue(value(zwave.ValueTypeDecimal))

	for _, ok := range []any{21.5, "21.5"} {
		if err := v.Validate(doc, map[string]any{PayloadKey: ok}); err != nil {
			t.Errorf("%v should be accepted, got: %v", ok, err)
		}
	}
	if err := v.Validate(doc, map[string]any{PayloadKey: "warm"}); err == nil {
		t.Error("non-numeric strings should be rejected")
	}
}

func TestForValue_ReadOnly(t *testing.T) {
	v := NewValidator()
	val := value(zwave.ValueTypeDecimal)
	val.ReadOnly = true
	doc := ForValue(val)

	if err := v.Validate(doc, map[string]any{PayloadKey: 1.0}); err == nil {
		t.Error("read-only values should accept no write")
	}
}
