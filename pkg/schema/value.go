package schema

import (
	"encoding/json"
	"math"

	"github.com/urmzd/zwcore/pkg/zwave"
)

const draft = "https://json-schema.org/draft/2020-12/schema"

// PayloadKey is the property holding the new reading in a write payload.
const PayloadKey = "value"

// ForValue returns the schema of a write payload {"value": ...} for v.
// Read-only and schedule values accept nothing.
func ForValue(v zwave.Value) json.RawMessage {
	doc := map[string]any{
		"$schema":              draft,
		"title":                v.Label,
		"type":                 "object",
		"required":             []string{PayloadKey},
		"additionalProperties": false,
	}
	if v.Help != "" {
		doc["description"] = v.Help
	}
	if v.ReadOnly || v.ID.Type == zwave.ValueTypeSchedule {
		doc["readOnly"] = true
		doc["properties"] = map[string]any{PayloadKey: false}
	} else {
		doc["properties"] = map[string]any{PayloadKey: property(&v)}
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func property(v *zwave.Value) map[string]any {
	p := map[string]any{}
	if v.Units != "" {
		p["x-units"] = v.Units
	}

	switch v.ID.Type {
	case zwave.ValueTypeBool, zwave.ValueTypeButton:
		p["type"] = "boolean"

	case zwave.ValueTypeByte:
		p["type"] = "integer"
		bounds(p, v, 0, math.MaxUint8)
	case zwave.ValueTypeShort:
		p["type"] = "integer"
		bounds(p, v, math.MinInt16, math.MaxInt16)
	case zwave.ValueTypeInt:
		p["type"] = "integer"
		bounds(p, v, math.MinInt32, math.MaxInt32)

	case zwave.ValueTypeDecimal:
		number := map[string]any{"type": "number"}
		if v.Min != 0 || v.Max != 0 {
			number["minimum"] = v.Min
			number["maximum"] = v.Max
		}
		p["oneOf"] = []any{
			number,
			map[string]any{"type": "string", "pattern": `^\s*-?[0-9]+(\.[0-9]+)?\s*$`},
		}

	case zwave.ValueTypeString:
		p["type"] = "string"

	case zwave.ValueTypeList:
		enum := make([]any, 0, 2*len(v.Items))
		for _, item := range v.Items {
			enum = append(enum, item.Label)
		}
		for _, item := range v.Items {
			enum = append(enum, item.Value)
		}
		p["enum"] = enum

	case zwave.ValueTypeRaw:
		p["type"] = "string"
		p["pattern"] = `^(0x)?([0-9a-fA-F]{2})*$`
	}
	return p
}

// bounds applies the value range, or the width of the type when the value
// declares none.
func bounds(p map[string]any, v *zwave.Value, lo, hi int64) {
	if v.Min != 0 || v.Max != 0 {
		lo, hi = int64(v.Min), int64(v.Max)
	}
	p["minimum"] = lo
	p["maximum"] = hi
}
