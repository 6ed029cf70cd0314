package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/urmzd/zwcore/pkg/zwave"
)

const dimmerDoc = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"value": {"type": "integer", "minimum": 0, "maximum": 99}
	},
	"required": ["value"],
	"additionalProperties": false
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		payload map[string]any
		want    error
	}{
		{"in range", dimmerDoc, map[string]any{"value": float64(42)}, nil},
		{"upper bound", dimmerDoc, map[string]any{"value": float64(99)}, nil},
		{"above range", dimmerDoc, map[string]any{"value": float64(100)}, ErrInvalidPayload},
		{"fractional", dimmerDoc, map[string]any{"value": 4.5}, ErrInvalidPayload},
		{"missing", dimmerDoc, map[string]any{}, ErrInvalidPayload},
		{"extra property", dimmerDoc, map[string]any{"value": float64(1), "ramp": "fast"}, ErrInvalidPayload},
		{"string for integer", dimmerDoc, map[string]any{"value": "50"}, ErrInvalidPayload},
		{"empty document", ``, map[string]any{"anything": true}, nil},
		{"empty object", ` {} `, map[string]any{"anything": true}, nil},
		{"null", `null`, map[string]any{"anything": true}, nil},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(json.RawMessage(tt.doc), tt.payload)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
	if n := v.Len(); n != 1 {
		t.Errorf("compiled %d documents, want the dimmer document once", n)
	}
}

func TestValidateMalformedDocument(t *testing.T) {
	err := NewValidator().Validate(json.RawMessage(`{"type": `), map[string]any{"value": float64(1)})
	if err == nil {
		t.Fatal("malformed document accepted")
	}
	if errors.Is(err, ErrInvalidPayload) {
		t.Errorf("malformed document reported as a payload problem: %v", err)
	}
}

func TestValidateValue(t *testing.T) {
	level := zwave.Value{
		ID:    zwave.ValueID{NodeID: 4, CommandClassID: zwave.CCSwitchMultilevel, Instance: 1, Type: zwave.ValueTypeByte},
		Label: "Level",
		Max:   99,
	}
	locked := level
	locked.ReadOnly = true

	tests := []struct {
		name  string
		value zwave.Value
		data  any
		ok    bool
	}{
		{"max", level, float64(99), true},
		{"zero", level, float64(0), true},
		{"negative", level, float64(-1), false},
		{"past max", level, float64(255), false},
		{"read only", locked, float64(1), false},
	}

	v := NewValidator()
	for _, tt := range tests {
		err := v.ValidateValue(tt.value, map[string]any{"value": tt.data})
		if (err == nil) != tt.ok {
			t.Errorf("%s: got %v", tt.name, err)
		}
	}
}
