// Package schema validates value writes arriving over the outer surfaces
// against JSON Schema documents derived from the value description.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// ErrInvalidPayload wraps every rejection of a write payload.
var ErrInvalidPayload = errors.New("invalid payload")

// Validator checks write payloads. Documents are compiled once; values
// of one type and range share a document, so the cache stays small.
type Validator struct {
	compiled sync.Map // document text -> *jsonschema.Schema
}

// NewValidator returns a Validator with an empty cache.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks payload against doc. A missing or empty document
// accepts anything. Rejections wrap ErrInvalidPayload.
func (v *Validator) Validate(doc json.RawMessage, payload map[string]any) error {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 || bytes.Equal(doc, []byte("{}")) || bytes.Equal(doc, []byte("null")) {
		return nil
	}

	sch, err := v.schema(doc)
	if err != nil {
		return err
	}
	if err := sch.Validate(payload); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidPayload, ve.Error())
		}
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// ValidateValue checks payload against the document describing writes to val.
func (v *Validator) ValidateValue(val zwave.Value, payload map[string]any) error {
	return v.Validate(ForValue(val), payload)
}

// Len returns the number of compiled documents.
func (v *Validator) Len() int {
	n := 0
	v.compiled.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (v *Validator) schema(doc json.RawMessage) (*jsonschema.Schema, error) {
	key := string(doc)
	if s, ok := v.compiled.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing value schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("value.json", parsed); err != nil {
		return nil, fmt.Errorf("loading value schema: %w", err)
	}
	sch, err := c.Compile("value.json")
	if err != nil {
		return nil, fmt.Errorf("compiling value schema: %w", err)
	}

	// A concurrent compile of the same document may win; either result is fine.
	actual, _ := v.compiled.LoadOrStore(key, sch)
	return actual.(*jsonschema.Schema), nil
}
