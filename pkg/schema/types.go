package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type defines the contract for field validation.
// Implementations determine how values are validated against a type and how
// the type is advertised to a model as JSON Schema.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "[string]").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
	// JSONSchema returns the JSON Schema fragment describing the type.
	JSONSchema() map[string]any
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct {
	nonBlank bool
}

func (t *StringType) Name() string {
	if t.nonBlank {
		return "text"
	}
	return "string"
}

func (t *StringType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if t.nonBlank && strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
}

func (t *StringType) JSONSchema() map[string]any {
	out := map[string]any{"type": "string"}
	if t.nonBlank {
		out["minLength"] = 1
	}
	return out
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// JSON numbers decode as float64.
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

func (t *IntType) JSONSchema() map[string]any {
	return map[string]any{"type": "integer"}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

func (t *BoolType) JSONSchema() map[string]any {
	return map[string]any{"type": "boolean"}
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
	minItems int
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	if rv.Len() < t.minItems {
		return fmt.Errorf("expected at least %d item(s), got %d", t.minItems, rv.Len())
	}

	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (t *SliceType) JSONSchema() map[string]any {
	out := map[string]any{
		"type":  "array",
		"items": t.elemType.JSONSchema(),
	}
	if t.minItems > 0 {
		out["minItems"] = t.minItems
	}
	return out
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Text creates a string validator that rejects empty or whitespace-only values.
func Text() Type { return &StringType{nonBlank: true} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Slice creates a list validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// NonEmptySlice creates a list validator that requires at least one element.
func NonEmptySlice(elemType Type) Type {
	return &SliceType{elemType: elemType, minItems: 1}
}
