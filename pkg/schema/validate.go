package schema

import (
	"maps"
	"slices"
)

// Field describes one property of an object payload.
type Field struct {
	Type        Type
	Description string
	Optional    bool
}

// Schema is a map of field names to their expected types.
// Example: {"steps": {Type: NonEmptySlice(Text())}}
type Schema map[string]Field

// Validate checks if data conforms to the schema.
// Fields are checked in name order; every failure is reported.
func (s Schema) Validate(data map[string]any) error {
	if len(s) == 0 {
		return nil
	}

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(s)) {
		field := s[name]
		value, exists := data[name]
		if !exists || value == nil {
			if !field.Optional {
				errs = append(errs, &ValidationError{Key: name, Reason: "required"})
			}
			continue
		}

		if err := field.Type.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// JSONSchema renders the schema as a JSON Schema object, suitable for
// function-calling tool parameters.
func (s Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s))
	required := []string{}
	for _, name := range slices.Sorted(maps.Keys(s)) {
		field := s[name]
		prop := field.Type.JSONSchema()
		if field.Description != "" {
			prop["description"] = field.Description
		}
		properties[name] = prop
		if !field.Optional {
			required = append(required, name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
