package schema

import "sort"

// Field describes one action parameter.
type Field struct {
	Type        Type
	Required    bool
	Description string
}

// Required declares a mandatory parameter.
func Required(t Type, description string) Field {
	return Field{Type: t, Required: true, Description: description}
}

// Optional declares a parameter that may be omitted.
func Optional(t Type, description string) Field {
	return Field{Type: t, Description: description}
}

// Schema is a map of parameter names to their fields.
type Schema map[string]Field

// Keys returns the field names in a stable order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if data conforms to the schema.
// Missing optional fields and nil values for them are accepted. Unknown keys
// are ignored. All failures are collected into an AggregateError.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var errs []error
	for _, key := range schema.Keys() {
		field := schema[key]
		value, exists := data[key]
		if !exists || value == nil {
			if field.Required {
				errs = append(errs, &FieldError{Key: key, Reason: "required"})
			}
			continue
		}
		if field.Type == nil {
			continue
		}
		if err := field.Type.Validate(value); err != nil {
			errs = append(errs, &FieldError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
