package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ArgsSchema derives a JSON Schema for a tool's argument struct from its type.
// The resulting schema is inlined (no $ref indirection) and forbids properties
// the struct does not declare, which keeps model-hallucinated arguments from
// slipping through validation.
func ArgsSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero T
	schema := reflector.Reflect(&zero)
	schema.Version = ""
	schema.AdditionalProperties = jsonschema.FalseSchema

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tool: marshal schema for %T: %w", zero, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("tool: decode schema for %T: %w", zero, err)
	}
	return out, nil
}

// MustArgsSchema is ArgsSchema for statically-known argument types, where a
// reflection failure is a programming error.
func MustArgsSchema[T any]() map[string]any {
	schema, err := ArgsSchema[T]()
	if err != nil {
		panic(err)
	}
	return schema
}
