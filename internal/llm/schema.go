package llm

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON Schema from the response type v. Nested types
// go to $defs so recursive ones such as bullets terminate.
func SchemaFor(name string, v any) (Schema, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
	}
	data, err := r.Reflect(v).MarshalJSON()
	if err != nil {
		return Schema{}, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	return Schema{Name: name, JSON: data}, nil
}

// MustSchema is SchemaFor for package-level response types.
func MustSchema(name string, v any) Schema {
	s, err := SchemaFor(name, v)
	if err != nil {
		panic(err)
	}
	return s
}
