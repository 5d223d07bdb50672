package layoutml

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is the contract every layout model endpoint must meet after
// sanitising.
var responseSchema = map[string]any{
	"type":     "object",
	"required": []any{"pages"},
	"properties": map[string]any{
		"pages": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"page_number", "text"},
				"properties": map[string]any{
					"page_number": map[string]any{"type": "integer", "minimum": 1},
					"text":        map[string]any{"type": "string"},
				},
			},
		},
		"tables": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"page_number", "rows"},
				"properties": map[string]any{
					"page_number": map[string]any{"type": "integer", "minimum": 1},
					"rows": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
		},
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"title":      map[string]any{"type": "string"},
	},
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("layoutml.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("layoutml.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
