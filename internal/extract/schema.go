package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildCandidateJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the extraction output, as a generic map. Deliberately loose on types:
// models return amounts as numbers or strings and we normalize afterwards.
// Category is free-form here too; it is canonicalized during normalization
// instead of rejected by the validator.
func BuildCandidateJSONSchema() map[string]any {
	props := map[string]any{
		"amount":         map[string]any{"type": []string{"number", "string"}},
		"currency":       map[string]any{"type": []string{"string", "null"}},
		"description":    map[string]any{"type": []string{"string", "null"}},
		"merchant":       map[string]any{"type": []string{"string", "null"}},
		"date":           map[string]any{"type": []string{"string", "null"}},
		"category":       map[string]any{"type": []string{"string", "null"}},
		"payment_method": map[string]any{"type": []string{"string", "null"}},
		"confidence":     map[string]any{"type": []string{"number", "string", "null"}},
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"amount"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
