package ai

import (
	"encoding/json"
	"fmt"
)

// checkRequired verifies data is a JSON object carrying every top-level key
// listed in the schema's "required" array.
func checkRequired(schema, data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", ErrMalformedResponse, err)
	}
	if len(schema) == 0 {
		return nil
	}
	var s struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return fmt.Errorf("parsing output schema: %w", err)
	}
	for _, key := range s.Required {
		v, ok := obj[key]
		if !ok || string(v) == "null" {
			return fmt.Errorf("%w: missing required field %q", ErrMalformedResponse, key)
		}
	}
	return nil
}
