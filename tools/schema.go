package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema construction helpers. Input contracts are declared explicitly
// rather than inferred from handler signatures, because the declared
// defaults are part of the discovery contract and must survive verbatim.

// ObjectSchema builds an object schema from named properties and the subset
// of property names that are required.
func ObjectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if required == nil {
		required = []string{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// StringProp builds a string property schema.
func StringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

// IntProp builds an integer property schema with a declared default.
func IntProp(description string, defaultValue int) *jsonschema.Schema {
	raw, err := json.Marshal(defaultValue)
	if err != nil {
		// Marshalling an int cannot fail; keep the signature clean.
		panic(fmt.Sprintf("marshal default %d: %v", defaultValue, err))
	}
	return &jsonschema.Schema{
		Type:        "integer",
		Description: description,
		Default:     json.RawMessage(raw),
	}
}

// SchemaToMap converts a schema to its plain map representation for wire
// encoding. It round-trips through JSON to respect the schema's custom
// marshalling, and guarantees "required" is an array rather than null,
// which some MCP clients reject.
func SchemaToMap(s *jsonschema.Schema) (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot convert nil schema to map")
	}

	data, err := s.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	if required, exists := result["required"]; !exists || required == nil {
		result["required"] = []string{}
	}

	return result, nil
}
