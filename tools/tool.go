// Package tools defines the callable capabilities exposed by the server:
// tool descriptors with JSON-Schema input contracts, the registry that
// holds them, and the adapter layer that validates arguments and
// normalizes failures before they reach any transport.
//
// # Basic Usage
//
// Declare a schema, wrap a handler with an adapter, and register it:
//
//	spec := &tools.ToolSpec{
//	    Name:        "get_weather",
//	    Description: "Get current weather information for any city in the world",
//	    InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
//	        "city": tools.StringProp("The name of the city to get weather for"),
//	    }, "city"),
//	}
//
//	tool := tools.NewAdapter(spec, func(ctx context.Context, args map[string]any) (any, error) {
//	    return lookup(ctx, args["city"].(string))
//	})
//
//	reg := tools.NewRegistry()
//	if err := reg.Register(tool); err != nil {
//	    // duplicate name
//	}
//
// The registry is built once at startup and read-only afterwards, so it is
// safe to share across concurrently handled requests without locking.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is the interface all callable capabilities implement.
type Tool interface {
	// Spec returns the tool's descriptor: name, description, input schema.
	// It must be pure and deterministic; the descriptor is immutable once
	// the tool is registered.
	Spec() *ToolSpec

	// Execute runs the tool with raw JSON arguments and returns a result.
	// Implementations must classify every failure as a *tools.Error; a raw
	// implementation error must never escape this boundary.
	Execute(ctx context.Context, args json.RawMessage) (*ToolResult, error)
}

// ToolSpec describes one callable capability.
type ToolSpec struct {
	// Name is the unique, stable string key of the tool.
	Name string `json:"name"`

	// Description is free text shown to agents during discovery.
	Description string `json:"description"`

	// InputSchema is the JSON-Schema input contract: named parameters with
	// primitive types, optional defaults, and a subset marked required.
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// ToolResult is the successful half of a call outcome. Output is opaque to
// the dispatcher beyond being serializable; Error carries an in-band failure
// for tools whose contract promises an always-structured result.
type ToolResult struct {
	Output any
	Error  *string
}

const maxToolNameLength = 64

// ValidateSpec checks a descriptor before registration. Names follow the MCP
// tool-name rules: non-empty, at most 64 characters, restricted charset.
func ValidateSpec(spec *ToolSpec) error {
	if spec == nil {
		return fmt.Errorf("tool spec cannot be nil")
	}
	if spec.Name == "" {
		return fmt.Errorf("tool spec must include a non-empty name")
	}
	if len(spec.Name) > maxToolNameLength {
		return fmt.Errorf("tool name must not exceed %d characters", maxToolNameLength)
	}
	for _, char := range spec.Name {
		if (char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-' {
			continue
		}
		return fmt.Errorf("tool name must contain only alphanumeric characters, underscores, or hyphens")
	}
	if spec.Description == "" {
		return fmt.Errorf("tool spec description cannot be empty")
	}
	if spec.InputSchema == nil {
		return fmt.Errorf("tool spec input schema cannot be nil")
	}
	return nil
}
