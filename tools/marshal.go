package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// MarshalOutput converts a tool's output to its JSON string representation,
// removing surrounding quotes so plain strings pass through unchanged.
func MarshalOutput(logger *slog.Logger, o any) string {
	if str, ok := o.(string); ok {
		return str
	}

	outputBytes, err := json.Marshal(o)
	if err != nil {
		logger.Error("Error marshalling output",
			"error", err,
			"type", fmt.Sprintf("%T", o))
		return ""
	}

	if len(outputBytes) > 1 && outputBytes[0] == '"' && outputBytes[len(outputBytes)-1] == '"' {
		return string(outputBytes[1 : len(outputBytes)-1])
	}

	return string(outputBytes)
}

// ResultText renders a call outcome's payload as the text used in content
// blocks: the in-band error when present, otherwise the marshalled output.
func ResultText(logger *slog.Logger, result *ToolResult) string {
	if result == nil {
		return ""
	}
	if result.Error != nil {
		return *result.Error
	}
	if result.Output != nil {
		return MarshalOutput(logger, result.Output)
	}
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return "Error serializing result"
	}
	return string(resultBytes)
}
