package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string, required ...string) Tool {
	spec := &ToolSpec{
		Name:        name,
		Description: "test tool " + name,
		InputSchema: ObjectSchema(map[string]*jsonschema.Schema{
			"city": StringProp("city name"),
		}, required...),
	}
	return NewAdapter(spec, func(_ context.Context, args map[string]any) (any, error) {
		return args, nil
	})
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(echoTool("get_weather")))
	err := reg.Register(echoTool("get_weather"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)

	// The failed registration must leave the registry unchanged.
	assert.Equal(t, 1, reg.Len())
	specs := reg.List()
	require.Len(t, specs, 1)
	assert.Equal(t, "get_weather", specs[0].Name)
}

// staticTool lets tests hand the registry arbitrary descriptors without
// going through the adapter's fail-fast validation.
type staticTool struct {
	spec *ToolSpec
}

func (s *staticTool) Spec() *ToolSpec { return s.spec }

func (s *staticTool) Execute(context.Context, json.RawMessage) (*ToolResult, error) {
	return &ToolResult{}, nil
}

func TestRegistryRegisterInvalidSpec(t *testing.T) {
	reg := NewRegistry()

	bad := &ToolSpec{Name: "has spaces", Description: "x", InputSchema: ObjectSchema(nil)}
	err := reg.Register(&staticTool{spec: bad})
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("not_a_real_tool")
	require.Error(t, err)

	toolErr := Classify(err)
	assert.Equal(t, KindNotFound, toolErr.Kind)
	assert.Contains(t, toolErr.Message, "not_a_real_tool")
	assert.Equal(t, "Tool 'not_a_real_tool' not found", toolErr.Message)
}

func TestRegistryListOrderIsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("get_weather", "city")))
	require.NoError(t, reg.Register(echoTool("search_events", "city")))

	first := reg.List()
	second := reg.List()

	require.Len(t, first, 2)
	assert.Equal(t, "get_weather", first[0].Name)
	assert.Equal(t, "search_events", first[1].Name)

	// Discovery is deterministic: a second listing is identical.
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Description, second[i].Description)
	}
}

func TestRegistryGetReturnsRegisteredTool(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("get_weather", "city")))

	tool, err := reg.Get("get_weather")
	require.NoError(t, err)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Tokyo"}, result.Output)
}
