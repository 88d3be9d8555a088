package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidefall/cityscout/tools"
)

// newTestRegistry builds the two-tool scenario used across the protocol
// tests: get_weather requires city; search_events requires city and
// defaults max_results to 5. Handlers record the arguments they receive.
func newTestRegistry(t *testing.T, calls *[]map[string]any) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()

	weatherSpec := &tools.ToolSpec{
		Name:        "get_weather",
		Description: "Get current weather information for any city in the world",
		InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
			"city": tools.StringProp("The name of the city to get weather for"),
		}, "city"),
	}
	require.NoError(t, reg.Register(tools.NewAdapter(weatherSpec, func(_ context.Context, args map[string]any) (any, error) {
		if calls != nil {
			*calls = append(*calls, args)
		}
		return map[string]any{"city": args["city"], "temperature": 21.5}, nil
	})))

	eventsSpec := &tools.ToolSpec{
		Name:        "search_events",
		Description: "Search for events happening today in a specified city",
		InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
			"city":        tools.StringProp("The name of the city to search events for"),
			"max_results": tools.IntProp("Maximum number of results to return", 5),
		}, "city"),
	}
	require.NoError(t, reg.Register(tools.NewAdapter(eventsSpec, func(_ context.Context, args map[string]any) (any, error) {
		if calls != nil {
			*calls = append(*calls, args)
		}
		return map[string]any{"city": args["city"], "results": []any{}}, nil
	})))

	return reg
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t, nil))

	_, err := d.Dispatch(context.Background(), "not_a_real_tool", json.RawMessage(`{}`))
	require.Error(t, err)

	toolErr := tools.Classify(err)
	assert.Equal(t, tools.KindNotFound, toolErr.Kind)
	assert.Equal(t, "Tool 'not_a_real_tool' not found", toolErr.Message)
}

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t, nil))

	result, err := d.Dispatch(context.Background(), "get_weather", json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)
	require.NotNil(t, result)

	out, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Tokyo", out["city"])
}

func TestDispatchFillsDefaults(t *testing.T) {
	var calls []map[string]any
	d := NewDispatcher(newTestRegistry(t, &calls))

	_, err := d.Dispatch(context.Background(), "search_events", json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, float64(5), calls[0]["max_results"])
}

func TestDispatchValidationFailure(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t, nil))

	_, err := d.Dispatch(context.Background(), "get_weather", json.RawMessage(`{}`))
	require.Error(t, err)

	toolErr := tools.Classify(err)
	assert.Equal(t, tools.KindValidation, toolErr.Kind)
	assert.Contains(t, toolErr.Message, "city")
}

func TestDispatchConcurrent(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t, nil))

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := d.Dispatch(context.Background(), "get_weather", json.RawMessage(`{"city":"Tokyo"}`))
			done <- err
		}()
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-done)
	}
}

func TestListTools(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t, nil))

	descriptions, err := d.ListTools()
	require.NoError(t, err)
	require.Len(t, descriptions, 2)

	assert.Equal(t, "get_weather", descriptions[0].Name)
	assert.Equal(t, "search_events", descriptions[1].Name)
	assert.NotNil(t, descriptions[0].InputSchema["required"])
}

func TestDispatchWithObserver(t *testing.T) {
	observer, err := NewDispatchObserver()
	require.NoError(t, err)

	d := NewDispatcher(newTestRegistry(t, nil), WithObserver(observer))

	// The global providers are no-ops; this just exercises the
	// observation path on both outcomes.
	_, err = d.Dispatch(context.Background(), "get_weather", json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*tools.Error)))
}
