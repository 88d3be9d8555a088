package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchSpec() *ToolSpec {
	return &ToolSpec{
		Name:        "search_events",
		Description: "search for events",
		InputSchema: ObjectSchema(map[string]*jsonschema.Schema{
			"city":        StringProp("city name"),
			"max_results": IntProp("max results", 5),
		}, "city"),
	}
}

func TestAdapterMissingRequiredArgument(t *testing.T) {
	adapter := NewAdapter(searchSpec(), func(_ context.Context, args map[string]any) (any, error) {
		t.Fatal("handler must not run on validation failure")
		return nil, nil
	})

	tests := []struct {
		name string
		args string
	}{
		{"no arguments", `{}`},
		{"nil arguments", ``},
		{"null arguments", `null`},
		{"empty string", `{"city":""}`},
		{"explicit null", `{"city":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.Execute(context.Background(), json.RawMessage(tt.args))
			require.Error(t, err)

			toolErr := Classify(err)
			assert.Equal(t, KindValidation, toolErr.Kind)
			assert.Contains(t, toolErr.Message, "city")
			assert.Equal(t, "Missing required argument: city", toolErr.Message)
		})
	}
}

func TestAdapterAppliesDeclaredDefaults(t *testing.T) {
	var seen map[string]any
	adapter := NewAdapter(searchSpec(), func(_ context.Context, args map[string]any) (any, error) {
		seen = args
		return "ok", nil
	})

	_, err := adapter.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "Tokyo", seen["city"])
	assert.Equal(t, float64(5), seen["max_results"])
}

func TestAdapterDoesNotOverrideProvidedOptional(t *testing.T) {
	var seen map[string]any
	adapter := NewAdapter(searchSpec(), func(_ context.Context, args map[string]any) (any, error) {
		seen = args
		return "ok", nil
	})

	_, err := adapter.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo","max_results":2}`))
	require.NoError(t, err)
	assert.Equal(t, float64(2), seen["max_results"])
}

func TestAdapterToleratesUnknownArguments(t *testing.T) {
	var seen map[string]any
	adapter := NewAdapter(searchSpec(), func(_ context.Context, args map[string]any) (any, error) {
		seen = args
		return "ok", nil
	})

	result, err := adapter.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo","future_flag":true}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, true, seen["future_flag"])
}

func TestAdapterInvalidArgumentJSON(t *testing.T) {
	adapter := NewAdapter(searchSpec(), func(_ context.Context, args map[string]any) (any, error) {
		return "ok", nil
	})

	_, err := adapter.Execute(context.Background(), json.RawMessage(`[1,2,3]`))
	require.Error(t, err)
	assert.Equal(t, KindValidation, Classify(err).Kind)
}

func TestAdapterClassifiesHandlerErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"classified validation", NewValidationError("bad input"), KindValidation},
		{"classified upstream", NewUpstreamError("api down", errors.New("boom")), KindUpstream},
		{"raw error becomes internal", fmt.Errorf("unexpected"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewAdapter(searchSpec(), func(_ context.Context, _ map[string]any) (any, error) {
				return nil, tt.err
			})

			_, err := adapter.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, Classify(err).Kind)
		})
	}
}

func TestAdapterSanitizesRawHandlerErrors(t *testing.T) {
	adapter := NewAdapter(searchSpec(), func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("password=hunter2 connection refused")
	})

	_, err := adapter.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.Error(t, err)

	toolErr := Classify(err)
	assert.Equal(t, KindInternal, toolErr.Kind)
	assert.Equal(t, "tool search_events failed", toolErr.Message)
	assert.ErrorContains(t, toolErr.Cause, "connection refused")
}

func TestAdapterContainsHandlerPanic(t *testing.T) {
	adapter := NewAdapter(searchSpec(), func(_ context.Context, _ map[string]any) (any, error) {
		panic("tool bug")
	})

	result, err := adapter.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, KindInternal, Classify(err).Kind)
}

func TestNewAdapterPanicsOnInvalidSpec(t *testing.T) {
	assert.Panics(t, func() {
		NewAdapter(&ToolSpec{Name: ""}, func(_ context.Context, _ map[string]any) (any, error) {
			return nil, nil
		})
	})
}
