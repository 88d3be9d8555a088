package weather

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidefall/cityscout/cache"
	"github.com/tidefall/cityscout/tools"
)

func TestWeatherToolSpec(t *testing.T) {
	tool := NewTool(NewClient(), nil, 0, nil)
	spec := tool.Spec()

	assert.Equal(t, "get_weather", spec.Name)
	require.NoError(t, tools.ValidateSpec(spec))

	m, err := tools.SchemaToMap(spec.InputSchema)
	require.NoError(t, err)
	props := m["properties"].(map[string]any)
	assert.Contains(t, props, "city")
	assert.Equal(t, []any{"city"}, m["required"])
}

func TestWeatherToolMissingCity(t *testing.T) {
	tool := NewTool(NewClient(), nil, 0, nil)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)

	toolErr := tools.Classify(err)
	assert.Equal(t, tools.KindValidation, toolErr.Kind)
	assert.Contains(t, toolErr.Message, "city")
}

func TestWeatherToolUnknownCityIsValidation(t *testing.T) {
	srv := fakeOpenMeteo(t, map[string][]float64{}, nil)
	defer srv.Close()

	client := NewClient(WithBaseURLs(srv.URL+"/geocode", srv.URL+"/forecast"))
	tool := NewTool(client, nil, 0, nil)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"city":"Atlantis"}`))
	require.Error(t, err)

	toolErr := tools.Classify(err)
	assert.Equal(t, tools.KindValidation, toolErr.Kind)
	assert.Equal(t, "City 'Atlantis' not found", toolErr.Message)
}

func TestWeatherToolSuccess(t *testing.T) {
	srv := fakeOpenMeteo(t, map[string][]float64{"Tokyo": {35.68, 139.69}}, nil)
	defer srv.Close()

	client := NewClient(WithBaseURLs(srv.URL+"/geocode", srv.URL+"/forecast"))
	tool := NewTool(client, nil, 0, nil)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)

	report, ok := result.Output.(*Report)
	require.True(t, ok)
	assert.Equal(t, "Tokyo", report.City)
}

func TestWeatherToolCachesReports(t *testing.T) {
	var calls atomic.Int64
	srv := fakeOpenMeteo(t, map[string][]float64{"Tokyo": {35.68, 139.69}}, &calls)
	defer srv.Close()

	client := NewClient(WithBaseURLs(srv.URL+"/geocode", srv.URL+"/forecast"))
	tool := NewTool(client, cache.New(), time.Minute, nil)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)
	_, err = tool.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load(), "second call served from cache")
}

func TestWeatherToolUpstreamFailure(t *testing.T) {
	// Point at a closed server to force a connection error.
	srv := fakeOpenMeteo(t, nil, nil)
	url := srv.URL
	srv.Close()

	client := NewClient(WithBaseURLs(url+"/geocode", url+"/forecast"))
	tool := NewTool(client, nil, 0, nil)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"city":"Tokyo"}`))
	require.Error(t, err)
	assert.Equal(t, tools.KindUpstream, tools.Classify(err).Kind)
}
