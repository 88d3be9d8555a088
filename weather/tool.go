package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tidefall/cityscout/cache"
	"github.com/tidefall/cityscout/tools"
)

// ToolName is the registered name of the weather tool.
const ToolName = "get_weather"

// NewTool wraps a Client as the get_weather tool. When a cache is provided,
// reports are reused for ttl before the upstream APIs are called again.
func NewTool(client *Client, store *cache.Cache, ttl time.Duration, logger *slog.Logger) tools.Tool {
	if logger == nil {
		logger = slog.Default()
	}

	spec := &tools.ToolSpec{
		Name:        ToolName,
		Description: "Get current weather information for any city in the world",
		InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
			"city": tools.StringProp("The name of the city to get weather for"),
		}, "city"),
	}

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		city, ok := args["city"].(string)
		if !ok {
			return nil, tools.NewValidationError("argument 'city' must be a string")
		}

		cacheKey := ""
		if store != nil {
			cacheKey = ToolName + ":" + strings.ToLower(strings.TrimSpace(city))
			if cached, hit := store.Get(cacheKey); hit {
				return cached, nil
			}
		}

		report, err := client.CurrentWeather(ctx, city)
		if err != nil {
			var notFound *ErrCityNotFound
			if errors.As(err, &notFound) {
				// Unknown city is a caller problem, not an upstream fault.
				return nil, tools.NewValidationError(notFound.Error())
			}
			return nil, tools.NewUpstreamError(fmt.Sprintf("weather lookup failed: %v", err), err)
		}

		if store != nil {
			store.Set(cacheKey, report, ttl)
		}
		logger.Info("weather lookup", "city", report.City, "country", report.Country)
		return report, nil
	}

	return tools.NewAdapter(spec, handler, tools.WithLogger(logger))
}
