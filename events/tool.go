package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tidefall/cityscout/cache"
	"github.com/tidefall/cityscout/tools"
)

// ToolName is the registered name of the events search tool.
const ToolName = "search_events"

// DefaultMaxResults is the declared default for max_results.
const DefaultMaxResults = 5

// SearchResult is the structured outcome of one events search. The tool
// always returns this shape; an upstream failure is reported in-band via
// Error so the calling agent can reason about it.
type SearchResult struct {
	City         string   `json:"city"`
	Date         string   `json:"date"`
	SearchQuery  string   `json:"search_query"`
	ResultsCount int      `json:"results_count"`
	Results      []Result `json:"results"`
	Error        string   `json:"error,omitempty"`
}

// NewTool wraps a Client as the search_events tool. When a cache is
// provided, search results are reused for ttl.
func NewTool(client *Client, store *cache.Cache, ttl time.Duration, logger *slog.Logger) tools.Tool {
	if logger == nil {
		logger = slog.Default()
	}

	spec := &tools.ToolSpec{
		Name:        ToolName,
		Description: "Search for events happening today in a specified city using DuckDuckGo",
		InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
			"city": tools.StringProp("The name of the city to search events for"),
			"max_results": tools.IntProp(
				fmt.Sprintf("Maximum number of results to return (default: %d)", DefaultMaxResults),
				DefaultMaxResults,
			),
		}, "city"),
	}

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		city, ok := args["city"].(string)
		if !ok {
			return nil, tools.NewValidationError("argument 'city' must be a string")
		}

		maxResults := intArgument(args["max_results"], DefaultMaxResults)
		if maxResults <= 0 {
			maxResults = DefaultMaxResults
		}

		today := time.Now().Format("2006-01-02")
		query := fmt.Sprintf("events happening today in %s", city)

		cacheKey := ""
		if store != nil {
			cacheKey = fmt.Sprintf("%s:%s:%d:%s", ToolName, strings.ToLower(strings.TrimSpace(city)), maxResults, today)
			if cached, hit := store.Get(cacheKey); hit {
				return cached, nil
			}
		}

		result := &SearchResult{
			City:        city,
			Date:        today,
			SearchQuery: query,
			Results:     []Result{},
		}

		hits, err := client.Search(ctx, query, maxResults)
		if err != nil {
			// Contract: always return a structured result; the failure
			// travels in-band instead of failing the call.
			logger.Warn("events search failed", "city", city, "error", err)
			result.Error = fmt.Sprintf("DuckDuckGo search failed: %v", err)
			return result, nil
		}

		result.Results = hits
		result.ResultsCount = len(hits)
		if store != nil {
			store.Set(cacheKey, result, ttl)
		}
		logger.Info("events search", "city", city, "results", len(hits))
		return result, nil
	}

	return tools.NewAdapter(spec, handler, tools.WithLogger(logger))
}

// intArgument coerces a JSON-decoded argument to int. JSON numbers decode
// as float64; anything else falls back to the declared default.
func intArgument(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}
