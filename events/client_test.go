package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSearchAPI(t *testing.T, topics []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"Heading":       "",
			"AbstractText":  "",
			"RelatedTopics": topics,
		})
	}))
}

func TestSearchMapsTopics(t *testing.T) {
	srv := fakeSearchAPI(t, []map[string]any{
		{"Text": "Jazz Night - live music downtown", "FirstURL": "https://example.com/jazz"},
		{"Text": "Food Festival - street food market", "FirstURL": "https://example.com/food"},
	})
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	results, err := c.Search(context.Background(), "events happening today in Tokyo", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Jazz Night", results[0].Title)
	assert.Equal(t, "Jazz Night - live music downtown", results[0].Snippet)
	assert.Equal(t, "https://example.com/jazz", results[0].URL)
}

func TestSearchRespectsMaxResults(t *testing.T) {
	topics := make([]map[string]any, 10)
	for i := range topics {
		topics[i] = map[string]any{"Text": "Event - something", "FirstURL": "https://example.com"}
	}
	srv := fakeSearchAPI(t, topics)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	results, err := c.Search(context.Background(), "events", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchFlattensNestedTopics(t *testing.T) {
	srv := fakeSearchAPI(t, []map[string]any{
		{
			"Topics": []map[string]any{
				{"Text": "Nested Event - inside a group", "FirstURL": "https://example.com/nested"},
			},
		},
	})
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	results, err := c.Search(context.Background(), "events", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Nested Event", results[0].Title)
}

func TestSearchUpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	_, err := c.Search(context.Background(), "events", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
