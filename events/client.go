// Package events provides event discovery backed by the DuckDuckGo
// instant-answer API and exposes it as the search_events tool.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultSearchURL = "https://api.duckduckgo.com/"

// Client calls the DuckDuckGo instant-answer API.
type Client struct {
	searchURL  string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the search endpoint, mainly for tests.
func WithBaseURL(searchURL string) ClientOption {
	return func(c *Client) {
		c.searchURL = searchURL
	}
}

// WithHTTPClient overrides the HTTP client. The provided client must be
// safe for concurrent use.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient constructs a Client against the public endpoint with a
// 10 second request timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		searchURL:  defaultSearchURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

type searchResponse struct {
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	Heading       string         `json:"Heading"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

// relatedTopic is either a leaf result or a named group of nested topics.
type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

// Search runs a text query and returns up to maxResults hits.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("no_redirect", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from search API", resp.StatusCode)
	}

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]Result, 0, maxResults)
	if response.AbstractText != "" {
		results = append(results, Result{
			Title:   response.Heading,
			Snippet: response.AbstractText,
			URL:     response.AbstractURL,
		})
	}
	collectTopics(response.RelatedTopics, &results, maxResults)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// collectTopics flattens the topic tree depth-first until limit is reached.
func collectTopics(topics []relatedTopic, results *[]Result, limit int) {
	for _, topic := range topics {
		if len(*results) >= limit {
			return
		}
		if len(topic.Topics) > 0 {
			collectTopics(topic.Topics, results, limit)
			continue
		}
		if topic.Text == "" {
			continue
		}
		*results = append(*results, Result{
			Title:   topicTitle(topic.Text),
			Snippet: topic.Text,
			URL:     topic.FirstURL,
		})
	}
}

// topicTitle extracts the leading phrase of a topic text. Instant-answer
// topics read "Title - description"; fall back to the whole text.
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	return text
}
