// Package tavily implements a web search tool backed by the Tavily API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/schema"
)

const (
	// ToolName is the function name advertised to the model.
	ToolName = "tavily_search_results_json"

	DefaultBaseURL    = "https://api.tavily.com"
	DefaultMaxResults = 3
)

// ErrMissingAPIKey is returned when a search is attempted without a key.
var ErrMissingAPIKey = errors.New("tavily: api key is not set")

var inputSchema = schema.Schema{
	"query": {Type: schema.Text(), Description: "search query to look up"},
}

// Result is one search hit as returned to the model.
type Result struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

type apiError struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// Client searches the web through Tavily. It implements ports.Tool.
type Client struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	HTTPClient *http.Client
}

// New creates a client with the default endpoint and result count.
func New(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		MaxResults: DefaultMaxResults,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Definition describes the tool to a function-calling model.
func (c *Client) Definition() domain.Tool {
	return domain.Tool{
		Name:        ToolName,
		Description: "A search engine optimized for comprehensive, accurate, and trusted results. Useful for when you need to answer questions about current events. Input should be a search query.",
		Parameters:  inputSchema.JSONSchema(),
	}
}

// Call decodes {"query": "..."} and returns the results as a JSON array.
func (c *Client) Call(ctx context.Context, arguments string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("tavily: decode arguments: %w", err)
	}
	if err := inputSchema.Validate(args); err != nil {
		return "", fmt.Errorf("tavily: %w", err)
	}

	results, err := c.Search(ctx, args["query"].(string))
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("tavily: encode results: %w", err)
	}
	return string(out), nil
}

// Search runs a basic-depth query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	maxResults := c.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	body, err := json.Marshal(searchRequest{
		APIKey:      c.APIKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tavily: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Detail.Error != "" {
			return nil, fmt.Errorf("tavily: api error (status %d): %s", resp.StatusCode, apiErr.Detail.Error)
		}
		return nil, fmt.Errorf("tavily: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if len(results) == maxResults {
			break
		}
		results = append(results, Result{URL: r.URL, Content: r.Content})
	}
	return results, nil
}
