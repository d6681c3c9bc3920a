package tavily_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/replan/pkg/tools/tavily"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTavily(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestCall(t *testing.T) {
	srv, got := fakeTavily(t, http.StatusOK, `{"results": [
		{"title": "a", "url": "https://a", "content": "first", "score": 0.9},
		{"title": "b", "url": "https://b", "content": "second", "score": 0.8},
		{"title": "c", "url": "https://c", "content": "third", "score": 0.7},
		{"title": "d", "url": "https://d", "content": "fourth", "score": 0.6}
	]}`)

	c := tavily.New("key")
	c.BaseURL = srv.URL

	out, err := c.Call(context.Background(), `{"query": "2022 NBA Finals MVP"}`)
	require.NoError(t, err)

	var results []tavily.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 3, "capped at the default of 3")
	assert.Equal(t, tavily.Result{URL: "https://a", Content: "first"}, results[0])

	assert.Equal(t, "key", (*got)["api_key"])
	assert.Equal(t, "2022 NBA Finals MVP", (*got)["query"])
	assert.Equal(t, float64(3), (*got)["max_results"])
}

func TestCall_BadArguments(t *testing.T) {
	c := tavily.New("key")
	_, err := c.Call(context.Background(), `{"q": 1}`)
	assert.Error(t, err)

	_, err = c.Call(context.Background(), `not json`)
	assert.Error(t, err)
}

func TestSearch_APIError(t *testing.T) {
	srv, _ := fakeTavily(t, http.StatusUnauthorized, `{"detail": {"error": "invalid api key"}}`)
	c := tavily.New("bad")
	c.BaseURL = srv.URL

	_, err := c.Search(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestSearch_MissingKey(t *testing.T) {
	_, err := tavily.New("").Search(context.Background(), "x")
	assert.ErrorIs(t, err, tavily.ErrMissingAPIKey)
}

func TestDefinition(t *testing.T) {
	def := tavily.New("key").Definition()
	assert.Equal(t, tavily.ToolName, def.Name)
	assert.Equal(t, []string{"query"}, def.Parameters["required"])
}
