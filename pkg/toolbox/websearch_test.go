package toolbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

func TestWebSearchFormatsDocuments(t *testing.T) {
	var got TavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"query": "go", "results": [
			{"url": "https://a.example", "content": "  A text ", "score": 0.9},
			{"url": "https://b.example", "content": "", "raw_content": "B raw", "score": 0.5},
			{"url": "https://c.example", "content": "C", "score": 0.1},
			{"url": "https://d.example", "content": "D", "score": 0.05}
		]}`)
	}))
	defer srv.Close()

	ws := NewWebSearch(NewTavilyClient(srv.URL, "tvly-test", srv.Client()), 3)
	out, err := ws.Execute(context.Background(), tools.Arguments{"query": "go"})
	require.NoError(t, err)

	assert.Equal(t, "go", got.Query)
	assert.Equal(t, 3, got.MaxResults)
	assert.True(t, got.IncludeAnswer)
	assert.True(t, got.IncludeRawContent)

	expected := "<Document source=\"https://a.example\" score=\"0.9\">\nA text\n</Document>" +
		"\n\n---\n\n" +
		"<Document source=\"https://b.example\" score=\"0.5\">\nB raw\n</Document>" +
		"\n\n---\n\n" +
		"<Document source=\"https://c.example\" score=\"0.1\">\nC\n</Document>"
	assert.Equal(t, expected, out)
}

func TestWebSearchProviderErrorIsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ws := NewWebSearch(NewTavilyClient(srv.URL, "k", srv.Client()), 3)
	out, err := ws.Execute(context.Background(), tools.Arguments{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, `No web results found for query "anything".`, out)
}

func TestTavilyClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTavilyClient(srv.URL, "k", nil).Search(context.Background(), TavilyRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
