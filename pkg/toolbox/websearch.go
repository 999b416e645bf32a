package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

type TavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type TavilyResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score"`
}

type TavilyResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []TavilyResult `json:"results"`
}

// TavilyClient talks to the Tavily search API.
type TavilyClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewTavilyClient(baseURL, apiKey string, client *http.Client) *TavilyClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &TavilyClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: client,
	}
}

func (c *TavilyClient) Search(ctx context.Context, req TavilyRequest) (*TavilyResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal tavily request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "could not create tavily request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "could not send tavily request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("tavily returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out TavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "could not decode tavily response")
	}
	return &out, nil
}

// WebSearch searches the web through Tavily. Provider failures are reported
// as an empty result so the model can answer without web data.
type WebSearch struct {
	client     *TavilyClient
	maxResults int
}

var _ tools.Tool = (*WebSearch)(nil)

func NewWebSearch(client *TavilyClient, maxResults int) *WebSearch {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &WebSearch{client: client, maxResults: maxResults}
}

func (w *WebSearch) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "web_search",
		Description: fmt.Sprintf("Search the web for a query and return at most %d results.", w.maxResults),
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "The search query.", Required: true},
		},
	}
}

func (w *WebSearch) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	query, _ := args.String("query")
	resp, err := w.client.Search(ctx, TavilyRequest{
		Query:             query,
		MaxResults:        w.maxResults,
		IncludeAnswer:     true,
		IncludeRawContent: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(err).Str("query", query).Msg("web search failed")
		return noWebResults(query), nil
	}

	results := resp.Results
	if len(results) > w.maxResults {
		results = results[:w.maxResults]
	}
	if len(results) == 0 {
		return noWebResults(query), nil
	}
	return render(webResultsTemplate, results)
}

func noWebResults(query string) string {
	return fmt.Sprintf("No web results found for query %q.", query)
}
