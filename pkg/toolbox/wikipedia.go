package toolbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

const noWikiResults = "No good Wikipedia Search Result was found"

// WikiPage is one article excerpt.
type WikiPage struct {
	Title   string
	Source  string
	Content string
}

// WikiClient queries the MediaWiki action API of one wiki.
type WikiClient struct {
	SiteURL    string
	HTTPClient *http.Client
}

func NewWikiClient(siteURL string, client *http.Client) *WikiClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &WikiClient{SiteURL: strings.TrimRight(siteURL, "/"), HTTPClient: client}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractsResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

func (c *WikiClient) get(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SiteURL+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "could not create wikipedia request")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not send wikipedia request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("wikipedia returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "could not decode wikipedia response")
	}
	return nil
}

// Search returns up to limit pages for query. With intro set only the lead
// section of each page is returned.
func (c *WikiClient) Search(ctx context.Context, query string, limit int, intro bool) ([]WikiPage, error) {
	var sr wikiSearchResponse
	err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(limit)},
	}, &sr)
	if err != nil {
		return nil, err
	}
	if len(sr.Query.Search) == 0 {
		return nil, nil
	}

	titles := make([]string, 0, len(sr.Query.Search))
	snippets := map[string]string{}
	for _, s := range sr.Query.Search {
		titles = append(titles, s.Title)
		snippets[s.Title] = stripHTML(s.Snippet)
	}

	var extracts map[string]string
	if intro {
		extracts, err = c.extracts(ctx, titles, true)
	} else {
		extracts, err = c.fullExtracts(ctx, titles)
	}
	if err != nil {
		return nil, err
	}

	pages := make([]WikiPage, 0, len(titles))
	for _, t := range titles {
		content := extracts[t]
		if strings.TrimSpace(content) == "" {
			content = snippets[t]
		}
		pages = append(pages, WikiPage{
			Title:   t,
			Source:  c.SiteURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(t, " ", "_")),
			Content: content,
		})
	}
	return pages, nil
}

// extracts fetches the plain text extracts of titles in one request.
// MediaWiki only returns several extracts per request when intro is set.
func (c *WikiClient) extracts(ctx context.Context, titles []string, intro bool) (map[string]string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {strings.Join(titles, "|")},
	}
	if intro {
		params.Set("exintro", "1")
	}
	var er wikiExtractsResponse
	if err := c.get(ctx, params, &er); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, p := range er.Query.Pages {
		if !p.Missing {
			out[p.Title] = p.Extract
		}
	}
	return out, nil
}

// fullExtracts fetches whole articles, one title per request.
func (c *WikiClient) fullExtracts(ctx context.Context, titles []string) (map[string]string, error) {
	contents := make([]string, len(titles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, t := range titles {
		i, t := i, t
		g.Go(func() error {
			ex, err := c.extracts(gctx, []string{t}, false)
			if err != nil {
				return err
			}
			// with redirects the returned title can differ from the requested one
			if text, ok := ex[t]; ok {
				contents[i] = text
				return nil
			}
			for _, text := range ex {
				contents[i] = text
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(titles))
	for i, t := range titles {
		out[t] = contents[i]
	}
	return out, nil
}

func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// WikiSearch returns full article excerpts as Document blocks.
type WikiSearch struct {
	client   *WikiClient
	maxDocs  int
	maxChars int
}

var _ tools.Tool = (*WikiSearch)(nil)

func NewWikiSearch(client *WikiClient, maxDocs, maxChars int) *WikiSearch {
	if maxDocs <= 0 {
		maxDocs = 2
	}
	return &WikiSearch{client: client, maxDocs: maxDocs, maxChars: maxChars}
}

func (w *WikiSearch) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "wiki_search",
		Description: "Search Wikipedia for a query and return maximum " + strconv.Itoa(w.maxDocs) + " results.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "The search query.", Required: true},
		},
	}
}

func (w *WikiSearch) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	query, _ := args.String("query")
	pages, err := w.client.Search(ctx, query, w.maxDocs, false)
	if err != nil {
		return "", tools.NewProviderError("wikipedia", err)
	}
	if len(pages) == 0 {
		return noWikiResults, nil
	}
	return render(wikiDocumentsTemplate, struct {
		Docs     []WikiPage
		MaxChars int
	}{pages, w.maxChars})
}

// WikiSummary returns the lead section of the best matching pages.
type WikiSummary struct {
	client  *WikiClient
	maxDocs int
}

var _ tools.Tool = (*WikiSummary)(nil)

func NewWikiSummary(client *WikiClient, maxDocs int) *WikiSummary {
	if maxDocs <= 0 {
		maxDocs = 2
	}
	return &WikiSummary{client: client, maxDocs: maxDocs}
}

func (w *WikiSummary) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "wiki_summary",
		Description: "Look up a subject on Wikipedia and return the summary of the best matching pages.",
		Parameters: []tools.Parameter{
			{Name: "query", Type: tools.TypeString, Description: "query to look up on wikipedia", Required: true},
		},
	}
}

func (w *WikiSummary) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	query, _ := args.String("query")
	pages, err := w.client.Search(ctx, query, w.maxDocs, true)
	if err != nil {
		return "", tools.NewProviderError("wikipedia", err)
	}
	if len(pages) == 0 {
		return noWikiResults, nil
	}
	return render(wikiSummaryTemplate, pages)
}
