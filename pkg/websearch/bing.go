package websearch

import (
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/soundprediction/multirag/pkg/config"
)

const bingURL = "https://api.bing.microsoft.com"

// Bing uses the Bing Web Search v7 API.
type Bing struct {
	http       *resty.Client
	maxResults int
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// NewBing creates a Bing searcher.
func NewBing(cfg config.WebConfig) *Bing {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = bingURL
	}
	client := newHTTPClient(endpoint, cfg.Timeout).
		SetHeader("Ocp-Apim-Subscription-Key", cfg.APIKey)
	return &Bing{http: client, maxResults: cfg.MaxResults}
}

// Search implements Searcher.
func (b *Bing) Search(ctx context.Context, query string, k int) ([]Result, error) {
	k = limit(k, b.maxResults)

	var body bingResponse
	resp, err := b.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"count": strconv.Itoa(k),
		}).
		SetResult(&body).
		Get("/v7.0/search")
	if err := checkResponse("bing", resp, err); err != nil {
		return nil, err
	}

	results := make([]Result, 0, k)
	for _, v := range body.WebPages.Value {
		if len(results) >= k {
			break
		}
		results = append(results, Result{Title: v.Name, URL: v.URL, Snippet: v.Snippet})
	}
	return results, nil
}
