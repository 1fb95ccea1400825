package websearch

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/soundprediction/multirag/pkg/config"
)

const serperURL = "https://google.serper.dev"

// Serper queries Google through serper.dev.
type Serper struct {
	http       *resty.Client
	maxResults int
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// NewSerper creates a Serper searcher.
func NewSerper(cfg config.WebConfig) *Serper {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = serperURL
	}
	client := newHTTPClient(endpoint, cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-KEY", cfg.APIKey)
	return &Serper{http: client, maxResults: cfg.MaxResults}
}

// Search implements Searcher.
func (s *Serper) Search(ctx context.Context, query string, k int) ([]Result, error) {
	k = limit(k, s.maxResults)

	var body serperResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(serperRequest{Q: query, Num: k}).
		SetResult(&body).
		Post("/search")
	if err := checkResponse("serper", resp, err); err != nil {
		return nil, err
	}

	results := make([]Result, 0, k)
	for _, o := range body.Organic {
		if len(results) >= k {
			break
		}
		results = append(results, Result{Title: o.Title, URL: o.Link, Snippet: o.Snippet})
	}
	return results, nil
}
