package websearch

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/soundprediction/multirag/pkg/config"
)

const duckDuckGoURL = "https://api.duckduckgo.com"

// DuckDuckGo uses the keyless Instant Answer API.
type DuckDuckGo struct {
	http       *resty.Client
	maxResults int
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// NewDuckDuckGo creates a DuckDuckGo searcher.
func NewDuckDuckGo(cfg config.WebConfig) *DuckDuckGo {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = duckDuckGoURL
	}
	return &DuckDuckGo{http: newHTTPClient(endpoint, cfg.Timeout), maxResults: cfg.MaxResults}
}

// Search implements Searcher.
func (d *DuckDuckGo) Search(ctx context.Context, query string, k int) ([]Result, error) {
	k = limit(k, d.maxResults)

	var body ddgResponse
	resp, err := d.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":             query,
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		}).
		SetResult(&body).
		ForceContentType("application/json").
		Get("/")
	if err := checkResponse("duckduckgo", resp, err); err != nil {
		return nil, err
	}

	var results []Result
	if body.AbstractText != "" {
		results = append(results, Result{Title: body.Heading, URL: body.AbstractURL, Snippet: body.AbstractText})
	} else if body.Answer != "" {
		results = append(results, Result{Title: body.Heading, Snippet: body.Answer})
	}
	for _, t := range flattenTopics(body.RelatedTopics) {
		if len(results) >= k {
			break
		}
		results = append(results, Result{Title: topicTitle(t.Text), URL: t.FirstURL, Snippet: t.Text})
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// flattenTopics expands grouped related topics in order.
func flattenTopics(topics []ddgTopic) []ddgTopic {
	var out []ddgTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flattenTopics(t.Topics)...)
			continue
		}
		if t.Text != "" {
			out = append(out, t)
		}
	}
	return out
}

// topicTitle takes the leading phrase of a related topic text.
func topicTitle(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	return truncate(text, 80)
}
