// Package websearch queries public web search APIs.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/soundprediction/multirag/pkg/config"
)

// DefaultMaxResults is the number of hits requested when none is configured.
const DefaultMaxResults = 3

// ErrMissingAPIKey is returned by providers that need a key.
var ErrMissingAPIKey = errors.New("web search api key is not set")

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// StatusError reports a non-2xx answer from a search API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s search returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// New builds the configured searcher.
func New(cfg config.WebConfig) (Searcher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "duckduckgo", "":
		return NewDuckDuckGo(cfg), nil
	case "serper":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("serper: %w", ErrMissingAPIKey)
		}
		return NewSerper(cfg), nil
	case "bing":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("bing: %w", ErrMissingAPIKey)
		}
		return NewBing(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported web search provider: %q", cfg.Provider)
	}
}

func newHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "multirag/1.0")
}

func checkResponse(provider string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s search request failed: %w", provider, err)
	}
	if resp.IsError() {
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	return nil
}

func limit(k, configured int) int {
	if k > 0 {
		return k
	}
	if configured > 0 {
		return configured
	}
	return DefaultMaxResults
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
