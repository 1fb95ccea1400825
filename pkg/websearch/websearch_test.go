package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/multirag/pkg/config"
)

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gypsum", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Heading":      "Gypsum",
			"AbstractText": "Gypsum is a soft sulfate mineral.",
			"AbstractURL":  "https://en.wikipedia.org/wiki/Gypsum",
			"RelatedTopics": []map[string]any{
				{"Text": "Plaster - a building material", "FirstURL": "https://duckduckgo.com/Plaster"},
				{"Name": "Group", "Topics": []map[string]any{
					{"Text": "Selenite - a variety of gypsum", "FirstURL": "https://duckduckgo.com/Selenite"},
					{"Text": "Alabaster - fine grained gypsum", "FirstURL": "https://duckduckgo.com/Alabaster"},
				}},
			},
		})
	}))
	defer srv.Close()

	s := NewDuckDuckGo(config.WebConfig{Endpoint: srv.URL, MaxResults: 3})
	results, err := s.Search(context.Background(), "gypsum", 0)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, Result{Title: "Gypsum", URL: "https://en.wikipedia.org/wiki/Gypsum", Snippet: "Gypsum is a soft sulfate mineral."}, results[0])
	assert.Equal(t, "Plaster", results[1].Title)
	assert.Equal(t, "Selenite", results[2].Title)
}

func TestSerperSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		var req serperRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gypsum price", req.Q)
		assert.Equal(t, 2, req.Num)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"A","link":"https://a.example","snippet":"a"},
			{"title":"B","link":"https://b.example","snippet":"b"},
			{"title":"C","link":"https://c.example","snippet":"c"}]}`))
	}))
	defer srv.Close()

	s := NewSerper(config.WebConfig{Endpoint: srv.URL, APIKey: "secret"})
	results, err := s.Search(context.Background(), "gypsum price", 2)
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{Title: "A", URL: "https://a.example", Snippet: "a"},
		{Title: "B", URL: "https://b.example", Snippet: "b"},
	}, results)
}

func TestBingSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7.0/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"webPages":{"value":[{"name":"Gypsum","url":"https://g.example","snippet":"soft"}]}}`))
	}))
	defer srv.Close()

	results, err := NewBing(config.WebConfig{Endpoint: srv.URL, APIKey: "key"}).Search(context.Background(), "gypsum", 0)
	require.NoError(t, err)
	assert.Equal(t, []Result{{Title: "Gypsum", URL: "https://g.example", Snippet: "soft"}}, results)
}

func TestSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(config.WebConfig{Endpoint: srv.URL}).Search(context.Background(), "q", 3)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestNewProviders(t *testing.T) {
	s, err := New(config.WebConfig{})
	require.NoError(t, err)
	assert.IsType(t, &DuckDuckGo{}, s)

	_, err = New(config.WebConfig{Provider: "serper"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	s, err = New(config.WebConfig{Provider: "Bing", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Bing{}, s)

	_, err = New(config.WebConfig{Provider: "altavista"})
	assert.Error(t, err)
}
