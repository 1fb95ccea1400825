package crossencoder

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// LocalRerankerClient scores passages by cosine similarity of term frequency
// vectors. CJK text is split into single runes so it scores without a
// tokenizer.
type LocalRerankerClient struct {
	config Config
}

// NewLocalRerankerClient creates a reranker that needs no network.
func NewLocalRerankerClient(config Config) *LocalRerankerClient {
	return &LocalRerankerClient{config: config}
}

// Score implements Client
func (c *LocalRerankerClient) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	q := termFrequencies(query)
	scores := make([]float64, len(passages))
	for i, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = tfCosine(q, termFrequencies(p))
	}
	return scores, nil
}

// Close cleans up any resources used by the client
func (c *LocalRerankerClient) Close() error {
	return nil
}

func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func termFrequencies(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, t := range tokenize(text) {
		tf[t]++
	}
	return tf
}

func tfCosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for t, x := range a {
		na += x * x
		dot += x * b[t]
	}
	for _, y := range b {
		nb += y * y
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
