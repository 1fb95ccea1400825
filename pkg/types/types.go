package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors
var (
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrUnknownBackend  = errors.New("unknown backend kind")
	ErrInvalidTopK     = errors.New("top_k must be positive")
	ErrQueryTooLong    = errors.New("query exceeds maximum length")
	ErrNoBackendsReady = errors.New("no retrieval backends configured")
)

// MaxQueryLength bounds the accepted question size in bytes.
const MaxQueryLength = 8192

// BackendKind identifies an evidence source.
type BackendKind string

const (
	BackendVector BackendKind = "vector"
	BackendGraph  BackendKind = "graph"
	BackendWeb    BackendKind = "web"
)

// AllBackends lists every backend kind in canonical priority order:
// graph evidence is the most authoritative, web the least.
var AllBackends = []BackendKind{BackendGraph, BackendVector, BackendWeb}

// Priority returns the canonical ordering position of the kind. Unknown kinds
// sort last.
func (k BackendKind) Priority() int {
	switch k {
	case BackendGraph:
		return 0
	case BackendVector:
		return 1
	case BackendWeb:
		return 2
	default:
		return len(AllBackends)
	}
}

// Valid reports whether k is one of the known backend kinds.
func (k BackendKind) Valid() bool {
	return k.Priority() < len(AllBackends)
}

// ParseBackendKind converts a string such as "Vector" into a BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	k := BackendKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
	return k, nil
}

// Provenance keys attached to Evidence.
const (
	ProvSubQuery         = "sub_query"
	ProvSubQueryIndex    = "sub_query_index"
	ProvRank             = "rank"
	ProvSimilarity       = "similarity"
	ProvRerank           = "rerank"
	ProvEntities         = "entities"
	ProvEntityMatchCount = "entity_match_count"
	ProvTripleCount      = "triple_count"
	ProvURL              = "url"
	ProvTitle            = "title"
	ProvMergedScore      = "merged_score"
)

// Rerank status values stored under ProvRerank.
const (
	RerankOK       = "ok"
	RerankDegraded = "degraded"
	RerankDisabled = "disabled"
)

// Evidence is a scored, provenance-tagged unit of retrieved text.
type Evidence struct {
	Kind       BackendKind    `json:"backend" yaml:"backend"`
	Text       string         `json:"text" yaml:"text"`
	Score      *float64       `json:"score,omitempty" yaml:"score,omitempty"`
	Provenance map[string]any `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// Clone returns a copy of e whose provenance map can be modified without
// affecting the original.
func (e Evidence) Clone() Evidence {
	out := e
	if e.Score != nil {
		s := *e.Score
		out.Score = &s
	}
	if e.Provenance != nil {
		out.Provenance = make(map[string]any, len(e.Provenance))
		for k, v := range e.Provenance {
			out.Provenance[k] = v
		}
	}
	return out
}

// WithScore returns a copy of e carrying score s.
func (e Evidence) WithScore(s float64) Evidence {
	out := e.Clone()
	out.Score = &s
	return out
}

// RankValue returns the native rank recorded in provenance, or 0.
func (e Evidence) RankValue() int {
	if v, ok := e.Provenance[ProvRank].(int); ok {
		return v
	}
	return 0
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// RouteDecision is the router's classification of a query.
// If Direct is set, Backends is ignored and no retrieval is performed.
type RouteDecision struct {
	Backends []BackendKind `json:"backends" yaml:"backends"`
	Direct   bool          `json:"direct" yaml:"direct"`
	// Fallback is set when the classifier failed and the default route was used.
	Fallback bool   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Has reports whether the decision selects backend k.
func (d RouteDecision) Has(k BackendKind) bool {
	for _, b := range d.Backends {
		if b == k {
			return true
		}
	}
	return false
}

// FallbackRoute is the decision used when classification fails: internal
// knowledge sources only, never web and never direct answer.
func FallbackRoute(reason string) RouteDecision {
	return RouteDecision{
		Backends: []BackendKind{BackendVector, BackendGraph},
		Fallback: true,
		Reason:   reason,
	}
}

// AnswerOptions holds per-request configuration.
type AnswerOptions struct {
	TopK         int    `json:"top_k"`
	EnableVector bool   `json:"enable_vector"`
	EnableGraph  bool   `json:"enable_graph"`
	EnableWeb    bool   `json:"enable_web"`
	RequestID    string `json:"request_id,omitempty"`
}

// DefaultAnswerOptions returns the defaults of a chat request: vector and
// graph enabled, web disabled, three evidence items per backend.
func DefaultAnswerOptions() AnswerOptions {
	return AnswerOptions{
		TopK:         3,
		EnableVector: true,
		EnableGraph:  true,
		EnableWeb:    false,
	}
}

// Enabled reports whether backend k is enabled for this request.
func (o AnswerOptions) Enabled(k BackendKind) bool {
	switch k {
	case BackendVector:
		return o.EnableVector
	case BackendGraph:
		return o.EnableGraph
	case BackendWeb:
		return o.EnableWeb
	default:
		return false
	}
}

// ValidateQuery checks a question before it enters the engine.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	if len(query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	return nil
}

// SynthesisPath names the terminal generation path that produced an answer.
type SynthesisPath string

const (
	PathDirect     SynthesisPath = "direct"
	PathNoBackends SynthesisPath = "no_backends"
	PathNoEvidence SynthesisPath = "no_evidence"
	PathContext    SynthesisPath = "context"
	PathApology    SynthesisPath = "apology"
	PathRejected   SynthesisPath = "rejected"
)

// AnswerResult is the immutable response of the engine.
type AnswerResult struct {
	Answer    string        `json:"answer" yaml:"answer"`
	Evidence  []Evidence    `json:"evidence" yaml:"evidence"`
	Trace     []string      `json:"trace" yaml:"trace"`
	Latency   time.Duration `json:"latency" yaml:"latency"`
	RequestID string        `json:"request_id" yaml:"request_id"`
	Route     RouteDecision `json:"route" yaml:"route"`
	Path      SynthesisPath `json:"path" yaml:"path"`
}

// CountByKind returns the number of evidence items per backend.
func (r *AnswerResult) CountByKind() map[BackendKind]int {
	counts := make(map[BackendKind]int)
	for _, e := range r.Evidence {
		counts[e.Kind]++
	}
	return counts
}
