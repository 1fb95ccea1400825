package multirag

import (
	"fmt"
	"sync"

	"github.com/soundprediction/multirag/pkg/retrieval"
	"github.com/soundprediction/multirag/pkg/types"
)

// stage is a state of the orchestration state machine.
type stage int

const (
	stageRouting stage = iota
	stageDecomposing
	stageRetrieving
	stageReranking
	stageSynthesizing
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageRouting:
		return "routing"
	case stageDecomposing:
		return "decomposing"
	case stageRetrieving:
		return "retrieving"
	case stageReranking:
		return "reranking"
	case stageSynthesizing:
		return "synthesizing"
	case stageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// aggregateState is the working state of one request. Query, options and
// request id are fixed at creation; evidence and trace only grow.
type aggregateState struct {
	requestID string
	query     string
	opts      types.AnswerOptions

	stage      stage
	visited    []stage
	decision   types.RouteDecision
	plan       retrieval.Plan
	subQueries []string
	noBackends bool

	mu       sync.Mutex
	evidence []types.Evidence
	trace    []string

	answer string
	path   types.SynthesisPath
}

func newAggregateState(requestID, query string, opts types.AnswerOptions) *aggregateState {
	return &aggregateState{
		requestID: requestID,
		query:     query,
		opts:      opts,
		stage:     stageRouting,
		visited:   []stage{stageRouting},
	}
}

// enter moves the machine forward. Stages can be skipped, never revisited.
func (s *aggregateState) enter(next stage) {
	if next <= s.stage {
		return
	}
	s.stage = next
	s.visited = append(s.visited, next)
}

// tracef appends a trace entry prefixed with the request id.
func (s *aggregateState) tracef(format string, args ...any) {
	entry := fmt.Sprintf("[%s] %s", s.requestID, fmt.Sprintf(format, args...))
	s.mu.Lock()
	s.trace = append(s.trace, entry)
	s.mu.Unlock()
}

func (s *aggregateState) appendEvidence(evidence ...types.Evidence) {
	s.mu.Lock()
	s.evidence = append(s.evidence, evidence...)
	s.mu.Unlock()
}

// replaceEvidence swaps in a reordered copy. The previous slice is not mutated.
func (s *aggregateState) replaceEvidence(evidence []types.Evidence) {
	s.mu.Lock()
	s.evidence = evidence
	s.mu.Unlock()
}

func (s *aggregateState) snapshot() ([]types.Evidence, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Evidence(nil), s.evidence...), append([]string(nil), s.trace...)
}
