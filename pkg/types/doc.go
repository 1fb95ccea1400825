// Package types defines the core data types shared by the multirag packages.
//
// This package contains the fundamental types used throughout multirag:
//   - Evidence: a scored, provenance-tagged unit of retrieved text
//   - BackendKind: the evidence source (vector, graph, web)
//   - RouteDecision: which backends a query is dispatched to, or direct answer
//   - AnswerOptions / AnswerResult: the public request and response of the engine
//   - Message / Response: the language model message types
//
// # Evidence
//
// Evidence is created fully structured by each retrieval adapter. The backend
// kind and score are explicit fields; nothing downstream parses the text to
// recover them:
//
//	ev := types.Evidence{
//	    Kind:       types.BackendVector,
//	    Text:       "Gypsum is used in plaster and drywall.",
//	    Score:      types.Float64(0.92),
//	    Provenance: map[string]any{"rank": 0},
//	}
//
// # Request context
//
// The request id is carried in the context so that logs and traces of every
// stage can be correlated:
//
//	ctx = types.WithRequestID(ctx, "req-1")
//	id := types.RequestIDFromContext(ctx)
package types
