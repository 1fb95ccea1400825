// Package graphstore looks up one-hop neighbourhoods of named entities in a
// knowledge graph.
package graphstore

import (
	"context"
	"fmt"
)

// DefaultLimit bounds the number of triples a single lookup returns.
const DefaultLimit = 100

// Triple is a directed relation between two graph nodes.
type Triple struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// String renders the triple as "src -[REL]-> dst".
func (t Triple) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", t.Source, t.Relation, t.Target)
}

// Store answers neighbourhood queries.
type Store interface {
	// Neighbors returns relations touching any node whose id contains one of
	// the entities.
	Neighbors(ctx context.Context, entities []string, limit int) ([]Triple, error)
	Close(ctx context.Context) error
}

// Dedupe removes repeated triples, keeping first occurrences in order.
func Dedupe(triples []Triple) []Triple {
	seen := make(map[Triple]struct{}, len(triples))
	out := make([]Triple, 0, len(triples))
	for _, t := range triples {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
