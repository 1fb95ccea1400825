package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/soundprediction/multirag/pkg/config"
)

const neighborsQuery = `
	MATCH (n)
	WHERE any(e IN $entities WHERE n.id CONTAINS e)
	MATCH (n)-[r]-(m)
	RETURN n.id AS source, type(r) AS rel, m.id AS target
	LIMIT $limit
`

// readFunc runs a read query and returns every record.
type readFunc func(ctx context.Context, query string, params map[string]any) ([]*db.Record, error)

// Neo4jStore implements Store on a Neo4j database.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
	maxRows  int
	read     readFunc
}

// NewNeo4jStore connects to the configured database.
func NewNeo4jStore(ctx context.Context, cfg config.GraphConfig) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", cfg.URI, err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	s := &Neo4jStore{
		client:   client,
		database: database,
		maxRows:  cfg.MaxRows,
	}
	s.read = s.executeRead
	return s, nil
}

func (s *Neo4jStore) executeRead(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

// Neighbors implements Store.
func (s *Neo4jStore) Neighbors(ctx context.Context, entities []string, limit int) ([]Triple, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.maxRows
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	records, err := s.read(ctx, neighborsQuery, map[string]any{
		"entities": entities,
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("neighbour query failed: %w", err)
	}

	triples := make([]Triple, 0, len(records))
	for _, record := range records {
		t, ok := tripleFromRecord(record)
		if !ok {
			continue
		}
		triples = append(triples, t)
	}
	return triples, nil
}

// Ping checks that the database is reachable.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.VerifyConnectivity(ctx)
}

// Close implements Store.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(ctx)
}

// tripleFromRecord skips rows whose endpoints have no id.
func tripleFromRecord(record *db.Record) (Triple, bool) {
	source, _ := record.Get("source")
	rel, _ := record.Get("rel")
	target, _ := record.Get("target")

	t := Triple{
		Source:   asString(source),
		Relation: asString(rel),
		Target:   asString(target),
	}
	if t.Source == "" || t.Target == "" {
		return Triple{}, false
	}
	return t, true
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
