// Package neo4j imports property graphs stored in Neo4j into a graph.Store.
//
// Entities are expected as (:Entity {id, name, label}) nodes connected by
// relationships carrying a label and a relationship_description property.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const nodesQuery = `
MATCH (n:Entity)
RETURN n.id AS id, n.name AS name, n.label AS label
ORDER BY coalesce(n.id, n.name)
`

const relationsQuery = `
MATCH (h:Entity)-[r]->(t:Entity)
RETURN coalesce(h.id, h.name) AS source,
       coalesce(t.id, t.name) AS target,
       coalesce(r.label, type(r)) AS label,
       r.relationship_description AS description
ORDER BY source, label, target
`

type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// ConfigFromEnv reads the NEO4J_* environment variables.
func ConfigFromEnv() Config {
	return Config{
		URI:      util.GetEnv("NEO4J_URI"),
		User:     util.GetEnvString("NEO4J_USER", "neo4j"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnv("NEO4J_DATABASE"),
		Timeout:  time.Duration(util.GetEnvInt("NEO4J_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

type Importer struct {
	driver   neo4j.DriverWithContext
	database string
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Importer, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: uri is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Importer{driver: driver, database: cfg.Database}, nil
}

func (i *Importer) Close(ctx context.Context) error {
	if i == nil || i.driver == nil {
		return nil
	}
	return i.driver.Close(ctx)
}

// ImportResult counts what was added to the store.
type ImportResult struct {
	Nodes     int `json:"nodes"`
	Relations int `json:"relations"`
	Skipped   int `json:"skipped"`
}

// Import reads every entity and relationship into st. Nodes without an id
// or name and relations with a missing endpoint are skipped.
func (i *Importer) Import(ctx context.Context, st *graph.Store) (ImportResult, error) {
	var res ImportResult

	nodes, err := i.run(ctx, nodesQuery)
	if err != nil {
		return res, fmt.Errorf("neo4j: read nodes: %w", err)
	}
	for _, rec := range nodes {
		n, ok := recordNode(rec)
		if !ok {
			res.Skipped++
			continue
		}
		st.AddNode(n)
		res.Nodes++
	}

	rels, err := i.run(ctx, relationsQuery)
	if err != nil {
		return res, fmt.Errorf("neo4j: read relations: %w", err)
	}
	for _, rec := range rels {
		r, ok := recordRelation(rec)
		if !ok {
			res.Skipped++
			continue
		}
		st.AddRelation(r)
		res.Relations++
	}

	logger.Info("[Neo4j] Imported graph", "nodes", res.Nodes, "relations", res.Relations, "skipped", res.Skipped)
	return res, nil
}

func (i *Importer) run(ctx context.Context, query string) ([]*neo4j.Record, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if i.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(i.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, i.driver, query, nil, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func recordNode(rec *neo4j.Record) (common.Node, bool) {
	id := stringValue(rec, "id")
	name := stringValue(rec, "name")
	if name == "" {
		name = id
	}
	if id == "" {
		id = name
	}
	if id == "" {
		return common.Node{}, false
	}
	return common.Node{ID: id, Name: name, Label: stringValue(rec, "label")}, true
}

func recordRelation(rec *neo4j.Record) (common.Relation, bool) {
	source := stringValue(rec, "source")
	target := stringValue(rec, "target")
	label := stringValue(rec, "label")
	if source == "" || target == "" || label == "" {
		return common.Relation{}, false
	}
	return common.NewRelation(source, label, target, stringValue(rec, "description")), true
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
