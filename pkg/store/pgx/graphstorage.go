package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

const batchSize = 500

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStorage on PostgreSQL with pgvector
// for summary similarity search. The connection must have the pgvector types
// registered.
type GraphDBStorage struct {
	conn pgxIConn
}

var _ store.GraphStorage = (*GraphDBStorage)(nil)

// NewGraphDBStorageWithConnection creates a GraphDBStorage using an existing
// pool or connection.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

func (s *GraphDBStorage) CreateGraph(ctx context.Context, id string, name string) error {
	_, err := s.conn.Exec(ctx, createGraphSQL, id, util.SanitizePostgresText(name))
	if err != nil {
		return fmt.Errorf("failed to create graph %s: %w", id, err)
	}
	return nil
}

func (s *GraphDBStorage) GetGraph(ctx context.Context, id string) (store.Graph, error) {
	g := store.Graph{ID: id}
	err := s.conn.QueryRow(ctx, getGraphSQL, id).Scan(&g.Name, &g.NodeCount, &g.RelationCount, &g.SummaryCount)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return store.Graph{}, fmt.Errorf("%w: %s", store.ErrGraphNotFound, id)
		}
		return store.Graph{}, err
	}
	return g, nil
}

func (s *GraphDBStorage) DeleteGraph(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, deleteGraphSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete graph %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrGraphNotFound, id)
	}
	return nil
}

func (s *GraphDBStorage) exists(ctx context.Context, q pgxIConn, id string) error {
	var found bool
	if err := q.QueryRow(ctx, graphExistsSQL, id).Scan(&found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", store.ErrGraphNotFound, id)
	}
	return nil
}

func (s *GraphDBStorage) SaveGraph(
	ctx context.Context,
	id string,
	nodes []common.Node,
	relations []common.Relation,
) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.exists(ctx, tx, id); err != nil {
		return err
	}

	err = store.ChunkRange(len(nodes), batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, n := range nodes[start:end] {
			props, err := marshalProperties(n.Properties)
			if err != nil {
				return err
			}
			batch.Queue(upsertNodeSQL, id, n.Key(), util.SanitizePostgresText(n.Name), n.Label, props)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save nodes: %w", err)
	}

	err = store.ChunkRange(len(relations), batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, r := range relations[start:end] {
			props, err := marshalProperties(r.Properties)
			if err != nil {
				return err
			}
			batch.Queue(upsertRelationSQL, id, r.SourceID, r.Label, r.TargetID, props)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save relations: %w", err)
	}

	if _, err := tx.Exec(ctx, touchGraphSQL, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *GraphDBStorage) LoadGraph(ctx context.Context, id string) ([]common.Node, []common.Relation, error) {
	if err := s.exists(ctx, s.conn, id); err != nil {
		return nil, nil, err
	}

	rows, err := s.conn.Query(ctx, loadNodesSQL, id)
	if err != nil {
		return nil, nil, err
	}
	nodes, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Node, error) {
		var n common.Node
		var props []byte
		if err := row.Scan(&n.ID, &n.Name, &n.Label, &props); err != nil {
			return n, err
		}
		p, err := unmarshalProperties(props)
		n.Properties = p
		return n, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	rows, err = s.conn.Query(ctx, loadRelationsSQL, id)
	if err != nil {
		return nil, nil, err
	}
	relations, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Relation, error) {
		var r common.Relation
		var props []byte
		if err := row.Scan(&r.SourceID, &r.Label, &r.TargetID, &props); err != nil {
			return r, err
		}
		p, err := unmarshalProperties(props)
		r.Properties = p
		return r, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load relations: %w", err)
	}

	return nodes, relations, nil
}

func (s *GraphDBStorage) SaveSummaries(
	ctx context.Context,
	id string,
	summaries map[int]string,
	embeddings map[int][]float32,
) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.exists(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, deleteSummariesSQL, id); err != nil {
		return err
	}

	batch := &pgxv5.Batch{}
	for cluster, summary := range summaries {
		batch.Queue(insertSummarySQL, id, cluster, util.SanitizePostgresText(summary), vectorArg(embeddings[cluster]))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save summaries: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *GraphDBStorage) LoadSummaries(ctx context.Context, id string) (map[int]string, error) {
	rows, err := s.conn.Query(ctx, loadSummariesSQL, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var cluster int
		var summary string
		if err := rows.Scan(&cluster, &summary); err != nil {
			return nil, err
		}
		out[cluster] = summary
	}
	return out, rows.Err()
}

// NearestCommunities returns the clusters whose summary embedding has the
// smallest cosine distance to embedding. Summaries without an embedding are
// never returned.
func (s *GraphDBStorage) NearestCommunities(
	ctx context.Context,
	graphID string,
	embedding []float32,
	limit int,
) ([]int, error) {
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := s.conn.Query(ctx, nearestCommunitiesSQL, graphID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	return pgxv5.CollectRows(rows, pgxv5.RowTo[int])
}

// vectorArg returns nil for a missing embedding so the column stays NULL.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func marshalProperties(props map[string]any) ([]byte, error) {
	if len(props) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(props)
}

func unmarshalProperties(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}
