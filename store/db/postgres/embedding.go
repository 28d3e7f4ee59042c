package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/store"
)

func (d *DB) UpsertNodeEmbedding(ctx context.Context, upsert *store.NodeEmbedding) (*store.NodeEmbedding, error) {
	stmt := `
		INSERT INTO node_embedding (node_id, model, embedding, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (node_id, model)
		DO UPDATE SET embedding = EXCLUDED.embedding
		RETURNING id, created_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.NodeID,
		upsert.Model,
		pgvector.NewVector(upsert.Embedding),
		upsert.CreatedTs,
	).Scan(&upsert.ID, &upsert.CreatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert node embedding")
	}
	return upsert, nil
}

func (d *DB) ListNodeEmbeddings(ctx context.Context, find *store.FindNodeEmbedding) ([]*store.NodeEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.NodeID != nil {
		where, args = append(where, "node_id = "+placeholder(len(args)+1)), append(args, *find.NodeID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
	}

	query := `
		SELECT id, node_id, model, embedding, created_ts
		FROM node_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list node embeddings")
	}
	defer rows.Close()

	list := []*store.NodeEmbedding{}
	for rows.Next() {
		var embedding store.NodeEmbedding
		var vector pgvector.Vector
		if err := rows.Scan(
			&embedding.ID,
			&embedding.NodeID,
			&embedding.Model,
			&vector,
			&embedding.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan node embedding")
		}
		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) FindMemoryNodesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.MemoryNode, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT mn.id, mn.content, mn.node_type, mn.importance, mn.user_id, mn.created_ts
		FROM memory_node mn
		LEFT JOIN node_embedding e ON mn.id = e.node_id AND e.model = ` + placeholder(1) + `
		WHERE e.id IS NULL
			AND LENGTH(mn.content) > 0
		ORDER BY mn.created_ts DESC
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find memory nodes without embedding")
	}
	defer rows.Close()

	list := []*store.MemoryNode{}
	for rows.Next() {
		var node store.MemoryNode
		var userID *string
		if err := rows.Scan(
			&node.ID,
			&node.Content,
			&node.NodeType,
			&node.Importance,
			&userID,
			&node.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory node")
		}
		node.UserID = userID
		list = append(list, &node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpsertEpisodicMemoryEmbedding(ctx context.Context, upsert *store.EpisodicMemoryEmbedding) (*store.EpisodicMemoryEmbedding, error) {
	stmt := `
		INSERT INTO episodic_memory_embedding (episodic_memory_id, model, embedding, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (episodic_memory_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.EpisodicMemoryID,
		upsert.Model,
		pgvector.NewVector(upsert.Embedding),
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert episodic memory embedding")
	}
	return upsert, nil
}

// EpisodicVectorSearch performs vector similarity search using pgvector.
// The <=> operator computes cosine distance, so 1 - distance is the
// similarity score and ordering by distance ASC yields most similar first.
func (d *DB) EpisodicVectorSearch(ctx context.Context, opts *store.EpisodicVectorSearchOptions) ([]*store.EpisodicMemoryWithScore, error) {
	where, args := []string{"e.model = " + placeholder(1)}, []any{opts.Model}

	if opts.UserID != nil {
		where, args = append(where, "em.user_id = "+placeholder(len(args)+1)), append(args, *opts.UserID)
	}
	if opts.CreatedAfter > 0 {
		where, args = append(where, "em.created_ts >= "+placeholder(len(args)+1)), append(args, opts.CreatedAfter)
	}

	vector := pgvector.NewVector(opts.Vector)
	scoreArg := placeholder(len(args) + 1)
	args = append(args, vector)
	orderArg := placeholder(len(args) + 1)
	args = append(args, vector)
	limitArg := placeholder(len(args) + 1)
	args = append(args, opts.Limit)

	query := `
		SELECT
			em.id, em.content, em.node_type, em.importance, em.user_id, em.created_ts,
			1 - (e.embedding <=> ` + scoreArg + `) AS score
		FROM episodic_memory em
		INNER JOIN episodic_memory_embedding e ON em.id = e.episodic_memory_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.embedding <=> ` + orderArg + `
		LIMIT ` + limitArg

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to episodic vector search")
	}
	defer rows.Close()

	results := []*store.EpisodicMemoryWithScore{}
	for rows.Next() {
		var result store.EpisodicMemoryWithScore
		var memory store.EpisodicMemory
		var userID *string
		if err := rows.Scan(
			&memory.ID,
			&memory.Content,
			&memory.NodeType,
			&memory.Importance,
			&userID,
			&memory.CreatedTs,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan episodic vector search result")
		}
		memory.UserID = userID
		result.EpisodicMemory = &memory
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
