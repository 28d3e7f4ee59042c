package sqlite

import (
	"context"
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/store"
)

// ============================================================================
// Vector storage on SQLite
//
// Vectors are stored as little-endian float32 BLOBs; similarity search is
// computed in the application layer. This trades query speed for zero
// extension dependencies, which is acceptable for the single-agent workload.
// ============================================================================

// float32ArrayToBLOB converts a []float32 to its BLOB representation.
func float32ArrayToBLOB(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

// blobToFloat32Array converts a BLOB back to a []float32.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid embedding blob length: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vec, nil
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float32
	var normA float32
	var normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

func (d *DB) UpsertNodeEmbedding(ctx context.Context, upsert *store.NodeEmbedding) (*store.NodeEmbedding, error) {
	stmt := `
		INSERT INTO node_embedding (node_id, model, embedding, created_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (node_id, model)
		DO UPDATE SET embedding = EXCLUDED.embedding
		RETURNING id, created_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.NodeID,
		upsert.Model,
		float32ArrayToBLOB(upsert.Embedding),
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
		where, args = append(where, "node_id = ?"), append(args, *find.NodeID)
	}
	if find.Model != nil {
		where, args = append(where, "model = ?"), append(args, *find.Model)
	}

	query := `
		SELECT id, node_id, model, embedding, created_ts
		FROM node_embedding
		WHERE ` + joinAnd(where) + `
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
		var blob []byte
		if err := rows.Scan(
			&embedding.ID,
			&embedding.NodeID,
			&embedding.Model,
			&blob,
			&embedding.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan node embedding")
		}
		vec, err := blobToFloat32Array(blob)
		if err != nil {
			return nil, err
		}
		embedding.Embedding = vec
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
		LEFT JOIN node_embedding e ON mn.id = e.node_id AND e.model = ?
		WHERE e.id IS NULL
			AND LENGTH(mn.content) > 0
		ORDER BY mn.created_ts DESC
		LIMIT ?
	`
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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (episodic_memory_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.EpisodicMemoryID,
		upsert.Model,
		float32ArrayToBLOB(upsert.Embedding),
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert episodic memory embedding")
	}
	return upsert, nil
}

// EpisodicVectorSearch performs cosine similarity search in the application
// layer: embeddings are loaded, scored, and the top-k returned.
func (d *DB) EpisodicVectorSearch(ctx context.Context, opts *store.EpisodicVectorSearchOptions) ([]*store.EpisodicMemoryWithScore, error) {
	where, args := []string{"e.model = ?"}, []any{opts.Model}

	if opts.UserID != nil {
		where, args = append(where, "em.user_id = ?"), append(args, *opts.UserID)
	}
	if opts.CreatedAfter > 0 {
		where, args = append(where, "em.created_ts >= ?"), append(args, opts.CreatedAfter)
	}

	query := `
		SELECT em.id, em.content, em.node_type, em.importance, em.user_id, em.created_ts, e.embedding
		FROM episodic_memory em
		INNER JOIN episodic_memory_embedding e ON em.id = e.episodic_memory_id
		WHERE ` + joinAnd(where)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to episodic vector search")
	}
	defer rows.Close()

	type scored struct {
		memory *store.EpisodicMemory
		score  float32
	}
	candidates := []scored{}
	for rows.Next() {
		var memory store.EpisodicMemory
		var userID *string
		var blob []byte
		if err := rows.Scan(
			&memory.ID,
			&memory.Content,
			&memory.NodeType,
			&memory.Importance,
			&userID,
			&memory.CreatedTs,
			&blob,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan episodic vector search candidate")
		}
		memory.UserID = userID
		vec, err := blobToFloat32Array(blob)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, scored{memory: &memory, score: cosineSimilarity(opts.Vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	results := []*store.EpisodicMemoryWithScore{}
	for i := 0; i < len(candidates) && i < opts.Limit; i++ {
		results = append(results, &store.EpisodicMemoryWithScore{
			EpisodicMemory: candidates[i].memory,
			Score:          candidates[i].score,
		})
	}
	return results, nil
}

func joinAnd(where []string) string {
	out := where[0]
	for _, w := range where[1:] {
		out += " AND " + w
	}
	return out
}
