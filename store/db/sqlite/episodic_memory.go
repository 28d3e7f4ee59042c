package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/store"
)

func (d *DB) CreateEpisodicMemory(ctx context.Context, create *store.EpisodicMemory) (*store.EpisodicMemory, error) {
	stmt := `
		INSERT INTO episodic_memory (content, node_type, importance, user_id, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.Content,
		create.NodeType,
		create.Importance,
		create.UserID,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create episodic memory")
	}
	return create, nil
}

func (d *DB) ListEpisodicMemories(ctx context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Query != nil {
		where, args = append(where, "content LIKE ?"), append(args, "%"+*find.Query+"%")
	}
	if find.CreatedAfter > 0 {
		where, args = append(where, "created_ts >= ?"), append(args, find.CreatedAfter)
	}

	query := `
		SELECT id, content, node_type, importance, user_id, created_ts
		FROM episodic_memory
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
		if find.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list episodic memories")
	}
	defer rows.Close()

	list := []*store.EpisodicMemory{}
	for rows.Next() {
		var memory store.EpisodicMemory
		var userID *string
		if err := rows.Scan(
			&memory.ID,
			&memory.Content,
			&memory.NodeType,
			&memory.Importance,
			&userID,
			&memory.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan episodic memory")
		}
		memory.UserID = userID
		list = append(list, &memory)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteEpisodicMemory(ctx context.Context, delete *store.DeleteEpisodicMemory) error {
	where, args := []string{"1 = 1"}, []any{}

	if delete.ID != nil {
		where, args = append(where, "id = ?"), append(args, *delete.ID)
	}
	if delete.CreatedBefore > 0 {
		where, args = append(where, "created_ts < ?"), append(args, delete.CreatedBefore)
	}

	stmt := `DELETE FROM episodic_memory WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete episodic memory")
	}

	// Orphaned embeddings go with their entries.
	cleanup := `DELETE FROM episodic_memory_embedding WHERE episodic_memory_id NOT IN (SELECT id FROM episodic_memory)`
	if _, err := d.db.ExecContext(ctx, cleanup); err != nil {
		return errors.Wrap(err, "failed to clean up episodic memory embeddings")
	}
	return nil
}
