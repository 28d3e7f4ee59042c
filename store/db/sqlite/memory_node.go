package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/store"
)

func (d *DB) CreateMemoryNode(ctx context.Context, create *store.MemoryNode) (*store.MemoryNode, error) {
	stmt := `
		INSERT INTO memory_node (id, content, node_type, importance, user_id, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.Content,
		create.NodeType,
		create.Importance,
		create.UserID,
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create memory node")
	}
	return create, nil
}

func (d *DB) ListMemoryNodes(ctx context.Context, find *store.FindMemoryNode) ([]*store.MemoryNode, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.NodeType != nil {
		where, args = append(where, "node_type = ?"), append(args, *find.NodeType)
	}
	if find.MinImportance != nil {
		where, args = append(where, "importance >= ?"), append(args, *find.MinImportance)
	}

	query := `
		SELECT id, content, node_type, importance, user_id, created_ts
		FROM memory_node
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory nodes")
	}
	defer rows.Close()

	list := []*store.MemoryNode{}
	for rows.Next() {
		var node store.MemoryNode
		var userID sql.NullString
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
		if userID.Valid {
			node.UserID = &userID.String
		}
		list = append(list, &node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CountMemoryNodes(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memory_node").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count memory nodes")
	}
	return count, nil
}

func (d *DB) UpsertEdge(ctx context.Context, upsert *store.Edge) (*store.Edge, error) {
	stmt := `
		INSERT INTO edge (source, target, edge_type, weight, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, target, edge_type)
		DO UPDATE SET
			weight = EXCLUDED.weight,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.Source,
		upsert.Target,
		upsert.EdgeType,
		upsert.Weight,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert edge")
	}
	return upsert, nil
}

func (d *DB) ListEdges(ctx context.Context, find *store.FindEdge) ([]*store.Edge, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Source != nil {
		where, args = append(where, "source = ?"), append(args, *find.Source)
	}
	if find.Target != nil {
		where, args = append(where, "target = ?"), append(args, *find.Target)
	}

	query := `
		SELECT id, source, target, edge_type, weight, created_ts, updated_ts
		FROM edge
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list edges")
	}
	defer rows.Close()

	list := []*store.Edge{}
	for rows.Next() {
		var edge store.Edge
		if err := rows.Scan(
			&edge.ID,
			&edge.Source,
			&edge.Target,
			&edge.EdgeType,
			&edge.Weight,
			&edge.CreatedTs,
			&edge.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan edge")
		}
		list = append(list, &edge)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpsertPersonalityTrait(ctx context.Context, upsert *store.PersonalityTrait) (*store.PersonalityTrait, error) {
	stmt := `
		INSERT INTO personality (trait, value, updated_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (trait)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_ts = EXCLUDED.updated_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Trait, upsert.Value, upsert.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert personality trait")
	}
	return upsert, nil
}

func (d *DB) ListPersonalityTraits(ctx context.Context) ([]*store.PersonalityTrait, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT trait, value, updated_ts FROM personality")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list personality traits")
	}
	defer rows.Close()

	list := []*store.PersonalityTrait{}
	for rows.Next() {
		var trait store.PersonalityTrait
		if err := rows.Scan(&trait.Trait, &trait.Value, &trait.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan personality trait")
		}
		list = append(list, &trait)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
