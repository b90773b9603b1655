package store

import (
	"context"
	"database/sql"

	"telecast/internal/model"
)

func (s *Store) CreateSearchKey(ctx context.Context, k *model.SearchKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_keys (id, search_key, deleted, created_at, created_by) VALUES (?,?,0,?,?)`,
		k.ID, k.Key, timeStr(k.CreatedAt), nullStr(k.CreatedBy))
	return err
}

func (s *Store) UpdateSearchKey(ctx context.Context, id, key string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_keys SET search_key = ? WHERE id = ? AND deleted = 0`, key, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteSearchKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_keys SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListSearchKeys(ctx context.Context) ([]model.SearchKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT k.id, k.search_key, k.created_at, k.created_by, COALESCE(u.fullname, '')
		   FROM search_keys k LEFT JOIN users u ON u.id = k.created_by
		  WHERE k.deleted = 0
		  ORDER BY k.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SearchKey
	for rows.Next() {
		var (
			k         model.SearchKey
			createdAt string
			createdBy sql.NullString
		)
		if err := rows.Scan(&k.ID, &k.Key, &createdAt, &createdBy, &k.CreatedName); err != nil {
			return nil, err
		}
		k.CreatedAt = parseTimeStr(createdAt)
		k.CreatedBy = strOrEmpty(createdBy)
		out = append(out, k)
	}
	return out, rows.Err()
}
