package store

import (
	"context"
	"database/sql"
	"errors"

	"telecast/internal/model"
)

const channelCols = `id, address, name, work_start, work_end, deleted, created_at, created_by`

func (s *Store) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+channelCols+` FROM channels WHERE id = ? AND deleted = 0`, id)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// GetChannelByAddress resolves a channel by its transport address.
func (s *Store) GetChannelByAddress(ctx context.Context, address string) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+channelCols+` FROM channels WHERE address = ? AND deleted = 0`, address)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *Store) CreateChannel(ctx context.Context, c *model.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (`+channelCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.Address, c.Name, int(c.WorkStart), int(c.WorkEnd),
		boolInt(c.Deleted), timeStr(c.CreatedAt), nullStr(c.CreatedBy))
	return err
}

func (s *Store) UpdateChannel(ctx context.Context, c *model.Channel) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE channels SET address = ?, name = ?, work_start = ?, work_end = ?
		 WHERE id = ? AND deleted = 0`,
		c.Address, c.Name, int(c.WorkStart), int(c.WorkEnd), c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteChannel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE channels SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChannels returns non-deleted channels with the creator's display name
// joined in, ordered by creation time.
func (s *Store) ListChannels(ctx context.Context) ([]model.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.address, c.name, c.work_start, c.work_end, c.deleted,
		        c.created_at, c.created_by, COALESCE(u.fullname, '')
		   FROM channels c LEFT JOIN users u ON u.id = c.created_by
		  WHERE c.deleted = 0
		  ORDER BY c.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Channel
	for rows.Next() {
		var (
			c                    model.Channel
			start, end, deleted  int
			createdAt            string
			createdBy            sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Address, &c.Name, &start, &end, &deleted,
			&createdAt, &createdBy, &c.CreatedName); err != nil {
			return nil, err
		}
		c.WorkStart = model.TimeOfDay(start)
		c.WorkEnd = model.TimeOfDay(end)
		c.Deleted = deleted != 0
		c.CreatedAt = parseTimeStr(createdAt)
		c.CreatedBy = strOrEmpty(createdBy)
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChannel(r rowScanner) (*model.Channel, error) {
	var (
		c                   model.Channel
		start, end, deleted int
		createdAt           string
		createdBy           sql.NullString
	)
	if err := r.Scan(&c.ID, &c.Address, &c.Name, &start, &end, &deleted,
		&createdAt, &createdBy); err != nil {
		return nil, err
	}
	c.WorkStart = model.TimeOfDay(start)
	c.WorkEnd = model.TimeOfDay(end)
	c.Deleted = deleted != 0
	c.CreatedAt = parseTimeStr(createdAt)
	c.CreatedBy = strOrEmpty(createdBy)
	return &c, nil
}
