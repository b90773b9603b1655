package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"telecast/internal/model"
)

const userCols = `id, username, fullname, password_hash, tele_user, role, deleted, created_at, created_by`

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = ? AND deleted = 0`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE username = ? AND deleted = 0`,
		strings.ToLower(strings.TrimSpace(username)))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		u.ID, strings.ToLower(strings.TrimSpace(u.Username)), u.Fullname, u.PasswordHash,
		u.TeleUser, int(u.Role), boolInt(u.Deleted), timeStr(u.CreatedAt), nullStr(u.CreatedBy))
	return err
}

// UpdateUser updates the mutable profile fields (fullname, telegram user, role).
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET fullname = ?, tele_user = ?, role = ? WHERE id = ? AND deleted = 0`,
		u.Fullname, u.TeleUser, int(u.Role), u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users WHERE deleted = 0 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(r rowScanner) (*model.User, error) {
	var (
		u             model.User
		role, deleted int
		createdAt     string
		createdBy     sql.NullString
	)
	if err := r.Scan(&u.ID, &u.Username, &u.Fullname, &u.PasswordHash, &u.TeleUser,
		&role, &deleted, &createdAt, &createdBy); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Deleted = deleted != 0
	u.CreatedAt = parseTimeStr(createdAt)
	u.CreatedBy = strOrEmpty(createdBy)
	return &u, nil
}
