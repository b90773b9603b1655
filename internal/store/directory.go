package store

import (
	"context"
	"database/sql"
	"errors"

	"telecast/internal/model"
)

// DirectoryByUsername finds the chat id the bot may message for a Telegram
// username. Lookups are case-sensitive to match the imported sheet values.
func (s *Store) DirectoryByUsername(ctx context.Context, username string) (*model.DirectoryEntry, error) {
	var (
		e         model.DirectoryEntry
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, chat_id, created_at FROM directory WHERE username = ?`,
		username).Scan(&e.ID, &e.Username, &e.ChatID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt = parseTimeStr(createdAt)
	return &e, nil
}

// ReplaceDirectory swaps the whole directory for the imported rows in one
// transaction. An empty import is a no-op, so a misread sheet cannot wipe
// the table.
func (s *Store) ReplaceDirectory(ctx context.Context, entries []model.DirectoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM directory`); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO directory (id, username, chat_id, created_at) VALUES (?,?,?,?)`,
			e.ID, e.Username, e.ChatID, timeStr(e.CreatedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DirectorySize reports how many entries the last sync left behind.
func (s *Store) DirectorySize(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM directory`).Scan(&n)
	return n, err
}
