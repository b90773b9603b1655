package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"telecast/internal/model"
)

const taskCols = `id, search_key, content, image_url, channels, status, deleted, created_at, sent_at, created_by`

// GetTask loads a task by id. Soft-deleted tasks are still loadable here:
// dispatch may legitimately resubmit a task the admin list no longer shows.
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// SaveTask upserts the full task record (last writer wins).
func (s *Store) SaveTask(ctx context.Context, t *model.Task) error {
	channels, err := json.Marshal(t.Channels)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskCols+`) VALUES (?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   search_key=excluded.search_key, content=excluded.content,
		   image_url=excluded.image_url, channels=excluded.channels,
		   status=excluded.status, deleted=excluded.deleted,
		   sent_at=excluded.sent_at`,
		t.ID, t.SearchKey, t.Content, t.ImageURL, string(channels),
		int(t.Status), boolInt(t.Deleted), timeStr(t.CreatedAt), timeStr(t.SentAt), nullStr(t.CreatedBy),
	)
	return err
}

// ListTasks returns non-deleted tasks, newest first, optionally bounded by
// creation time.
func (s *Store) ListTasks(ctx context.Context, from, to time.Time) ([]model.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE deleted = 0`
	args := []any{}
	if !from.IsZero() {
		q += ` AND created_at >= ?`
		args = append(args, timeStr(from))
	}
	if !to.IsZero() {
		q += ` AND created_at <= ?`
		args = append(args, timeStr(to))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// SoftDeleteTask hides a task from listings without losing its history.
func (s *Store) SoftDeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (*model.Task, error) {
	var (
		t                    model.Task
		channels             string
		status, deleted      int
		createdAt, sentAt    string
		createdBy            sql.NullString
	)
	if err := r.Scan(&t.ID, &t.SearchKey, &t.Content, &t.ImageURL, &channels,
		&status, &deleted, &createdAt, &sentAt, &createdBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(channels), &t.Channels); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.Deleted = deleted != 0
	t.CreatedAt = parseTimeStr(createdAt)
	t.SentAt = parseTimeStr(sentAt)
	t.CreatedBy = strOrEmpty(createdBy)
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
