package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"telecast/internal/model"
	"telecast/pkg/logx"
)

type fixtureReader struct {
	rows [][]any
	err  error
}

func (f *fixtureReader) Rows(context.Context) ([][]any, error) {
	return f.rows, f.err
}

type captureStore struct {
	replaced [][]model.DirectoryEntry
}

func (c *captureStore) ReplaceDirectory(_ context.Context, entries []model.DirectoryEntry) error {
	c.replaced = append(c.replaced, entries)
	return nil
}

func newTestSyncer(reader RowReader, store DirectoryStore) *Syncer {
	return &Syncer{
		reader:   reader,
		store:    store,
		log:      logx.Nop(),
		schedule: "@every 30m",
		now:      func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	}
}

func TestSyncMapsRows(t *testing.T) {
	t.Parallel()

	reader := &fixtureReader{rows: [][]any{
		{"Alice Ray", "alice_tg", "100200300"},
		{"Bob", "@bob_tg", "100200301"},
	}}
	store := &captureStore{}

	if err := newTestSyncer(reader, store).Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(store.replaced) != 1 {
		t.Fatalf("ReplaceDirectory called %d times, want 1", len(store.replaced))
	}
	entries := store.replaced[0]
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Username != "alice_tg" || entries[0].ChatID != "100200300" {
		t.Fatalf("entry 0 = %+v", entries[0])
	}
	if entries[1].Username != "bob_tg" {
		t.Fatalf("entry 1 username = %q, want the @ stripped", entries[1].Username)
	}
}

func TestSyncSkipsIncompleteRows(t *testing.T) {
	t.Parallel()

	reader := &fixtureReader{rows: [][]any{
		{"header only"},
		{"Carol", "", "100200302"},
		{"Dave", "dave_tg", ""},
		{"Erin", "erin_tg", "100200303"},
	}}
	store := &captureStore{}

	if err := newTestSyncer(reader, store).Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	entries := store.replaced[0]
	if len(entries) != 1 || entries[0].Username != "erin_tg" {
		t.Fatalf("entries = %+v, want only erin_tg", entries)
	}
}

func TestSyncEmptySheetKeepsDirectory(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	if err := newTestSyncer(&fixtureReader{}, store).Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(store.replaced) != 0 {
		t.Fatal("an empty sheet replaced the directory")
	}
}

func TestSyncReaderError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("quota exceeded")
	store := &captureStore{}
	err := newTestSyncer(&fixtureReader{err: readErr}, store).Sync(context.Background())
	if !errors.Is(err, readErr) {
		t.Fatalf("err = %v, want the reader error", err)
	}
	if len(store.replaced) != 0 {
		t.Fatal("directory replaced despite a read error")
	}
}
