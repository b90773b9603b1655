package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"telecast/internal/config"
	"telecast/internal/model"
	"telecast/pkg/logx"
)

// RowReader fetches the raw sheet rows. The production implementation talks
// to the Sheets API; tests substitute a fixture.
type RowReader interface {
	Rows(ctx context.Context) ([][]any, error)
}

type DirectoryStore interface {
	ReplaceDirectory(ctx context.Context, entries []model.DirectoryEntry) error
}

// apiReader reads one value range from a spreadsheet.
type apiReader struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	readRange     string
}

func newAPIReader(ctx context.Context, cfg *config.SheetsConfig) (*apiReader, error) {
	svc, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &apiReader{svc: svc, spreadsheetID: cfg.SpreadsheetID, readRange: cfg.Range}, nil
}

func (r *apiReader) Rows(ctx context.Context) ([][]any, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, r.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", r.readRange, err)
	}
	return resp.Values, nil
}

// Syncer runs the periodic import.
type Syncer struct {
	reader RowReader
	store  DirectoryStore
	log    logx.Logger

	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

// New builds a syncer backed by the Sheets API. cfg must be the validated
// sheets section; the credentials file is read once at construction.
func New(ctx context.Context, cfg *config.SheetsConfig, store DirectoryStore, log logx.Logger) (*Syncer, error) {
	reader, err := newAPIReader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Syncer{
		reader:   reader,
		store:    store,
		log:      log,
		schedule: cfg.ScheduleOrDefault(),
		now:      time.Now,
	}, nil
}

// Start registers the schedule and runs one sync immediately so a fresh
// deployment has a directory before the first tick.
func (s *Syncer) Start(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		s.log.Warn("initial directory sync failed", logx.Err(err))
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Sync(runCtx); err != nil {
			s.log.Error("directory sync failed", logx.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("directory sync scheduled", logx.String("schedule", s.schedule))
	return nil
}

func (s *Syncer) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sync reads the sheet and replaces the stored directory. Rows carry the
// Telegram username in the second column and the chat id in the third; rows
// missing either are skipped. An empty sheet leaves the directory untouched
// rather than wiping it.
func (s *Syncer) Sync(ctx context.Context) error {
	rows, err := s.reader.Rows(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	entries := make([]model.DirectoryEntry, 0, len(rows))
	for _, row := range rows {
		username := cellString(row, 1)
		chatID := cellString(row, 2)
		if username == "" || chatID == "" {
			continue
		}
		entries = append(entries, model.DirectoryEntry{
			ID:        uuid.NewString(),
			Username:  strings.TrimPrefix(username, "@"),
			ChatID:    chatID,
			CreatedAt: now,
		})
	}
	if len(entries) == 0 {
		s.log.Warn("sheet produced no directory entries, keeping current directory")
		return nil
	}

	if err := s.store.ReplaceDirectory(ctx, entries); err != nil {
		return fmt.Errorf("replace directory: %w", err)
	}
	s.log.Info("directory synced", logx.Int("entries", len(entries)))
	return nil
}

func cellString(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return strings.TrimSpace(s)
}
