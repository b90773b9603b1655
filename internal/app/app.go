package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"

	"telecast/internal/api"
	"telecast/internal/auth"
	"telecast/internal/config"
	"telecast/internal/dispatch"
	"telecast/internal/model"
	"telecast/internal/sheets"
	"telecast/internal/store"
	"telecast/internal/transport/telegram"
	"telecast/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store      *store.Store
	bot        *telegram.Adapter
	dispatcher *dispatch.Service
	authSvc    *auth.Service
	syncer     *sheets.Syncer
	api        *api.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctx context.Context, configPath string) (*App, error) {
	mgr := config.NewManager(configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(toLogxConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: parseOr(cfg.Storage.BusyTimeout, 5*time.Second),
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	bot, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeoutOrDefault(),
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		st.Close()
		logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	a := &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		store:  st,
		bot:    bot,
	}

	a.dispatcher = dispatch.New(cfg.Dispatch, st, st, st, bot,
		dispatch.NewHTTPFetcher(nil), log.With(logx.String("comp", "dispatch")))
	a.authSvc = auth.NewService(cfg.Auth, st, st, bot,
		log.With(logx.String("comp", "auth")))

	if cfg.Sheets != nil && cfg.Sheets.Enabled {
		syncer, err := sheets.New(ctx, cfg.Sheets, st, log.With(logx.String("comp", "sheets")))
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("sheets: %w", err)
		}
		a.syncer = syncer
	}

	// api.DirectorySyncer is an interface; a typed nil must stay nil.
	var syncer api.DirectorySyncer
	if a.syncer != nil {
		syncer = a.syncer
	}
	a.api = api.NewServer(cfg.HTTP, cfg.Uploads, st, a.authSvc, a.dispatcher, syncer,
		log.With(logx.String("comp", "api")))

	if cfg.Admin != nil {
		if err := a.bootstrapAdmin(ctx, cfg.Admin); err != nil {
			a.closeResources()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}
	return a, nil
}

// Start brings the components up and returns once they are running.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.bot.Start()
	if a.syncer != nil {
		if err := a.syncer.Start(runCtx); err != nil {
			cancel()
			return err
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.api.Start(); err != nil {
			a.log.Error("http server exited", logx.Err(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.watchConfig(runCtx)
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("started")
	return nil
}

// Stop shuts the components down in reverse order of Start.
func (a *App) Stop(ctx context.Context) error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Warn("sd_notify stopping failed", logx.Err(err))
	}
	if a.cancel != nil {
		a.cancel()
	}

	var firstErr error
	if err := a.api.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		firstErr = err
	}
	if a.syncer != nil {
		a.syncer.Stop()
	}
	a.bot.Stop()
	a.wg.Wait()
	a.closeResources()
	if firstErr != nil {
		return firstErr
	}
	a.log.Info("stopped")
	return nil
}

// watchConfig reloads the file on change and applies the sections that
// support runtime swaps. Storage, HTTP and Telegram changes need a restart.
func (a *App) watchConfig(ctx context.Context) {
	updates := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(updates)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			a.logSvc.Apply(toLogxConfig(cfg.Logging))
			a.dispatcher.Apply(cfg.Dispatch)
			a.log.Info("configuration reloaded")
		}
	}
}

// bootstrapAdmin creates the seed admin account once. An existing account
// with the configured username is left untouched.
func (a *App) bootstrapAdmin(ctx context.Context, cfg *config.AdminConfig) error {
	_, err := a.store.GetUserByUsername(ctx, cfg.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     cfg.Username,
		Fullname:     cfg.Fullname,
		PasswordHash: hash,
		TeleUser:     cfg.TeleUser,
		Role:         model.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return err
	}
	a.log.Info("admin account created", logx.String("username", u.Username))
	return nil
}

func (a *App) closeResources() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close", logx.Err(err))
		}
	}
	if a.logSvc != nil {
		a.logSvc.Close()
	}
}

func toLogxConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
	}
}

func parseOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
