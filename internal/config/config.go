package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	HTTP     HTTPConfig     `json:"http"`
	Auth     AuthConfig     `json:"auth"`
	Storage  StorageConfig  `json:"storage"`
	Dispatch DispatchConfig `json:"dispatch"`
	Uploads  UploadsConfig  `json:"uploads"`
	Logging  LoggingConfig  `json:"logging"`
	Sheets   *SheetsConfig  `json:"sheets,omitempty"`
	Admin    *AdminConfig   `json:"admin,omitempty"`
}

type TelegramConfig struct {
	// Token may be omitted in the file and provided via TELECAST_TELEGRAM_TOKEN.
	Token       string `json:"token,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"` // Go duration string; default "10s"
}

type HTTPConfig struct {
	Addr         string `json:"addr,omitempty"` // default ":8080"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

type AuthConfig struct {
	// Secrets may be omitted in the file and provided via
	// TELECAST_ACCESS_SECRET / TELECAST_REFRESH_SECRET.
	AccessSecret  string `json:"access_secret,omitempty"`
	RefreshSecret string `json:"refresh_secret,omitempty"`

	AccessTTL       string `json:"access_ttl,omitempty"`  // default "15m"
	RefreshTTL      string `json:"refresh_ttl,omitempty"` // default "168h"
	CodeTTL         string `json:"code_ttl,omitempty"`    // default "2m"
	CodeMaxAttempts int    `json:"code_max_attempts,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// DispatchConfig controls broadcast fan-out.
//
// Workers bounds per-dispatch concurrency; RatePerSec bounds outbound
// Telegram calls across the whole process.
type DispatchConfig struct {
	Workers      int    `json:"workers,omitempty"`       // default 4
	RatePerSec   int    `json:"rate_per_sec,omitempty"`  // default 10
	SendTimeout  string `json:"send_timeout,omitempty"`  // default "10s"
	FetchTimeout string `json:"fetch_timeout,omitempty"` // default "15s"
}

type UploadsConfig struct {
	Dir       string `json:"dir,omitempty"`        // default "./uploads"
	MaxBytes  int64  `json:"max_bytes,omitempty"`  // default 100 MiB
	PublicURL string `json:"public_url,omitempty"` // URL prefix returned to clients; default "/uploads"
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// SheetsConfig controls the periodic directory import from Google Sheets.
type SheetsConfig struct {
	Enabled         bool   `json:"enabled"`
	CredentialsFile string `json:"credentials_file"`
	SpreadsheetID   string `json:"spreadsheet_id"`
	Range           string `json:"range"`
	Schedule        string `json:"schedule,omitempty"` // cron spec; default "@every 30m"
}

// AdminConfig seeds an admin account at startup if it does not exist.
type AdminConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Fullname string `json:"fullname,omitempty"`
	TeleUser string `json:"tele_user,omitempty"`
}

// ApplyEnv fills secret fields from the environment when the file omits them.
func (c *Config) ApplyEnv() {
	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("TELECAST_TELEGRAM_TOKEN")
	}
	if c.Auth.AccessSecret == "" {
		c.Auth.AccessSecret = os.Getenv("TELECAST_ACCESS_SECRET")
	}
	if c.Auth.RefreshSecret == "" {
		c.Auth.RefreshSecret = os.Getenv("TELECAST_REFRESH_SECRET")
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (file or TELECAST_TELEGRAM_TOKEN)")
	}
	if strings.TrimSpace(c.Auth.AccessSecret) == "" || strings.TrimSpace(c.Auth.RefreshSecret) == "" {
		return fmt.Errorf("auth secrets are required (file or TELECAST_ACCESS_SECRET / TELECAST_REFRESH_SECRET)")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	for _, f := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"http.read_timeout", c.HTTP.ReadTimeout},
		{"http.write_timeout", c.HTTP.WriteTimeout},
		{"http.idle_timeout", c.HTTP.IdleTimeout},
		{"auth.access_ttl", c.Auth.AccessTTL},
		{"auth.refresh_ttl", c.Auth.RefreshTTL},
		{"auth.code_ttl", c.Auth.CodeTTL},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"dispatch.send_timeout", c.Dispatch.SendTimeout},
		{"dispatch.fetch_timeout", c.Dispatch.FetchTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if s := c.Sheets; s != nil && s.Enabled {
		if s.SpreadsheetID == "" || s.Range == "" {
			return fmt.Errorf("sheets.spreadsheet_id and sheets.range are required when sheets.enabled")
		}
	}
	return nil
}

// Duration helpers with defaults baked in.

func (c TelegramConfig) PollTimeoutOrDefault() time.Duration {
	return durationOrDefault(c.PollTimeout, 10*time.Second)
}

func (c HTTPConfig) AddrOrDefault() string {
	if strings.TrimSpace(c.Addr) == "" {
		return ":8080"
	}
	return c.Addr
}

func (c AuthConfig) AccessTTLOrDefault() time.Duration {
	return durationOrDefault(c.AccessTTL, 15*time.Minute)
}

func (c AuthConfig) RefreshTTLOrDefault() time.Duration {
	return durationOrDefault(c.RefreshTTL, 7*24*time.Hour)
}

func (c AuthConfig) CodeTTLOrDefault() time.Duration {
	return durationOrDefault(c.CodeTTL, 2*time.Minute)
}

func (c AuthConfig) CodeMaxAttemptsOrDefault() int {
	if c.CodeMaxAttempts <= 0 {
		return 5
	}
	return c.CodeMaxAttempts
}

func (c DispatchConfig) WorkersOrDefault() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

func (c DispatchConfig) RatePerSecOrDefault() int {
	if c.RatePerSec <= 0 {
		return 10
	}
	return c.RatePerSec
}

func (c DispatchConfig) SendTimeoutOrDefault() time.Duration {
	return durationOrDefault(c.SendTimeout, 10*time.Second)
}

func (c DispatchConfig) FetchTimeoutOrDefault() time.Duration {
	return durationOrDefault(c.FetchTimeout, 15*time.Second)
}

func (c UploadsConfig) DirOrDefault() string {
	if strings.TrimSpace(c.Dir) == "" {
		return "./uploads"
	}
	return c.Dir
}

func (c UploadsConfig) MaxBytesOrDefault() int64 {
	if c.MaxBytes <= 0 {
		return 100 << 20
	}
	return c.MaxBytes
}

func (c *SheetsConfig) ScheduleOrDefault() string {
	if c == nil || strings.TrimSpace(c.Schedule) == "" {
		return "@every 30m"
	}
	return c.Schedule
}

func durationOrDefault(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationField("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
