package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "5s"
http:
  addr: ":9090"
auth:
  access_secret: "a-secret"
  refresh_secret: "r-secret"
  access_ttl: "30m"
storage:
  path: "./data/telecast.db"
dispatch:
  workers: 8
  rate_per_sec: 20
logging:
  level: "debug"
  console: true
`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestManagerLoadYAML(t *testing.T) {
	m := NewManager(writeTemp(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if got := cfg.Telegram.PollTimeoutOrDefault(); got != 5*time.Second {
		t.Errorf("poll timeout = %v, want 5s", got)
	}
	if cfg.HTTP.AddrOrDefault() != ":9090" {
		t.Errorf("addr = %q", cfg.HTTP.AddrOrDefault())
	}
	if got := cfg.Auth.AccessTTLOrDefault(); got != 30*time.Minute {
		t.Errorf("access ttl = %v, want 30m", got)
	}
	if cfg.Dispatch.WorkersOrDefault() != 8 || cfg.Dispatch.RatePerSecOrDefault() != 20 {
		t.Errorf("dispatch = %+v", cfg.Dispatch)
	}
	if m.Get() != cfg {
		t.Error("Get() did not return the committed config")
	}
}

func TestManagerRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeTemp(t, "config.yaml", sampleYAML+"\nbogus_section:\n  x: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.Path = "x.db"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing token/secrets")
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	var cfg Config
	if cfg.Dispatch.WorkersOrDefault() != 4 {
		t.Errorf("workers default = %d", cfg.Dispatch.WorkersOrDefault())
	}
	if cfg.Dispatch.SendTimeoutOrDefault() != 10*time.Second {
		t.Errorf("send timeout default = %v", cfg.Dispatch.SendTimeoutOrDefault())
	}
	if cfg.Auth.CodeMaxAttemptsOrDefault() != 5 {
		t.Errorf("code attempts default = %d", cfg.Auth.CodeMaxAttemptsOrDefault())
	}
	if cfg.Sheets.ScheduleOrDefault() != "@every 30m" {
		t.Errorf("sheets schedule default = %q", cfg.Sheets.ScheduleOrDefault())
	}
	if cfg.Uploads.MaxBytesOrDefault() != 100<<20 {
		t.Errorf("uploads max default = %d", cfg.Uploads.MaxBytesOrDefault())
	}
}
