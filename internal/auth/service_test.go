package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telecast/internal/config"
	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

type fakeUsers struct {
	byID       map[string]*model.User
	byUsername map[string]*model.User
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

type fakeDirectory struct {
	byUsername map[string]*model.DirectoryEntry
}

func (f *fakeDirectory) DirectoryByUsername(_ context.Context, username string) (*model.DirectoryEntry, error) {
	if e, ok := f.byUsername[username]; ok {
		return e, nil
	}
	return nil, store.ErrNotFound
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []string // addresses
	texts   []string
	sendErr error
}

func (f *fakeSender) SendText(_ context.Context, address, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, address)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) BotLink() string { return "https://t.me/telecast_bot" }

func newTestService(t *testing.T) (*Service, *fakeUsers, *fakeSender) {
	t.Helper()

	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	users := &fakeUsers{
		byID:       map[string]*model.User{},
		byUsername: map[string]*model.User{},
	}
	alice := &model.User{
		ID:           "u-1",
		Username:     "alice",
		Fullname:     "Alice Ray",
		PasswordHash: hash,
		TeleUser:     "alice_tg",
		Role:         model.RoleManager,
	}
	users.byID[alice.ID] = alice
	users.byUsername[alice.Username] = alice

	dir := &fakeDirectory{byUsername: map[string]*model.DirectoryEntry{
		"alice_tg": {ID: "d-1", Username: "alice_tg", ChatID: "100200300"},
	}}
	sender := &fakeSender{}
	cfg := config.AuthConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"}
	return NewService(cfg, users, dir, sender, logx.Nop()), users, sender
}

func TestLoginSendsCodeToDirectoryChat(t *testing.T) {
	t.Parallel()

	svc, _, sender := newTestService(t)
	ch, err := svc.Login(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if ch.UserID != "u-1" {
		t.Fatalf("challenge user = %q, want u-1", ch.UserID)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "100200300" {
		t.Fatalf("code sent to %v, want the directory chat id", sender.sent)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	svc, _, sender := newTestService(t)
	_, err := svc.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("err = %v, want ErrBadCredentials", err)
	}
	_, err = svc.Login(context.Background(), "nobody", "hunter2")
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown user err = %v, want ErrBadCredentials", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("a code was sent for a failed login")
	}
}

func TestLoginUnreachableOperator(t *testing.T) {
	t.Parallel()

	svc, users, sender := newTestService(t)
	users.byID["u-1"].TeleUser = "not_in_directory"

	_, err := svc.Login(context.Background(), "alice", "hunter2")
	var nr *NotReachableError
	if !errors.As(err, &nr) {
		t.Fatalf("err = %v, want NotReachableError", err)
	}
	if nr.BotLink != sender.BotLink() {
		t.Fatalf("bot link = %q, want %q", nr.BotLink, sender.BotLink())
	}
}

func TestLoginDeliveryFailure(t *testing.T) {
	t.Parallel()

	svc, _, sender := newTestService(t)
	sender.sendErr = errors.New("bot can't initiate conversation with a user")

	_, err := svc.Login(context.Background(), "alice", "hunter2")
	var nr *NotReachableError
	if !errors.As(err, &nr) {
		t.Fatalf("err = %v, want NotReachableError", err)
	}
}

func TestVerifyCodeIssuesTokens(t *testing.T) {
	t.Parallel()

	svc, _, sender := newTestService(t)
	if _, err := svc.Login(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	code := extractCode(t, sender.texts[0])

	pair, user, err := svc.VerifyCode(context.Background(), "u-1", code)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if user.ID != "u-1" {
		t.Fatalf("user = %q, want u-1", user.ID)
	}
	claims, err := svc.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.Subject != "u-1" || claims.Role != model.RoleManager {
		t.Fatalf("claims = %+v, want subject u-1 role manager", claims)
	}

	// A code is single use.
	if _, _, err := svc.VerifyCode(context.Background(), "u-1", code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("reused code err = %v, want ErrCodeInvalid", err)
	}
}

func TestVerifyCodeAttemptsExhausted(t *testing.T) {
	t.Parallel()

	svc, _, sender := newTestService(t)
	if _, err := svc.Login(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	code := extractCode(t, sender.texts[0])

	for i := 0; i < (config.AuthConfig{}).CodeMaxAttemptsOrDefault(); i++ {
		if _, _, err := svc.VerifyCode(context.Background(), "u-1", "000000"); !errors.Is(err, ErrCodeInvalid) {
			t.Fatalf("attempt %d err = %v, want ErrCodeInvalid", i, err)
		}
	}
	// The real code no longer works either.
	if _, _, err := svc.VerifyCode(context.Background(), "u-1", code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("post-exhaustion err = %v, want ErrCodeInvalid", err)
	}
}

func TestCodeExpiry(t *testing.T) {
	t.Parallel()

	cache := newCodeCache(2*time.Minute, 5)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	code, err := cache.issue("u-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	base = base.Add(3 * time.Minute)
	if cache.verify("u-1", code) {
		t.Fatal("expired code accepted")
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	t.Parallel()

	svc, _, sender := newTestService(t)
	if _, err := svc.Login(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	pair, _, err := svc.VerifyCode(context.Background(), "u-1", extractCode(t, sender.texts[0]))
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := svc.ParseAccess(next.AccessToken); err != nil {
		t.Fatalf("refreshed access token invalid: %v", err)
	}

	// An access token must not pass as a refresh token.
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access-as-refresh err = %v, want ErrInvalidToken", err)
	}
}

// extractCode pulls the six digit code out of the delivery text.
func extractCode(t *testing.T, text string) string {
	t.Helper()
	for i := 0; i+6 <= len(text); i++ {
		ok := true
		for j := 0; j < 6; j++ {
			if text[i+j] < '0' || text[i+j] > '9' {
				ok = false
				break
			}
		}
		if ok {
			return text[i : i+6]
		}
	}
	t.Fatalf("no code found in %q", text)
	return ""
}
