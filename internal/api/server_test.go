package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"telecast/internal/auth"
	"telecast/internal/config"
	"telecast/internal/dispatch"
	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

// fakeAuth maps bearer tokens straight to claims and lets tests script the
// login endpoints.
type fakeAuth struct {
	tokens map[string]*auth.Claims

	loginChallenge *auth.Challenge
	loginErr       error
	verifyPair     *auth.TokenPair
	verifyUser     *model.User
	verifyErr      error
	refreshPair    *auth.TokenPair
	refreshErr     error
}

func (f *fakeAuth) ParseAccess(raw string) (*auth.Claims, error) {
	if c, ok := f.tokens[raw]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

func (f *fakeAuth) Login(context.Context, string, string) (*auth.Challenge, error) {
	return f.loginChallenge, f.loginErr
}

func (f *fakeAuth) VerifyCode(context.Context, string, string) (*auth.TokenPair, *model.User, error) {
	return f.verifyPair, f.verifyUser, f.verifyErr
}

func (f *fakeAuth) Refresh(context.Context, string) (*auth.TokenPair, error) {
	return f.refreshPair, f.refreshErr
}

type fakeDispatcher struct {
	task    *model.Task
	outcome *dispatch.Outcome
	err     error

	gotReq      dispatch.Request
	gotOperator string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req dispatch.Request, operatorID string) (*model.Task, *dispatch.Outcome, error) {
	f.gotReq = req
	f.gotOperator = operatorID
	return f.task, f.outcome, f.err
}

type fakeSyncer struct {
	calls int
	err   error
}

func (f *fakeSyncer) Sync(context.Context) error {
	f.calls++
	return f.err
}

type testAPI struct {
	srv      *httptest.Server
	store    *store.Store
	auth     *fakeAuth
	dispatch *fakeDispatcher
	syncer   *fakeSyncer
}

func claimsFor(userID string, role model.Role) *auth.Claims {
	return &auth.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fa := &fakeAuth{tokens: map[string]*auth.Claims{
		"admin-token":    claimsFor("admin-1", model.RoleAdmin),
		"operator-token": claimsFor("op-1", model.RoleManager),
	}}
	fd := &fakeDispatcher{}
	fs := &fakeSyncer{}

	s := NewServer(config.HTTPConfig{}, config.UploadsConfig{Dir: t.TempDir()}, st, fa, fd, fs, logx.Nop())
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, store: st, auth: fa, dispatch: fd, syncer: fs}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, env := a.do(t, http.MethodGet, "/api/channels", "", nil)
	if resp.StatusCode != http.StatusUnauthorized || env.OK {
		t.Fatalf("status = %d ok = %v, want 401 with ok=false", resp.StatusCode, env.OK)
	}
	resp, _ = a.do(t, http.MethodGet, "/api/channels", "garbage", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	a.auth.loginChallenge = &auth.Challenge{UserID: "op-1"}

	resp, env := a.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice", "password": "hunter2"})
	if resp.StatusCode != http.StatusOK || !env.OK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	a.auth.loginErr = auth.ErrBadCredentials
	resp, _ = a.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice", "password": "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad credentials status = %d, want 401", resp.StatusCode)
	}

	a.auth.loginErr = &auth.NotReachableError{BotLink: "https://t.me/x"}
	resp, env = a.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice", "password": "hunter2"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("unreachable status = %d, want 409", resp.StatusCode)
	}
	if env.Message == "" {
		t.Fatal("unreachable login lost its guidance message")
	}
}

func TestChannelCreateValidation(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing address", map[string]string{"name": "A", "work_start": "09:00", "work_end": "18:00"}},
		{"bad window format", map[string]string{"address": "@a", "name": "A", "work_start": "9am", "work_end": "18:00"}},
		{"start not before end", map[string]string{"address": "@a", "name": "A", "work_start": "18:00", "work_end": "09:00"}},
	}
	for _, tc := range cases {
		resp, _ := a.do(t, http.MethodPost, "/api/channels", "operator-token", tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestChannelLifecycle(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	body := map[string]string{"address": "@desk", "name": "Desk", "work_start": "09:00", "work_end": "18:00"}

	resp, env := a.do(t, http.MethodPost, "/api/channels", "operator-token", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, env.Message)
	}
	var created model.Channel
	mustRemarshal(t, env.Data, &created)
	if created.CreatedBy != "op-1" {
		t.Fatalf("created_by = %q, want the operator", created.CreatedBy)
	}

	// Duplicate address is rejected.
	resp, _ = a.do(t, http.MethodPost, "/api/channels", "operator-token", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}

	// A different operator may not modify it, an admin may.
	a.auth.tokens["other-token"] = claimsFor("op-2", model.RoleUser)
	update := map[string]string{"address": "@desk", "name": "Front Desk", "work_start": "08:00", "work_end": "17:00"}
	resp, _ = a.do(t, http.MethodPut, "/api/channels/"+created.ID, "other-token", update)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign update status = %d, want 403", resp.StatusCode)
	}
	resp, _ = a.do(t, http.MethodPut, "/api/channels/"+created.ID, "admin-token", update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin update status = %d, want 200", resp.StatusCode)
	}

	resp, _ = a.do(t, http.MethodDelete, "/api/channels/"+created.ID, "operator-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	resp, _ = a.do(t, http.MethodDelete, "/api/channels/"+created.ID, "operator-token", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestUsersAdminOnly(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, _ := a.do(t, http.MethodGet, "/api/users", "operator-token", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", resp.StatusCode)
	}

	resp, env := a.do(t, http.MethodPost, "/api/users", "admin-token", map[string]any{
		"username": "Bob", "password": "longenough", "fullname": "Bob B",
		"tele_user": "@bob_tg", "role": int(model.RoleUser),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, env.Message)
	}
	var created model.User
	mustRemarshal(t, env.Data, &created)
	if created.Username != "bob" {
		t.Fatalf("username = %q, want lowercased", created.Username)
	}
	if created.TeleUser != "bob_tg" {
		t.Fatalf("tele_user = %q, want the @ stripped", created.TeleUser)
	}

	resp, _ = a.do(t, http.MethodPost, "/api/users", "admin-token", map[string]any{
		"username": "bob", "password": "longenough", "role": int(model.RoleUser),
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate username status = %d, want 409", resp.StatusCode)
	}

	resp, _ = a.do(t, http.MethodDelete, "/api/users/admin-1", "admin-token", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("self delete status = %d, want 400", resp.StatusCode)
	}
}

func TestBroadcastEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	a.dispatch.task = &model.Task{ID: "t-1", Status: model.TaskCompleted}
	a.dispatch.outcome = &dispatch.Outcome{
		Succeeded: []string{"@a"},
		Failed:    []dispatch.Failure{{Channel: "@b", ChannelName: "B", Reason: dispatch.ReasonOutsideHours}},
	}

	resp, env := a.do(t, http.MethodPost, "/api/broadcasts", "operator-token", map[string]any{
		"content": "hello", "channels": []string{"@a", "@b"},
	})
	if resp.StatusCode != http.StatusOK || !env.OK {
		t.Fatalf("status = %d: %s", resp.StatusCode, env.Message)
	}
	if a.dispatch.gotOperator != "op-1" {
		t.Fatalf("operator = %q, want op-1", a.dispatch.gotOperator)
	}
	if len(a.dispatch.gotReq.Channels) != 2 {
		t.Fatalf("dispatched channels = %v", a.dispatch.gotReq.Channels)
	}

	var result struct {
		Task    *model.Task       `json:"task"`
		Outcome *dispatch.Outcome `json:"outcome"`
	}
	mustRemarshal(t, env.Data, &result)
	if len(result.Outcome.Failed) != 1 || result.Outcome.Failed[0].Reason != dispatch.ReasonOutsideHours {
		t.Fatalf("outcome = %+v", result.Outcome)
	}
}

func TestBroadcastErrorMapping(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	body := map[string]any{"content": "x", "channels": []string{"@a"}}

	a.dispatch.err = &dispatch.ValidationError{Msg: "content is required"}
	resp, _ := a.do(t, http.MethodPost, "/api/broadcasts", "operator-token", body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("validation status = %d, want 400", resp.StatusCode)
	}

	a.dispatch.err = dispatch.ErrTaskNotFound
	resp, _ = a.do(t, http.MethodPost, "/api/broadcasts", "operator-token", body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown task status = %d, want 404", resp.StatusCode)
	}

	a.dispatch.err = &dispatch.UnrecoverableError{Op: "save task", Err: errors.New("disk full")}
	resp, _ = a.do(t, http.MethodPost, "/api/broadcasts", "operator-token", body)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unrecoverable status = %d, want 500", resp.StatusCode)
	}
}

func TestListTasksRejectsBadRange(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	resp, _ := a.do(t, http.MethodGet, "/api/tasks?from=not-a-date", "operator-token", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad from status = %d, want 400", resp.StatusCode)
	}
	resp, _ = a.do(t, http.MethodGet, "/api/tasks?from=2026-03-10&to=2026-03-01", "operator-token", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d, want 400", resp.StatusCode)
	}
}

func TestListTasksJoinsChannels(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	ctx := context.Background()
	ch := &model.Channel{ID: "c-1", Address: "@desk", Name: "Desk",
		WorkStart: 9 * 60, WorkEnd: 18 * 60, CreatedAt: time.Now()}
	if err := a.store.CreateChannel(ctx, ch); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	task := &model.Task{ID: "t-1", Content: "hi", Channels: []string{"@desk", "@gone"},
		Status: model.TaskCompleted, CreatedAt: time.Now(), SentAt: time.Now()}
	if err := a.store.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	from := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	to := time.Now().Format("2006-01-02")
	resp, env := a.do(t, http.MethodGet, fmt.Sprintf("/api/tasks?from=%s&to=%s", from, to), "operator-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, env.Message)
	}
	var tasks []model.Task
	mustRemarshal(t, env.Data, &tasks)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if len(tasks[0].Groups) != 1 || tasks[0].Groups[0].Name != "Desk" {
		t.Fatalf("joined groups = %+v, want only Desk", tasks[0].Groups)
	}
}

func TestDirectorySyncEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	if err := a.store.ReplaceDirectory(context.Background(), []model.DirectoryEntry{
		{ID: "d-1", Username: "alice_tg", ChatID: "100200300", CreatedAt: time.Now()},
		{ID: "d-2", Username: "bob_tg", ChatID: "100200301", CreatedAt: time.Now()},
	}); err != nil {
		t.Fatalf("ReplaceDirectory: %v", err)
	}

	resp, _ := a.do(t, http.MethodPost, "/api/directory/sync", "operator-token", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", resp.StatusCode)
	}
	if a.syncer.calls != 0 {
		t.Fatal("a non-admin triggered a sync")
	}

	resp, env := a.do(t, http.MethodPost, "/api/directory/sync", "admin-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, env.Message)
	}
	if a.syncer.calls != 1 {
		t.Fatalf("sync calls = %d, want 1", a.syncer.calls)
	}
	var result struct {
		Entries int `json:"entries"`
	}
	mustRemarshal(t, env.Data, &result)
	if result.Entries != 2 {
		t.Fatalf("entries = %d, want the directory size", result.Entries)
	}

	a.syncer.err = errors.New("quota exceeded")
	resp, _ = a.do(t, http.MethodPost, "/api/directory/sync", "admin-token", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failed sync status = %d, want 502", resp.StatusCode)
	}
}

func TestDirectorySyncNotConfigured(t *testing.T) {
	t.Parallel()

	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	fa := &fakeAuth{tokens: map[string]*auth.Claims{
		"admin-token": claimsFor("admin-1", model.RoleAdmin),
	}}
	s := NewServer(config.HTTPConfig{}, config.UploadsConfig{Dir: t.TempDir()}, st, fa, &fakeDispatcher{}, nil, logx.Nop())
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/directory/sync", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer admin-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

// mustRemarshal moves envelope data into a typed struct.
func mustRemarshal(t *testing.T, data any, dst any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}
