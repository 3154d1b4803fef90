package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"wtq-task-mining/internal/core"
	"wtq-task-mining/internal/store"
	"wtq-task-mining/internal/web"
)

func newTestServer(t *testing.T) (*httptest.Server, *core.Service) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	service := core.NewService(st)
	srv, err := web.NewServer(service, "test-secret")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, service
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestSignUpAndProfileFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, ts.URL+"/api/signup", map[string]string{
		"email":    "worker@example.com",
		"password": "secret123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201", resp.StatusCode)
	}

	// The session cookie from signup authorizes the profile endpoint
	profileResp, err := client.Get(ts.URL + "/api/profile")
	if err != nil {
		t.Fatal(err)
	}
	defer profileResp.Body.Close()
	if profileResp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d, want 200", profileResp.StatusCode)
	}

	var profile struct {
		Email      string `json:"email"`
		InviteCode string `json:"invite_code"`
		LevelName  string `json:"level_name"`
	}
	if err := json.NewDecoder(profileResp.Body).Decode(&profile); err != nil {
		t.Fatal(err)
	}
	if profile.Email != "worker@example.com" || profile.InviteCode == "" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.LevelName != "LV0" {
		t.Errorf("level_name = %s, want LV0", profile.LevelName)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/profile")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminEndpointsFailClosed(t *testing.T) {
	ts, service := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, ts.URL+"/api/signup", map[string]string{
		"email":    "user@example.com",
		"password": "secret123",
	})
	resp.Body.Close()

	// A regular signed-in user must not reach the admin queue
	adminResp, err := client.Get(ts.URL + "/api/admin/transactions")
	if err != nil {
		t.Fatal(err)
	}
	defer adminResp.Body.Close()
	if adminResp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d for non-admin, want 403", adminResp.StatusCode)
	}

	// After the role grant the same session passes
	if err := service.EnsureAdmin("user@example.com"); err != nil {
		t.Fatal(err)
	}
	okResp, err := client.Get(ts.URL + "/api/admin/transactions")
	if err != nil {
		t.Fatal(err)
	}
	defer okResp.Body.Close()
	if okResp.StatusCode != http.StatusOK {
		t.Errorf("status = %d for admin, want 200", okResp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, ts.URL+"/api/signup", map[string]string{
		"email":    "user@example.com",
		"password": "secret123",
	})
	resp.Body.Close()

	bad := postJSON(t, newClient(t), ts.URL+"/api/login", map[string]string{
		"email":    "user@example.com",
		"password": "wrong",
	})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d for wrong password, want 401", bad.StatusCode)
	}
}

func TestLevelsEndpointIsPublic(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/levels")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Regular []core.LevelConfig `json:"regular"`
		VIP     []core.LevelConfig `json:"vip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Regular) != 5 || len(body.VIP) != 5 {
		t.Errorf("got %d regular and %d vip levels, want 5 each", len(body.Regular), len(body.VIP))
	}
}
