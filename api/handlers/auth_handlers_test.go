package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atlas-grc/core/auth"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	db := mustTestDB(t)
	cfg := testConfig()
	logger := utils.NewLogger()
	mgr := auth.NewSessionManager(store.NewSessionsStore(db), cfg, logger)
	return NewAuthHandler(cfg, store.NewUsersStore(db), mgr, store.NewAuditStore(db), logger)
}

func TestLoginSeedsAdminAndIssuesSession(t *testing.T) {
	h := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ADMIN ","password":"admin"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var body struct {
		Token    string   `json:"token"`
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == "" || body.Username != "admin" {
		t.Fatalf("body: %+v", body)
	}
	cookieSet := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value == body.Token {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Fatalf("session cookie not set")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"wrong"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("error body missing: %s", rr.Body.String())
	}
}

func TestMeRequiresSession(t *testing.T) {
	h := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rr := httptest.NewRecorder()
	h.Me(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
