package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"atlas-grc/config"
	"atlas-grc/core/auth"
	"atlas-grc/core/bootstrap"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type AuthHandler struct {
	cfg      *config.AppConfig
	users    store.UsersStore
	sessions *auth.SessionManager
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sessions *auth.SessionManager, audits store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessions: sessions, audits: audits, logger: logger}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// Safety net: the default admin must exist before any login attempt.
	if err := bootstrap.EnsureDefaultAdminWithStore(r.Context(), h.users, h.cfg, h.logger); err != nil {
		h.logger.Errorf("ensure default admin: %v", err)
	}
	var cred credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	cred.Username = strings.ToLower(strings.TrimSpace(cred.Username))
	if cred.Username == "" || cred.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}
	user, err := h.users.FindByUsername(r.Context(), cred.Username)
	if err != nil {
		h.logger.Errorf("login lookup %s: %v", cred.Username, err)
		writeStoreError(w)
		return
	}
	if user == nil || !user.Active {
		_ = h.audits.Log(r.Context(), cred.Username, "auth.login_failed", "user missing or inactive")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	ok, err := auth.VerifyPassword(cred.Password, h.cfg.Pepper, &auth.PasswordHash{Hash: user.PasswordHash, Salt: user.Salt})
	if err != nil || !ok {
		_ = h.audits.Log(r.Context(), cred.Username, "auth.login_failed", "bad password")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	sess, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		h.logger.Errorf("session create %s: %v", cred.Username, err)
		writeStoreError(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.TLSEnabled,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	_ = h.audits.Log(r.Context(), user.Username, "auth.login", "")
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.ID,
		"username":   user.Username,
		"roles":      user.Roles,
		"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := auth.FromContext(r.Context())
	if sess != nil {
		if err := h.sessions.Destroy(r.Context(), sess.ID); err != nil {
			h.logger.Warnf("logout %s: %v", sess.Username, err)
		}
		_ = h.audits.Log(r.Context(), sess.Username, "auth.logout", "")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := auth.FromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.FindByUsername(r.Context(), sess.Username)
	if err != nil {
		writeStoreError(w)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
