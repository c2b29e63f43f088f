package auth

import (
	"context"
	"time"

	"atlas-grc/config"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
	"github.com/gofrs/uuid/v5"
)

type contextKey string

// SessionContextKey carries the *store.SessionRecord of the authenticated
// request.
const SessionContextKey contextKey = "atlas.session"

type SessionManager struct {
	sessions store.SessionStore
	ttl      time.Duration
	logger   *utils.Logger
}

func NewSessionManager(sessions store.SessionStore, cfg *config.AppConfig, logger *utils.Logger) *SessionManager {
	ttl := 12 * time.Hour
	if cfg != nil && cfg.SessionTTL > 0 {
		ttl = cfg.SessionTTL
	}
	return &SessionManager{sessions: sessions, ttl: ttl, logger: logger}
}

func (m *SessionManager) Create(ctx context.Context, user *store.User) (*store.SessionRecord, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sr := &store.SessionRecord{
		ID:         id.String(),
		UserID:     user.ID,
		Username:   user.Username,
		Roles:      user.Roles,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.sessions.SaveSession(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

func (m *SessionManager) Resolve(ctx context.Context, id string) (*store.SessionRecord, error) {
	if id == "" {
		return nil, nil
	}
	return m.sessions.GetSession(ctx, id)
}

func (m *SessionManager) Destroy(ctx context.Context, id string) error {
	return m.sessions.DeleteSession(ctx, id)
}

func (m *SessionManager) Touch(ctx context.Context, id string, now time.Time) {
	if err := m.sessions.UpdateActivity(ctx, id, now, m.ttl); err != nil {
		m.logger.Warnf("session touch failed: %v", err)
	}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// FromContext returns the session attached by the auth middleware, or nil.
func FromContext(ctx context.Context) *store.SessionRecord {
	if v := ctx.Value(SessionContextKey); v != nil {
		if sr, ok := v.(*store.SessionRecord); ok {
			return sr
		}
	}
	return nil
}
