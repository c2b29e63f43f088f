package bootstrap

import (
	"context"
	"database/sql"
	"strings"

	"atlas-grc/config"
	"atlas-grc/core/auth"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

// EnsureDefaultAdmin seeds the admin account on first start. The initial
// password comes from config; absent that, "admin" is used and flagged in
// the log so operators rotate it.
func EnsureDefaultAdmin(ctx context.Context, db *sql.DB, cfg *config.AppConfig, logger *utils.Logger) error {
	us := store.NewUsersStore(db)
	return EnsureDefaultAdminWithStore(ctx, us, cfg, logger)
}

func EnsureDefaultAdminWithStore(ctx context.Context, us store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) error {
	existing, err := us.FindByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if existing != nil {
		if !hasRole(existing.Roles, "admin") {
			existing.Roles = append(existing.Roles, "admin")
			if err := us.Update(ctx, existing); err != nil {
				logger.Warnf("default admin role update failed: %v", err)
			}
		}
		return nil
	}
	password := strings.TrimSpace(cfg.AdminPassword)
	if password == "" {
		password = "admin"
		logger.Warnf("default admin created with default password; set ATLAS_ADMIN_PASSWORD and rotate")
	}
	ph := auth.MustHashPassword(password, cfg.Pepper)
	u := &store.User{
		Username:     "admin",
		FullName:     "Default Administrator",
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		Roles:        []string{"admin"},
		Active:       true,
	}
	_, err = us.Create(ctx, u)
	if err == nil {
		logger.Printf("default admin created")
	}
	return err
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(r), want) {
			return true
		}
	}
	return false
}
