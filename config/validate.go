package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

const defaultPepper = "dev-only-pepper-change-me"

func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "pg" && driver != "sqlite" {
		return fmt.Errorf("unsupported db_driver: %s", cfg.DBDriver)
	}
	if (driver == "postgres" || driver == "pg") && strings.TrimSpace(cfg.DBURL) == "" {
		return fmt.Errorf("db_url must be set for postgres driver")
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	pep := strings.TrimSpace(cfg.Pepper)
	if pep == "" {
		if !cfg.IsDev() {
			return fmt.Errorf("pepper must be set via env outside APP_ENV=dev")
		}
		cfg.Pepper = defaultPepper
	}
	if !cfg.IsDev() {
		if cfg.Pepper == defaultPepper {
			return fmt.Errorf("default pepper is not allowed outside APP_ENV=dev")
		}
		if !cfg.TLSEnabled {
			return fmt.Errorf("tls_enabled=false is only allowed in APP_ENV=dev")
		}
	}
	if cfg.TLSEnabled {
		if strings.TrimSpace(cfg.TLSCert) == "" || strings.TrimSpace(cfg.TLSKey) == "" {
			return fmt.Errorf("tls_cert and tls_key must be set when tls_enabled=true")
		}
	}
	if cfg.Maintenance.Enabled {
		if _, err := cron.ParseStandard(cfg.Maintenance.Schedule); err != nil {
			return fmt.Errorf("maintenance.schedule is not a valid cron expression: %v", err)
		}
	}
	if cfg.Assist.Enabled && strings.TrimSpace(cfg.Assist.APIKey) == "" && strings.TrimSpace(cfg.Assist.BaseURL) == "" {
		return fmt.Errorf("assist.api_key or assist.base_url must be set when assist is enabled")
	}
	return nil
}
