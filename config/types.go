package config

import "time"

type AppConfig struct {
	DBDriver   string        `yaml:"db_driver" env:"ATLAS_DB_DRIVER"`
	DBURL      string        `yaml:"db_url" env:"ATLAS_DB_URL"`
	DBPath     string        `yaml:"db_path" env:"ATLAS_DB_PATH"`
	ListenAddr string        `yaml:"listen_addr" env:"ATLAS_LISTEN_ADDR" env-default:":8080"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"ATLAS_SESSION_TTL" env-default:"12h"`
	AppEnv     string        `yaml:"app_env" env:"ATLAS_APP_ENV" env-default:"dev"`
	Pepper     string        `yaml:"pepper" env:"ATLAS_PEPPER"`
	TLSEnabled bool          `yaml:"tls_enabled" env:"ATLAS_TLS_ENABLED"`
	TLSCert    string        `yaml:"tls_cert" env:"ATLAS_TLS_CERT"`
	TLSKey     string        `yaml:"tls_key" env:"ATLAS_TLS_KEY"`

	AdminPassword string `yaml:"admin_password" env:"ATLAS_ADMIN_PASSWORD"`

	Catalog       CatalogConfig       `yaml:"catalog"`
	Observability ObservabilityConfig `yaml:"observability"`
	Maintenance   MaintenanceConfig   `yaml:"maintenance"`
	Assist        AssistConfig        `yaml:"assist"`
}

type CatalogConfig struct {
	// DefaultFramework is assumed when an import row carries no framework tag.
	DefaultFramework string `yaml:"default_framework" env:"ATLAS_CATALOG_FRAMEWORK" env-default:"NIST-800-53"`
	ImportBatchSize  int    `yaml:"import_batch_size" env:"ATLAS_CATALOG_BATCH_SIZE" env-default:"100"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"ATLAS_METRICS_ENABLED"`
	MetricsToken   string `yaml:"metrics_token" env:"ATLAS_METRICS_TOKEN"`
}

type MaintenanceConfig struct {
	Enabled            bool   `yaml:"enabled" env:"ATLAS_MAINTENANCE_ENABLED" env-default:"true"`
	Schedule           string `yaml:"schedule" env:"ATLAS_MAINTENANCE_SCHEDULE" env-default:"@hourly"`
	AuditRetentionDays int    `yaml:"audit_retention_days" env:"ATLAS_AUDIT_RETENTION_DAYS" env-default:"365"`
}

type AssistConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ATLAS_ASSIST_ENABLED"`
	Model      string `yaml:"model" env:"ATLAS_ASSIST_MODEL" env-default:"gpt-4o"`
	BaseURL    string `yaml:"base_url" env:"ATLAS_ASSIST_BASE_URL"`
	APIKey     string `yaml:"api_key" env:"ATLAS_ASSIST_API_KEY"`
	TimeoutSec int    `yaml:"timeout_sec" env:"ATLAS_ASSIST_TIMEOUT_SEC" env-default:"120"`
}

func (c *AppConfig) IsDev() bool {
	if c == nil {
		return false
	}
	return c.AppEnv == "dev"
}
