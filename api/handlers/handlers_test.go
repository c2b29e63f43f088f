package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"atlas-grc/config"
	"atlas-grc/core/auth"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

func mustTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{DBPath: filepath.Join(dir, "tmp.db"), Pepper: "pepper"}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Pepper: "pepper",
		AppEnv: "dev",
		Catalog: config.CatalogConfig{
			DefaultFramework: "NIST-800-53",
			ImportBatchSize:  100,
		},
	}
}

// withTestSession attaches an admin session and chi URL params to the request.
func withTestSession(r *http.Request, params map[string]string) *http.Request {
	ctx := context.WithValue(r.Context(), auth.SessionContextKey, &store.SessionRecord{
		UserID:   1,
		Username: "admin",
		Roles:    []string{"admin"},
	})
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func seedTestCatalog(t *testing.T, cs store.ControlsStore) {
	t.Helper()
	rows := []store.Control{
		{ID: "AC-1", Framework: "NIST-800-53", Family: "Access Control", Title: "Policy and Procedures", Description: "Access control policy.", Baselines: []string{"Low", "Moderate", "High"}},
		{ID: "AC-2", Framework: "NIST-800-53", Family: "Access Control", Title: "Account Management", Description: "Manage accounts.", Baselines: []string{"Low", "Moderate", "High"}},
		{ID: "AU-2", Framework: "NIST-800-53", Family: "Audit and Accountability", Title: "Event Logging", Description: "Identify loggable events.", Baselines: []string{"Moderate", "High"}},
	}
	if _, err := cs.BulkImport(context.Background(), rows, store.ImportOptions{}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}

func mustSystem(t *testing.T, ss store.SystemsStore) *store.System {
	t.Helper()
	sys := &store.System{Name: "Payroll", CreatedBy: "admin"}
	if _, err := ss.Create(context.Background(), sys); err != nil {
		t.Fatalf("create system: %v", err)
	}
	return sys
}
