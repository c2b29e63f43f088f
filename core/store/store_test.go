package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"atlas-grc/config"
	"atlas-grc/core/utils"
)

func mustTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{DBPath: filepath.Join(dir, "tmp.db"), Pepper: "pepper"}
	logger := utils.NewLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func strptr(s string) *string { return &s }

// fixtureControls is the small NIST-flavored catalog the store tests run
// against. AC-2(1) deliberately sits outside the High baseline.
func fixtureControls() []Control {
	return []Control{
		{ID: "AC-1", Framework: "NIST-800-53", Family: "Access Control", Title: "Policy and Procedures", Description: "Develop and maintain access control policy.", Baselines: []string{"Low", "Moderate", "High"}, Priority: strptr("P1")},
		{ID: "AC-2", Framework: "NIST-800-53", Family: "Access Control", Title: "Account Management", Description: "Manage information system accounts.", Baselines: []string{"Low", "Moderate", "High"}, Priority: strptr("P1")},
		{ID: "AC-2(1)", Framework: "NIST-800-53", Family: "Access Control", Title: "Automated Account Management", Description: "Employ automated mechanisms for account management.", Baselines: []string{"Moderate"}, Enhancement: strptr("1"), ParentControlID: strptr("AC-2")},
		{ID: "AC-3", Framework: "NIST-800-53", Family: "Access Control", Title: "Access Enforcement", Description: "Enforce approved authorizations.", Baselines: []string{"Low", "Moderate", "High"}, Priority: strptr("P1")},
		{ID: "AU-2", Framework: "NIST-800-53", Family: "Audit and Accountability", Title: "Event Logging", Description: "Identify events to be logged.", Baselines: []string{"Low", "Moderate", "High"}},
		{ID: "AU-6", Framework: "NIST-800-53", Family: "Audit and Accountability", Title: "Audit Record Review", Description: "Review and analyze audit records.", Baselines: []string{"Moderate", "High"}, Priority: strptr("P2")},
		{ID: "CM-2", Framework: "NIST-800-53", Family: "Configuration Management", Title: "Baseline Configuration", Description: "Develop and maintain a baseline configuration.", Baselines: []string{"Low", "Moderate", "High"}, Priority: strptr("P1")},
	}
}

func seedCatalog(t *testing.T, cs ControlsStore) {
	t.Helper()
	res, err := cs.BulkImport(context.Background(), fixtureControls(), ImportOptions{})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	if res.Imported != len(fixtureControls()) || res.Skipped != 0 || res.Failed != 0 {
		t.Fatalf("unexpected seed result: %+v", res)
	}
}

func mustCreateSystem(t *testing.T, ss SystemsStore, name string) *System {
	t.Helper()
	sys := &System{Name: name, Owner: "isso", CreatedBy: "admin"}
	if _, err := ss.Create(context.Background(), sys); err != nil {
		t.Fatalf("create system: %v", err)
	}
	return sys
}
