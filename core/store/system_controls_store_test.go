package store

import (
	"context"
	"testing"
	"time"
)

func TestBulkAssignPartialSet(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	scs := NewSystemControlsStore(db)
	seedCatalog(t, cs)
	sys := mustCreateSystem(t, NewSystemsStore(db), "Payroll")
	ctx := context.Background()

	pre, err := scs.BulkAssign(ctx, sys.ID, []string{"AC-2"}, "admin")
	if err != nil {
		t.Fatalf("pre-assign: %v", err)
	}
	if len(pre.Inserted) != 1 {
		t.Fatalf("pre-assign inserted=%d", len(pre.Inserted))
	}

	// Duplicate in input, pre-existing pair, and an unknown id in one call.
	res, err := scs.BulkAssign(ctx, sys.ID, []string{"AC-1", "AC-1", "AC-2", "ZZ-99"}, "admin")
	if err != nil {
		t.Fatalf("bulk assign: %v", err)
	}
	if len(res.Inserted) != 1 || res.Inserted[0].ControlID != "AC-1" {
		t.Fatalf("inserted=%+v, want only AC-1", res.Inserted)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped=%v, want the duplicate AC-1 and pre-existing AC-2", res.Skipped)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "ZZ-99" {
		t.Fatalf("failed=%v, want ZZ-99", res.Failed)
	}
	if res.Inserted[0].Status != "not_implemented" {
		t.Fatalf("status=%s, want not_implemented", res.Inserted[0].Status)
	}
	if res.Inserted[0].Title != "Policy and Procedures" {
		t.Fatalf("joined title=%s", res.Inserted[0].Title)
	}

	stats, err := scs.StatsForSystem(ctx, sys.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("total=%d after bulk assign", stats.Total)
	}
}

func TestUpdateMergesPatchAndStamps(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	scs := NewSystemControlsStore(db)
	seedCatalog(t, cs)
	sys := mustCreateSystem(t, NewSystemsStore(db), "Payroll")
	ctx := context.Background()

	if _, err := scs.BulkAssign(ctx, sys.ID, []string{"AC-1"}, "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	before := time.Now().UTC().Add(-time.Second)
	status := "implemented"
	row, err := scs.Update(ctx, sys.ID, "AC-1", SystemControlPatch{Status: &status}, "alice")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if row == nil || row.Status != "implemented" {
		t.Fatalf("row=%+v", row)
	}
	if row.UpdatedBy != "alice" {
		t.Fatalf("updated_by=%s, want alice", row.UpdatedBy)
	}
	if row.LastUpdated.Before(before) {
		t.Fatalf("last_updated not stamped: %s", row.LastUpdated)
	}

	// Patching one field leaves the rest untouched.
	text := "Implemented via centralized IdP."
	row, err = scs.Update(ctx, sys.ID, "AC-1", SystemControlPatch{ImplementationText: &text}, "bob")
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if row.Status != "implemented" || row.ImplementationText != text || row.UpdatedBy != "bob" {
		t.Fatalf("merge broke fields: %+v", row)
	}
}

func TestUpdateMissingPairReturnsNil(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	scs := NewSystemControlsStore(db)
	seedCatalog(t, cs)
	sys := mustCreateSystem(t, NewSystemsStore(db), "Payroll")

	status := "planned"
	row, err := scs.Update(context.Background(), sys.ID, "AC-3", SystemControlPatch{Status: &status}, "alice")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil for unassigned pair, got %+v", row)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	scs := NewSystemControlsStore(db)
	seedCatalog(t, cs)
	sys := mustCreateSystem(t, NewSystemsStore(db), "Payroll")
	ctx := context.Background()

	if _, err := scs.BulkAssign(ctx, sys.ID, []string{"AC-1"}, "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := scs.Remove(ctx, sys.ID, "AC-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := scs.Remove(ctx, sys.ID, "AC-1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	row, err := scs.GetOne(ctx, sys.ID, "AC-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row != nil {
		t.Fatalf("row survived remove: %+v", row)
	}
}

func TestStatsSumInvariant(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	scs := NewSystemControlsStore(db)
	seedCatalog(t, cs)
	sys := mustCreateSystem(t, NewSystemsStore(db), "Payroll")
	ctx := context.Background()

	if _, err := scs.BulkAssign(ctx, sys.ID, []string{"AC-1", "AC-2", "AC-3", "AU-2"}, "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for id, status := range map[string]string{"AC-1": "implemented", "AC-2": "planned", "AC-3": "implemented"} {
		s := status
		if _, err := scs.Update(ctx, sys.ID, id, SystemControlPatch{Status: &s}, "admin"); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}

	stats, err := scs.StatsForSystem(ctx, sys.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	sum := 0
	for _, n := range stats.ByStatus {
		sum += n
	}
	if sum != stats.Total || stats.Total != 4 {
		t.Fatalf("sum=%d total=%d", sum, stats.Total)
	}
	if stats.ByStatus["implemented"] != 2 || stats.ByStatus["planned"] != 1 || stats.ByStatus["not_implemented"] != 1 {
		t.Fatalf("byStatus=%v", stats.ByStatus)
	}
}

func TestListForSystemFiltersAndPaginates(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	scs := NewSystemControlsStore(db)
	seedCatalog(t, cs)
	systems := NewSystemsStore(db)
	sys := mustCreateSystem(t, systems, "Payroll")
	other := mustCreateSystem(t, systems, "HR Portal")
	ctx := context.Background()

	if _, err := scs.BulkAssign(ctx, sys.ID, []string{"AC-1", "AC-2", "AC-2(1)", "AU-2", "CM-2"}, "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := scs.BulkAssign(ctx, other.ID, []string{"AC-3"}, "admin"); err != nil {
		t.Fatalf("assign other: %v", err)
	}

	// System equality is mandatory: the other system's rows never leak in.
	rows, total, err := scs.ListForSystem(ctx, sys.ID, ControlFilter{}, PageRequest{Page: 1, Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(rows) != 3 {
		t.Fatalf("total=%d rows=%d", total, len(rows))
	}
	if rows[0].ControlID != "AC-1" || rows[1].ControlID != "AC-2" || rows[2].ControlID != "AC-2(1)" {
		t.Fatalf("unexpected order: %s %s %s", rows[0].ControlID, rows[1].ControlID, rows[2].ControlID)
	}

	rows, total, err = scs.ListForSystem(ctx, sys.ID, ControlFilter{Family: "Access Control", Baseline: "High"}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("filtered: total=%d rows=%d", total, len(rows))
	}
	for _, r := range rows {
		if r.ControlID == "AC-2(1)" {
			t.Fatalf("Moderate-only enhancement matched High filter")
		}
	}

	rows, total, err = scs.ListForSystem(ctx, sys.ID, ControlFilter{Search: "baseline configuration"}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("search list: %v", err)
	}
	if total != 1 || rows[0].ControlID != "CM-2" {
		t.Fatalf("search: total=%d rows=%v", total, rows)
	}
}

func TestListForSystemDedupesMultiFrameworkCatalog(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	scs := NewSystemControlsStore(db)
	seedCatalog(t, cs)
	sys := mustCreateSystem(t, NewSystemsStore(db), "Payroll")
	ctx := context.Background()

	// Same control id under a second framework.
	res, err := cs.BulkImport(ctx, []Control{
		{ID: "AC-1", Framework: "CNSSI-1253", Family: "Access Control", Title: "Access Control Policy", Description: "Overlay variant of the policy control.", Baselines: []string{"High"}},
	}, ImportOptions{})
	if err != nil {
		t.Fatalf("import overlay: %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("unexpected overlay import: %+v", res)
	}

	if _, err := scs.BulkAssign(ctx, sys.ID, []string{"AC-1"}, "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	rows, total, err := scs.ListForSystem(ctx, sys.ID, ControlFilter{}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("total=%d rows=%d, want one row per assignment", total, len(rows))
	}
	// The join pins the lowest framework.
	if rows[0].Title != "Access Control Policy" {
		t.Fatalf("joined title=%s", rows[0].Title)
	}

	one, err := scs.GetOne(ctx, sys.ID, "AC-1")
	if err != nil {
		t.Fatalf("get one: %v", err)
	}
	if one == nil || one.Title != "Access Control Policy" {
		t.Fatalf("get one: %+v", one)
	}
}
