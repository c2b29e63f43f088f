package store

import (
	"context"
	"testing"
)

func TestListControlsPagination(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)
	ctx := context.Background()

	rows, total, err := cs.ListControls(ctx, ControlFilter{}, PageRequest{Page: 1, Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 7 || len(rows) != 3 {
		t.Fatalf("page 1: total=%d rows=%d", total, len(rows))
	}
	if rows[0].ID != "AC-1" || rows[1].ID != "AC-2" || rows[2].ID != "AC-2(1)" {
		t.Fatalf("unexpected order: %s %s %s", rows[0].ID, rows[1].ID, rows[2].ID)
	}
	meta := NewPageMeta(PageRequest{Page: 1, Limit: 3}, total)
	if meta.TotalPages != 3 {
		t.Fatalf("totalPages=%d, want 3", meta.TotalPages)
	}

	// Last page holds the remainder.
	rows, total, err = cs.ListControls(ctx, ControlFilter{}, PageRequest{Page: 3, Limit: 3})
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if total != 7 || len(rows) != 1 {
		t.Fatalf("page 3: total=%d rows=%d", total, len(rows))
	}

	// Past the end: empty slice, metadata intact.
	rows, total, err = cs.ListControls(ctx, ControlFilter{}, PageRequest{Page: 4, Limit: 3})
	if err != nil {
		t.Fatalf("list page 4: %v", err)
	}
	if total != 7 || len(rows) != 0 {
		t.Fatalf("page 4: total=%d rows=%d", total, len(rows))
	}
}

func TestListControlsFilterComposition(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)
	ctx := context.Background()

	rows, total, err := cs.ListControls(ctx, ControlFilter{Family: "Access Control", Baseline: "High"}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("total=%d rows=%d, want 3 High Access Control rows", total, len(rows))
	}
	for _, c := range rows {
		if c.ID == "AC-2(1)" {
			t.Fatalf("AC-2(1) is Moderate-only, must not match High")
		}
	}
}

func TestListControlsSearchCaseInsensitive(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)

	rows, total, err := cs.ListControls(context.Background(), ControlFilter{Search: "ACCOUNT man"}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("total=%d rows=%d, want AC-2 and AC-2(1)", total, len(rows))
	}
	if rows[0].ID != "AC-2" || rows[1].ID != "AC-2(1)" {
		t.Fatalf("unexpected matches: %s %s", rows[0].ID, rows[1].ID)
	}
}

func TestListControlsSearchMatchesMetacharactersLiterally(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)
	ctx := context.Background()

	// LIKE wildcards in user input must not widen the match.
	for _, search := range []string{"%", "_", "AC_2", `\`} {
		_, total, err := cs.ListControls(ctx, ControlFilter{Search: search}, PageRequest{Page: 1, Limit: 50})
		if err != nil {
			t.Fatalf("search %q: %v", search, err)
		}
		if total != 0 {
			t.Fatalf("search %q matched %d rows, want 0", search, total)
		}
	}

	_, total, err := cs.ListControls(ctx, ControlFilter{Baseline: "%"}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if total != 0 {
		t.Fatalf("baseline %% matched %d rows, want 0", total)
	}
}

func TestGetControl(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)
	ctx := context.Background()

	ctrl, err := cs.GetControl(ctx, "", "AC-2(1)")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ctrl == nil || ctrl.ParentControlID == nil || *ctrl.ParentControlID != "AC-2" {
		t.Fatalf("unexpected control: %+v", ctrl)
	}

	ctrl, err = cs.GetControl(ctx, "", "XX-404")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ctrl != nil {
		t.Fatalf("expected nil for missing control, got %+v", ctrl)
	}
}

func TestListFamiliesAndBaselines(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)
	ctx := context.Background()

	families, err := cs.ListFamilies(ctx)
	if err != nil {
		t.Fatalf("families: %v", err)
	}
	want := []string{"Access Control", "Audit and Accountability", "Configuration Management"}
	if len(families) != len(want) {
		t.Fatalf("families=%v", families)
	}
	for i := range want {
		if families[i] != want[i] {
			t.Fatalf("families=%v, want %v", families, want)
		}
	}

	baselines, err := cs.ListBaselines(ctx)
	if err != nil {
		t.Fatalf("baselines: %v", err)
	}
	if len(baselines) != 3 || baselines[0] != "High" || baselines[1] != "Low" || baselines[2] != "Moderate" {
		t.Fatalf("baselines=%v", baselines)
	}
}

func TestCatalogStats(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)

	stats, err := cs.CatalogStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ByFamily["Access Control"] != 4 || stats.ByFamily["Audit and Accountability"] != 2 || stats.ByFamily["Configuration Management"] != 1 {
		t.Fatalf("byFamily=%v", stats.ByFamily)
	}
	// A control counts once per baseline it belongs to.
	if stats.ByBaseline["Low"] != 5 || stats.ByBaseline["Moderate"] != 7 || stats.ByBaseline["High"] != 6 {
		t.Fatalf("byBaseline=%v", stats.ByBaseline)
	}
	// AC-2(1) and AU-2 carry no priority and are excluded.
	if stats.ByPriority["P1"] != 4 || stats.ByPriority["P2"] != 1 || len(stats.ByPriority) != 2 {
		t.Fatalf("byPriority=%v", stats.ByPriority)
	}
}

func TestBulkImportDuplicateSkip(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)
	ctx := context.Background()

	res, err := cs.BulkImport(ctx, fixtureControls(), ImportOptions{})
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if res.Imported != 0 || res.Skipped != len(fixtureControls()) || res.Failed != 0 {
		t.Fatalf("unexpected reimport result: %+v", res)
	}

	_, total, err := cs.ListControls(ctx, ControlFilter{}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != len(fixtureControls()) {
		t.Fatalf("total=%d after duplicate import", total)
	}
}

func TestBulkImportReplace(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)
	seedCatalog(t, cs)
	ctx := context.Background()

	replacement := []Control{
		{ID: "SC-7", Framework: "NIST-800-53", Family: "System and Communications Protection", Title: "Boundary Protection", Description: "Monitor and control communications at boundaries.", Baselines: []string{"Low", "Moderate", "High"}},
	}
	res, err := cs.BulkImport(ctx, replacement, ImportOptions{Replace: true})
	if err != nil {
		t.Fatalf("replace import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 0 || res.Failed != 0 {
		t.Fatalf("unexpected replace result: %+v", res)
	}
	rows, total, err := cs.ListControls(ctx, ControlFilter{}, PageRequest{Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != "SC-7" {
		t.Fatalf("catalog after replace: total=%d rows=%v", total, rows)
	}
}

func TestBulkImportBatching(t *testing.T) {
	db := mustTestDB(t)
	cs := NewControlsStore(db)

	res, err := cs.BulkImport(context.Background(), fixtureControls(), ImportOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != len(fixtureControls()) || res.Failed != 0 {
		t.Fatalf("unexpected batched result: %+v", res)
	}
}
