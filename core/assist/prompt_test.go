package assist

import (
	"strings"
	"testing"

	"atlas-grc/core/store"
)

func TestBuildPosturePromptDeterministic(t *testing.T) {
	sys := &store.System{Name: "Payroll", Description: "HR payroll processing"}
	stats := &store.SystemControlStats{
		Total:    3,
		ByStatus: map[string]int{"planned": 1, "implemented": 2},
	}
	a := BuildPosturePrompt(sys, stats, "What is left to do?")
	b := BuildPosturePrompt(sys, stats, "What is left to do?")
	if len(a) != 2 || a[0].Role != RoleSystem || a[1].Role != RoleUser {
		t.Fatalf("unexpected message shape: %+v", a)
	}
	if a[1].Content != b[1].Content {
		t.Fatalf("prompt not deterministic:\n%s\n---\n%s", a[1].Content, b[1].Content)
	}
	idxImpl := strings.Index(a[1].Content, "implemented: 2")
	idxPlan := strings.Index(a[1].Content, "planned: 1")
	if idxImpl < 0 || idxPlan < 0 || idxImpl > idxPlan {
		t.Fatalf("status lines missing or unsorted:\n%s", a[1].Content)
	}
	if !strings.Contains(a[1].Content, "Question: What is left to do?") {
		t.Fatalf("question missing:\n%s", a[1].Content)
	}
}
