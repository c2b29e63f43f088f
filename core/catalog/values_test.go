package catalog

import "testing"

func TestNormalizeInList(t *testing.T) {
	if got, ok := NormalizeInList(" Implemented ", Statuses); !ok || got != StatusImplemented {
		t.Fatalf("unexpected: %q %v", got, ok)
	}
	if _, ok := NormalizeInList("bogus", Statuses); ok {
		t.Fatal("bogus status must not normalize")
	}
	if _, ok := NormalizeInList("", Statuses); ok {
		t.Fatal("empty status must not normalize")
	}
}

func TestCanonicalBaseline(t *testing.T) {
	if got := CanonicalBaseline("high"); got != BaselineHigh {
		t.Fatalf("unexpected: %q", got)
	}
	if got := CanonicalBaseline(" moderate "); got != BaselineModerate {
		t.Fatalf("unexpected: %q", got)
	}
	if got := CanonicalBaseline("Tailored"); got != "Tailored" {
		t.Fatalf("custom labels must pass through, got %q", got)
	}
}
