package rbac

import "testing"

func TestPolicyAllowed(t *testing.T) {
	p := MustNewPolicy()
	if !p.Allowed([]string{"admin"}, "controls.import") {
		t.Fatal("admin must be allowed controls.import")
	}
	if !p.Allowed([]string{"assessor"}, "systems.controls.manage") {
		t.Fatal("assessor must be allowed systems.controls.manage")
	}
	if p.Allowed([]string{"assessor"}, "controls.import") {
		t.Fatal("assessor must not import catalogs")
	}
	if !p.Allowed([]string{"auditor"}, "logs.view") {
		t.Fatal("auditor must read logs")
	}
	if p.Allowed([]string{"auditor"}, "systems.manage") {
		t.Fatal("auditor must not manage systems")
	}
	if p.Allowed(nil, "controls.view") {
		t.Fatal("no roles, no access")
	}
	if p.Allowed([]string{"made-up"}, "controls.view") {
		t.Fatal("unknown roles carry no permissions")
	}
}

func TestNormalizeRoles(t *testing.T) {
	got := NormalizeRoles([]string{" Admin ", "auditor", "bogus", "", "admin"})
	if len(got) != 2 || got[0] != "admin" || got[1] != "auditor" {
		t.Fatalf("unexpected roles: %v", got)
	}
}
