package rbac

import (
	"sort"
	"strings"
)

type Permission string

var permissions = []Permission{
	"controls.view", "controls.import",
	"systems.view", "systems.manage",
	"systems.controls.view", "systems.controls.manage",
	"accounts.view", "accounts.manage",
	"assist.use",
	"logs.view",
}

var knownPermissionSet = buildPermissionSet()

func buildPermissionSet() map[Permission]struct{} {
	out := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		out[p] = struct{}{}
	}
	return out
}

func AllPermissions() []Permission {
	out := make([]Permission, len(permissions))
	copy(out, permissions)
	return out
}

func IsKnownPermission(p Permission) bool {
	_, ok := knownPermissionSet[p]
	return ok
}

// RolePermissions is the built-in role model. Admin gets everything;
// assessors work systems and assignments; auditors read.
var RolePermissions = map[string][]Permission{
	"admin": AllPermissions(),
	"assessor": {
		"controls.view",
		"systems.view", "systems.manage",
		"systems.controls.view", "systems.controls.manage",
		"assist.use",
	},
	"auditor": {
		"controls.view",
		"systems.view",
		"systems.controls.view",
		"logs.view",
	},
}

func KnownRoles() []string {
	out := make([]string, 0, len(RolePermissions))
	for r := range RolePermissions {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func NormalizeRoles(in []string) []string {
	set := map[string]struct{}{}
	for _, raw := range in {
		r := strings.ToLower(strings.TrimSpace(raw))
		if r == "" {
			continue
		}
		if _, known := RolePermissions[r]; known {
			set[r] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
