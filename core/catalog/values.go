package catalog

import "strings"

const (
	StatusNotImplemented       = "not_implemented"
	StatusPlanned              = "planned"
	StatusPartiallyImplemented = "partially_implemented"
	StatusImplemented          = "implemented"
	StatusNotApplicable        = "not_applicable"

	BaselineLow      = "Low"
	BaselineModerate = "Moderate"
	BaselineHigh     = "High"
)

var (
	Statuses = []string{StatusNotImplemented, StatusPlanned, StatusPartiallyImplemented, StatusImplemented, StatusNotApplicable}

	// Baselines lists the standard tiers; catalogs may carry custom labels,
	// so this is a canonicalization aid, not a validation whitelist.
	Baselines = []string{BaselineLow, BaselineModerate, BaselineHigh}
)

func NormalizeInList(value string, list []string) (string, bool) {
	val := strings.ToLower(strings.TrimSpace(value))
	if val == "" {
		return "", false
	}
	for _, item := range list {
		if val == item {
			return val, true
		}
	}
	return val, false
}

// CanonicalBaseline maps any casing of the standard tiers onto the canonical
// label and passes unknown labels through trimmed.
func CanonicalBaseline(value string) string {
	v := strings.TrimSpace(value)
	for _, b := range Baselines {
		if strings.EqualFold(v, b) {
			return b
		}
	}
	return v
}
