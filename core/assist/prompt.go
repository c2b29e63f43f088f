package assist

import (
	"fmt"
	"sort"
	"strings"

	"atlas-grc/core/store"
)

const systemPrompt = `You are a compliance assistant for an information system under assessment.
Answer using only the posture summary provided. Be concise and concrete.
When the summary does not contain the answer, say so instead of guessing.`

// BuildPosturePrompt renders a deterministic prompt from the system record
// and its assignment stats so identical posture yields identical messages.
func BuildPosturePrompt(sys *store.System, stats *store.SystemControlStats, question string) []Message {
	var b strings.Builder
	fmt.Fprintf(&b, "System: %s\n", sys.Name)
	if sys.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", sys.Description)
	}
	if len(sys.STIGProfiles) > 0 {
		fmt.Fprintf(&b, "STIG profiles: %s\n", strings.Join(sys.STIGProfiles, ", "))
	}
	fmt.Fprintf(&b, "Assigned controls: %d\n", stats.Total)
	statuses := make([]string, 0, len(stats.ByStatus))
	for s := range stats.ByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(&b, "  %s: %d\n", s, stats.ByStatus[s])
	}
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: b.String() + "\nQuestion: " + strings.TrimSpace(question)},
	}
}
