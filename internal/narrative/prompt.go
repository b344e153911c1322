package narrative

import (
	"fmt"
	"strings"

	"github.com/AlBaraa63/Clean-City/internal/domain"
)

// PlanContext is the structured input for plan narration. LabelCounts must
// be ordered by count descending.
type PlanContext struct {
	LabelCounts []domain.LabelCount
	Total       int
	Severity    domain.Severity
	Volunteers  int
	Minutes     int
	Equipment   []string
	Location    string
	Notes       string
}

// BuildPlanPrompt renders the prompt asking for a situation-specific cleanup
// summary. The output is deterministic for a given context.
func BuildPlanPrompt(pc PlanContext) string {
	var b strings.Builder

	b.WriteString("Analyze this litter situation and write a practical cleanup plan summary.\n\n")
	b.WriteString("Detection analysis:\n")
	for _, lc := range pc.LabelCounts {
		fmt.Fprintf(&b, "- %s: %d item(s)\n", lc.Label, lc.Count)
	}
	fmt.Fprintf(&b, "\nTotal items: %d\n", pc.Total)
	fmt.Fprintf(&b, "Categories: %d types\n", len(pc.LabelCounts))
	fmt.Fprintf(&b, "Severity: %s\n", pc.Severity)
	fmt.Fprintf(&b, "Location: %s\n", orDefault(pc.Location, "Not specified"))
	fmt.Fprintf(&b, "Notes: %s\n", orDefault(pc.Notes, "None"))

	b.WriteString("\nBaseline estimates:\n")
	fmt.Fprintf(&b, "- Volunteers needed: %d\n", pc.Volunteers)
	fmt.Fprintf(&b, "- Time estimate: %d minutes\n", pc.Minutes)
	fmt.Fprintf(&b, "- Equipment: %s\n", strings.Join(pc.Equipment, ", "))

	b.WriteString("\nWrite a brief summary that states the situation, recommends specific actions ")
	b.WriteString("including safety precautions for hazardous items, and explains why the cleanup matters ")
	b.WriteString("for the local environment. Do not change the baseline numbers. Keep it to 3-5 sentences.")

	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
