package planner

import (
	"fmt"
	"strings"

	"github.com/AlBaraa63/Clean-City/internal/domain"
)

// nextSteps is the generic checklist appended to every template summary.
var nextSteps = []string{
	"Gather volunteers and equipment",
	"Coordinate cleanup date/time",
	"Execute cleanup operation",
	"Dispose of collected waste properly",
	"Document completion for tracking",
}

// templateSummary renders the deterministic action summary. labels must be
// sorted.
func templateSummary(severity domain.Severity, volunteers, minutes, count int, labels []string) string {
	shown := labels
	if len(shown) > 3 {
		shown = shown[:3]
	}
	categories := strings.Join(shown, ", ")
	if extra := len(labels) - len(shown); extra > 0 {
		categories += fmt.Sprintf(" and %d other types", extra)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Cleanup Plan - %s Priority**\n\n", strings.ToUpper(severity.String()))
	fmt.Fprintf(&b, "Detected %d trash items including %s.\n\n", count, categories)
	b.WriteString("**Recommended Resources:**\n")
	fmt.Fprintf(&b, "- %d volunteer(s)\n", volunteers)
	fmt.Fprintf(&b, "- Approximately %d minutes\n", minutes)
	b.WriteString("- Standard cleanup equipment\n\n")
	b.WriteString("**Next Steps:**\n")
	for i, step := range nextSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}
