package report

import (
	"fmt"
	"strings"
)

// =============================================================================
// Plain Text Renderer
// =============================================================================

// PlainLocationPlaceholder is shown when no location was given.
const PlainLocationPlaceholder = "Unspecified"

var plainRule = strings.Repeat("=", 60)

// PlainRenderer writes an unformatted text report.
type PlainRenderer struct{}

func (PlainRenderer) Style() Style { return StylePlain }

func (PlainRenderer) Render(in Input, b Breakdown) string {
	lines := []string{
		plainRule,
		"TRASH DETECTION REPORT",
		plainRule,
		"",
		"Date: " + FormatDateTime(in.GeneratedAt),
		"Event ID: " + eventIDText(in.EventID),
		"Location: " + orPlaceholder(in.Location, PlainLocationPlaceholder),
		"Severity: " + SeverityLabel(in.Severity),
		"",
		fmt.Sprintf("Total Items Detected: %d", b.Total),
		"",
		"Items by Category:",
	}
	if b.Total == 0 {
		lines = append(lines, "  - "+PlaceholderNone)
	}
	for _, lc := range b.ByCount {
		lines = append(lines, fmt.Sprintf("  - %s: %d", HumanizeLabel(lc.Label), lc.Count))
	}

	lines = append(lines, "", "Cleanup Recommendations:")
	if p := in.Plan; p != nil {
		lines = append(lines,
			fmt.Sprintf("  - Volunteers needed: %d", p.RecommendedVolunteers),
			fmt.Sprintf("  - Estimated time: %d minutes", p.EstimatedTimeMinutes),
			fmt.Sprintf("  - Action within: %d day(s)", p.UrgencyDays),
			"  - Equipment: "+equipmentText(p.EquipmentNeeded),
		)
	} else {
		lines = append(lines, "  - "+PlaceholderNoPlan)
	}

	lines = append(lines, "", "Notes:", orPlaceholder(in.Notes, PlaceholderNone), "", plainRule)
	return strings.Join(lines, "\n")
}
