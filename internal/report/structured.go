package report

import (
	"fmt"
	"strings"
)

// =============================================================================
// Structured (Markdown) Renderer
// =============================================================================

// StructuredLocationPlaceholder is shown when no location was given.
const StructuredLocationPlaceholder = "Unspecified location"

// StructuredFooter closes every structured report.
const StructuredFooter = "*Generated by CleanCity Agent*"

// StructuredRenderer writes a Markdown document for record keeping.
type StructuredRenderer struct{}

func (StructuredRenderer) Style() Style { return StyleStructured }

func (StructuredRenderer) Render(in Input, b Breakdown) string {
	var sb strings.Builder

	sb.WriteString("# Trash Detection Report\n\n")
	sb.WriteString("## Event Information\n")
	fmt.Fprintf(&sb, "- **Event ID:** %s\n", eventIDText(in.EventID))
	fmt.Fprintf(&sb, "- **Timestamp:** %s\n", FormatDateTime(in.GeneratedAt))
	fmt.Fprintf(&sb, "- **Location:** %s\n", orPlaceholder(in.Location, StructuredLocationPlaceholder))
	fmt.Fprintf(&sb, "- **Severity:** %s\n\n", SeverityLabel(in.Severity))

	sb.WriteString("## Detection Summary\n")
	fmt.Fprintf(&sb, "- **Total Items:** %d\n", b.Total)
	fmt.Fprintf(&sb, "- **Unique Categories:** %d\n\n", b.Categories())

	sb.WriteString("### Items Breakdown\n")
	if b.Total == 0 {
		fmt.Fprintf(&sb, "- %s\n", PlaceholderNone)
	}
	for _, lc := range b.ByCount {
		fmt.Fprintf(&sb, "- **%s:** %d item(s)\n", HumanizeLabel(lc.Label), lc.Count)
	}

	sb.WriteString("\n## Cleanup Plan\n")
	if p := in.Plan; p != nil {
		fmt.Fprintf(&sb, "- **Recommended Volunteers:** %d\n", p.RecommendedVolunteers)
		fmt.Fprintf(&sb, "- **Estimated Time:** %d minutes\n", p.EstimatedTimeMinutes)
		fmt.Fprintf(&sb, "- **Urgency:** Within %d day(s)\n", p.UrgencyDays)
		sb.WriteString("- **Equipment Needed:**\n")
		if len(p.EquipmentNeeded) == 0 {
			fmt.Fprintf(&sb, "  - %s\n", PlaceholderNone)
		}
		for _, item := range p.EquipmentNeeded {
			fmt.Fprintf(&sb, "  - %s\n", item)
		}
		fmt.Fprintf(&sb, "\n### Environmental Impact\n%s\n",
			orPlaceholder(p.EnvironmentalImpact, PlaceholderUnavailable))
	} else {
		sb.WriteString(PlaceholderNoPlan + "\n")
	}

	fmt.Fprintf(&sb, "\n## Additional Notes\n%s\n", orPlaceholder(in.Notes, PlaceholderNone))

	sb.WriteString("\n---\n" + StructuredFooter)
	return sb.String()
}
