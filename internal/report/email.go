package report

import (
	"fmt"
	"strings"

	"github.com/AlBaraa63/Clean-City/internal/domain"
)

// =============================================================================
// Email Renderer
// =============================================================================

// EmailLocationPlaceholder is shown when no location was given.
const EmailLocationPlaceholder = "[Location to be specified]"

var urgencyText = map[domain.Severity]string{
	domain.SeverityHigh:   "URGENT - Immediate attention required",
	domain.SeverityMedium: "Moderate priority - Action needed within 1-3 days",
	domain.SeverityLow:    "Low priority - Routine cleanup recommended",
}

// EmailRenderer writes a cleanup request addressed to city services.
// Categories are listed alphabetically.
type EmailRenderer struct{}

func (EmailRenderer) Style() Style { return StyleEmail }

func (EmailRenderer) Render(in Input, b Breakdown) string {
	location := orPlaceholder(in.Location, EmailLocationPlaceholder)
	urgency, ok := urgencyText[in.Severity]
	if !ok {
		urgency = PlaceholderUnavailable
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: Trash Cleanup Request - %s\n\n", location)
	sb.WriteString("Dear City Services / Environmental Department,\n\n")
	sb.WriteString("I am writing to report litter accumulation that requires attention at the following location:\n\n")
	fmt.Fprintf(&sb, "**Location:** %s\n", location)
	fmt.Fprintf(&sb, "**Date Reported:** %s\n", FormatDate(in.GeneratedAt))
	fmt.Fprintf(&sb, "**Severity Level:** %s (%s)\n", SeverityLabel(in.Severity), urgency)
	fmt.Fprintf(&sb, "**Event ID:** %s\n\n", eventIDText(in.EventID))

	sb.WriteString("**Details of Trash Observed:**\n")
	fmt.Fprintf(&sb, "Total items detected: %d\n\n", b.Total)
	if b.Total == 0 {
		fmt.Fprintf(&sb, "  - %s\n", PlaceholderNone)
	}
	for _, lc := range b.Alphabetical() {
		fmt.Fprintf(&sb, "  - %s: %d item(s)\n", HumanizeLabel(lc.Label), lc.Count)
	}

	fmt.Fprintf(&sb, "\n**Additional Context:**\n%s\n", orPlaceholder(in.Notes, PlaceholderNone))

	sb.WriteString("\n**Recommended Action:**\n")
	if p := in.Plan; p != nil {
		fmt.Fprintf(&sb, "- Estimated cleanup time: %d minutes\n", p.EstimatedTimeMinutes)
		fmt.Fprintf(&sb, "- Volunteers needed: %d\n", p.RecommendedVolunteers)
		fmt.Fprintf(&sb, "- Equipment required: %s\n", equipmentText(p.EquipmentNeeded))
		fmt.Fprintf(&sb, "- Urgency: Action within %d day(s)\n", p.UrgencyDays)
	} else {
		fmt.Fprintf(&sb, "- %s\n", PlaceholderNoPlan)
	}

	sb.WriteString("\nThis accumulation poses environmental and health concerns for the community. ")
	sb.WriteString("I would appreciate a timely response regarding cleanup scheduling.\n\n")
	sb.WriteString("Thank you for your attention to this matter.\n\n")
	sb.WriteString("Best regards,\n[Your Name / Community Group]\n[Contact Information]\n")

	return sb.String()
}
