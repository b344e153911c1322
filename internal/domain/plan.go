package domain

import (
	"fmt"
	"strings"
)

// =============================================================================
// Severity
// =============================================================================

// Severity is the ordinal urgency tier of a plan or event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid returns true if the severity is a recognized value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Rank orders severities by urgency: low < medium < high.
// Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// ParseSeverity converts user input into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// =============================================================================
// Plan
// =============================================================================

// NarrativeSource records which path produced a plan's action summary.
type NarrativeSource string

const (
	NarrativeTemplate  NarrativeSource = "template"
	NarrativeGenerated NarrativeSource = "generated"
)

// Plan is the deterministic cleanup recommendation for a detection list.
// Only ActionSummary and NarrativeSource can vary with narrative enhancement.
type Plan struct {
	Severity              Severity        `json:"severity"`
	RecommendedVolunteers int             `json:"recommended_volunteers"`
	EstimatedTimeMinutes  int             `json:"estimated_time_minutes"`
	EquipmentNeeded       []string        `json:"equipment_needed"`
	UrgencyDays           int             `json:"urgency_days"`
	EnvironmentalImpact   string          `json:"environmental_impact"`
	ActionSummary         string          `json:"action_summary"`
	NarrativeSource       NarrativeSource `json:"narrative_source"`
}
