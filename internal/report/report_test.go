package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func labelled(labels ...string) []domain.Detection {
	out := make([]domain.Detection, len(labels))
	for i, l := range labels {
		out[i] = domain.Detection{BBox: domain.BBox{0, 0, 10, 10}, Label: l, Score: 0.7}
	}
	return out
}

func samplePlan() *domain.Plan {
	return &domain.Plan{
		Severity:              domain.SeverityMedium,
		RecommendedVolunteers: 2,
		EstimatedTimeMinutes:  57,
		EquipmentNeeded:       []string{"Gloves", "Safety goggles"},
		UrgencyDays:           3,
		EnvironmentalImpact:   "Moderate impact.",
	}
}

// lineWith returns the first line of text containing substr.
func lineWith(text, substr string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}

func TestFormat_EveryStyleListsEveryLabelCount(t *testing.T) {
	in := Input{
		Detections:  labelled("plastic_bottle", "can", "plastic_bottle", "glass_shard", "plastic_bottle", "glass_shard"),
		Severity:    domain.SeverityMedium,
		Location:    "Main St",
		GeneratedAt: generatedAt,
	}
	want := map[string]int{"Plastic Bottle": 3, "Glass Shard": 2, "Can": 1}

	f := NewFormatter()
	for _, style := range []Style{StyleEmail, StyleStructured, StylePlain} {
		t.Run(string(style), func(t *testing.T) {
			rep, err := f.Format(in, style)
			require.NoError(t, err)
			assert.Equal(t, style, rep.Style)

			for label, count := range want {
				line := lineWith(rep.Text, label+":")
				require.NotEmpty(t, line, "label %q missing", label)
				assert.Contains(t, line, fmt.Sprintf("%d", count))
			}
		})
	}
}

func TestFormat_Ordering(t *testing.T) {
	in := Input{
		Detections:  labelled("can", "wrapper", "wrapper", "bag", "bag", "bag"),
		Severity:    domain.SeverityLow,
		GeneratedAt: generatedAt,
	}
	f := NewFormatter()

	email, err := f.Format(in, StyleEmail)
	require.NoError(t, err)
	assert.Less(t, strings.Index(email.Text, "Bag:"), strings.Index(email.Text, "Can:"))
	assert.Less(t, strings.Index(email.Text, "Can:"), strings.Index(email.Text, "Wrapper:"))

	plain, err := f.Format(in, StylePlain)
	require.NoError(t, err)
	assert.Less(t, strings.Index(plain.Text, "Bag:"), strings.Index(plain.Text, "Wrapper:"))
	assert.Less(t, strings.Index(plain.Text, "Wrapper:"), strings.Index(plain.Text, "Can:"))
}

func TestFormat_Placeholders(t *testing.T) {
	in := Input{Severity: domain.SeverityLow, GeneratedAt: generatedAt}
	f := NewFormatter()

	email, err := f.Format(in, StyleEmail)
	require.NoError(t, err)
	assert.Contains(t, email.Text, "Subject: Trash Cleanup Request - [Location to be specified]")
	assert.Contains(t, email.Text, "**Event ID:** Not logged")
	assert.Contains(t, email.Text, "**Additional Context:**\nNone")
	assert.Contains(t, email.Text, PlaceholderNoPlan)

	structured, err := f.Format(in, StyleStructured)
	require.NoError(t, err)
	assert.Contains(t, structured.Text, "- **Location:** Unspecified location")
	assert.Contains(t, structured.Text, "- **Event ID:** Not logged")
	assert.Contains(t, structured.Text, "## Additional Notes\nNone")

	plain, err := f.Format(in, StylePlain)
	require.NoError(t, err)
	assert.Contains(t, plain.Text, "Location: Unspecified")
	assert.Contains(t, plain.Text, "Notes:\nNone")
	assert.Contains(t, plain.Text, "Total Items Detected: 0")
}

func TestEmailRenderer(t *testing.T) {
	rep, err := NewFormatter().Format(Input{
		Detections:  labelled("glass_bottle"),
		Severity:    domain.SeverityHigh,
		Location:    "Riverside Park",
		Notes:       "Near the playground",
		EventID:     42,
		Plan:        samplePlan(),
		GeneratedAt: generatedAt,
	}, StyleEmail)
	require.NoError(t, err)

	text := rep.Text
	assert.True(t, strings.HasPrefix(text, "Subject: Trash Cleanup Request - Riverside Park\n"))
	assert.Contains(t, text, "**Date Reported:** March 10, 2025")
	assert.Contains(t, text, "**Severity Level:** HIGH (URGENT - Immediate attention required)")
	assert.Contains(t, text, "**Event ID:** 42")
	assert.Contains(t, text, "Near the playground")
	assert.Contains(t, text, "- Estimated cleanup time: 57 minutes")
	assert.Contains(t, text, "- Equipment required: Gloves, Safety goggles")
	assert.Contains(t, text, "- Urgency: Action within 3 day(s)")
	assert.Contains(t, text, "Thank you for your attention to this matter.")
	assert.Contains(t, text, "[Your Name / Community Group]")
	assert.Equal(t, int64(42), rep.EventID)
}

func TestStructuredRenderer(t *testing.T) {
	rep, err := NewFormatter().Format(Input{
		Detections:  labelled("can", "can"),
		Severity:    domain.SeverityMedium,
		Location:    "Oak Ave",
		EventID:     7,
		Plan:        samplePlan(),
		GeneratedAt: generatedAt,
	}, StyleStructured)
	require.NoError(t, err)

	text := rep.Text
	assert.True(t, strings.HasPrefix(text, "# Trash Detection Report\n"))
	assert.Contains(t, text, "- **Timestamp:** 2025-03-10 14:30:00")
	assert.Contains(t, text, "- **Unique Categories:** 1")
	assert.Contains(t, text, "- **Can:** 2 item(s)")
	assert.Contains(t, text, "  - Safety goggles\n")
	assert.Contains(t, text, "### Environmental Impact\nModerate impact.")
	assert.True(t, strings.HasSuffix(text, StructuredFooter))
}

func TestPlainRenderer(t *testing.T) {
	rep, err := NewFormatter().Format(Input{
		Detections:  labelled("cigarette_butt"),
		Severity:    domain.SeverityLow,
		Plan:        samplePlan(),
		GeneratedAt: generatedAt,
	}, StylePlain)
	require.NoError(t, err)

	lines := strings.Split(rep.Text, "\n")
	assert.Equal(t, strings.Repeat("=", 60), lines[0])
	assert.Equal(t, "TRASH DETECTION REPORT", lines[1])
	assert.Equal(t, strings.Repeat("=", 60), lines[len(lines)-1])
	assert.Contains(t, rep.Text, "  - Cigarette Butt: 1")
	assert.Contains(t, rep.Text, "  - Action within: 3 day(s)")
	assert.Contains(t, rep.Text, "  - Equipment: Gloves, Safety goggles")
}

func TestFormat_Deterministic(t *testing.T) {
	in := Input{
		Detections:  labelled("a", "b", "b", "c"),
		Severity:    domain.SeverityLow,
		Plan:        samplePlan(),
		GeneratedAt: generatedAt,
	}
	f := NewFormatter()
	for _, style := range []Style{StyleEmail, StyleStructured, StylePlain} {
		first, err := f.Format(in, style)
		require.NoError(t, err)
		second, err := f.Format(in, style)
		require.NoError(t, err)
		assert.Equal(t, first.Text, second.Text)
	}
}

func TestFormat_ZeroGeneratedAtUsesClock(t *testing.T) {
	in := Input{Detections: labelled("can"), Severity: domain.SeverityLow}
	f := NewFormatter(WithClock(func() time.Time { return generatedAt }))

	first, err := f.Format(in, StylePlain)
	require.NoError(t, err)
	assert.True(t, first.GeneratedAt.Equal(generatedAt))
	assert.Contains(t, first.Text, FormatDateTime(generatedAt))

	second, err := f.Format(in, StylePlain)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)

	explicit := generatedAt.Add(48 * time.Hour)
	in.GeneratedAt = explicit
	rep, err := f.Format(in, StylePlain)
	require.NoError(t, err)
	assert.True(t, rep.GeneratedAt.Equal(explicit))
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{in: "", want: StyleEmail},
		{in: "email", want: StyleEmail},
		{in: "Markdown", want: StyleStructured},
		{in: "structured", want: StyleStructured},
		{in: " plain ", want: StylePlain},
		{in: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStyle(tt.in)
			if tt.wantErr {
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewFormatter().Format(Input{}, Style("pdf"))
	assert.Error(t, err)
}

func TestHumanizeLabel(t *testing.T) {
	assert.Equal(t, "Plastic Bottle", HumanizeLabel("plastic_bottle"))
	assert.Equal(t, "Pet Bottle", HumanizeLabel("PET_bottle"))
	assert.Equal(t, "Can", HumanizeLabel("can"))
}
