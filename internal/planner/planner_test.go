package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/narrative"
	"github.com/AlBaraa63/Clean-City/internal/narrative/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// detections builds n detections cycling through labels.
func detections(n int, labels ...string) []domain.Detection {
	out := make([]domain.Detection, n)
	for i := range out {
		out[i] = domain.Detection{
			BBox:  domain.BBox{float64(i), float64(i), float64(i + 10), float64(i + 10)},
			Label: labels[i%len(labels)],
			Score: 0.8,
		}
	}
	return out
}

func TestBaseline_EmptyList(t *testing.T) {
	plan := Baseline(nil, DefaultRules())

	assert.Equal(t, domain.SeverityLow, plan.Severity)
	assert.Equal(t, 0, plan.RecommendedVolunteers)
	assert.Equal(t, 0, plan.EstimatedTimeMinutes)
	assert.Equal(t, 0, plan.UrgencyDays)
	assert.NotNil(t, plan.EquipmentNeeded)
	assert.Empty(t, plan.EquipmentNeeded)
	assert.Equal(t, EmptyImpact, plan.EnvironmentalImpact)
	assert.Equal(t, EmptySummary, plan.ActionSummary)
}

func TestBaseline_SeverityBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		detections []domain.Detection
		severity   domain.Severity
		urgency    int
		volunteers int
		minutes    int
	}{
		{
			name:       "15 of one label is high by count",
			detections: detections(15, "plastic_bottle"),
			severity:   domain.SeverityHigh,
			urgency:    1,
			volunteers: 5,
			minutes:    135,
		},
		{
			name:       "14 of six labels is high by categories",
			detections: detections(14, "a", "b", "c", "d", "e", "f"),
			severity:   domain.SeverityHigh,
			urgency:    1,
			volunteers: 5,
			minutes:    132,
		},
		{
			name:       "7 of one label is medium",
			detections: detections(7, "can"),
			severity:   domain.SeverityMedium,
			urgency:    3,
			volunteers: 2,
			minutes:    59,
		},
		{
			name:       "4 items of four labels is medium by categories",
			detections: detections(4, "a", "b", "c", "d"),
			severity:   domain.SeverityMedium,
			urgency:    3,
			volunteers: 2,
			minutes:    53,
		},
		{
			name:       "6 of one label is low",
			detections: detections(6, "can"),
			severity:   domain.SeverityLow,
			urgency:    7,
			volunteers: 2,
			minutes:    32,
		},
		{
			name:       "single item is low",
			detections: detections(1, "unknown_thing"),
			severity:   domain.SeverityLow,
			urgency:    7,
			volunteers: 1,
			minutes:    22,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Baseline(tt.detections, DefaultRules())
			assert.Equal(t, tt.severity, plan.Severity)
			assert.Equal(t, tt.urgency, plan.UrgencyDays)
			assert.Equal(t, tt.volunteers, plan.RecommendedVolunteers)
			assert.Equal(t, tt.minutes, plan.EstimatedTimeMinutes)
			assert.Equal(t, impacts[tt.severity], plan.EnvironmentalImpact)
			assert.Equal(t, domain.NarrativeTemplate, plan.NarrativeSource)
		})
	}
}

func TestBaseline_MonotonicWithinTier(t *testing.T) {
	prev := Baseline(detections(15, "x"), DefaultRules())
	for n := 16; n <= 60; n++ {
		plan := Baseline(detections(n, "x"), DefaultRules())
		require.Equal(t, domain.SeverityHigh, plan.Severity)
		assert.GreaterOrEqual(t, plan.RecommendedVolunteers, prev.RecommendedVolunteers)
		assert.GreaterOrEqual(t, plan.EstimatedTimeMinutes, prev.EstimatedTimeMinutes)
		prev = plan
	}

	prev = Baseline(detections(1, "x"), DefaultRules())
	for n := 2; n <= 6; n++ {
		plan := Baseline(detections(n, "x"), DefaultRules())
		require.Equal(t, domain.SeverityLow, plan.Severity)
		assert.GreaterOrEqual(t, plan.RecommendedVolunteers, prev.RecommendedVolunteers)
		assert.GreaterOrEqual(t, plan.EstimatedTimeMinutes, prev.EstimatedTimeMinutes)
		prev = plan
	}
}

func TestBaseline_Equipment(t *testing.T) {
	base := []string{"Heavy-duty trash bags", "Gloves", "Grabber tools"}

	plan := Baseline(detections(3, "can"), DefaultRules())
	assert.Equal(t, base, plan.EquipmentNeeded)

	plan = Baseline(detections(3, "glass_bottle", "Broken_Glass"), DefaultRules())
	assert.Equal(t, append(append([]string{}, base...), "Safety goggles", "Puncture-resistant bags"), plan.EquipmentNeeded)

	plan = Baseline(detections(11, "can"), DefaultRules())
	assert.Equal(t, append(append([]string{}, base...), "Wheeled collection bin"), plan.EquipmentNeeded)

	plan = Baseline(detections(40, "glass_bottle", "glass_shard", "glass_jar"), DefaultRules())
	seen := map[string]bool{}
	for _, item := range plan.EquipmentNeeded {
		assert.False(t, seen[item], "duplicate equipment %q", item)
		seen[item] = true
	}
	assert.Len(t, plan.EquipmentNeeded, 6)
}

func TestBaseline_Deterministic(t *testing.T) {
	input := detections(9, "plastic_bag", "food_wrapper", "cigarette_butt", "paper_cup")
	assert.Equal(t, Baseline(input, DefaultRules()), Baseline(input, DefaultRules()))
}

func TestTemplateSummary(t *testing.T) {
	plan := Baseline(detections(9, "e", "d", "c", "b", "a"), DefaultRules())

	assert.Contains(t, plan.ActionSummary, "**Cleanup Plan - MEDIUM Priority**")
	assert.Contains(t, plan.ActionSummary, "Detected 9 trash items including a, b, c and 2 other types.")
	assert.Contains(t, plan.ActionSummary, "- 3 volunteer(s)")
	assert.Contains(t, plan.ActionSummary, "- Approximately 63 minutes")
	assert.Contains(t, plan.ActionSummary, "5. Document completion for tracking")
}

func TestPlanner_WithoutEnhancement(t *testing.T) {
	provider := mock.New(testLogger())
	p := New(Config{Generator: provider}, testLogger())

	plan := p.Plan(context.Background(), detections(5, "can"), PlanOptions{Location: "Main St"})

	assert.Equal(t, Baseline(detections(5, "can"), DefaultRules()), plan)
	assert.Equal(t, 0, provider.GenerateCalls)
}

func TestPlanner_EnhancementSuccess(t *testing.T) {
	provider := mock.New(testLogger())
	provider.Response = &narrative.Result{Text: "  Clear the riverbank first.  "}
	p := New(Config{Generator: provider}, testLogger())

	input := detections(8, "plastic_bottle", "glass_bottle")
	baseline := Baseline(input, DefaultRules())
	plan := p.Plan(context.Background(), input, PlanOptions{Location: "Riverside", Notes: "after storm", Enhance: true})

	assert.Equal(t, "Clear the riverbank first.", plan.ActionSummary)
	assert.Equal(t, domain.NarrativeGenerated, plan.NarrativeSource)
	assert.Equal(t, baseline.Severity, plan.Severity)
	assert.Equal(t, baseline.EquipmentNeeded, plan.EquipmentNeeded)
	assert.Equal(t, 1, provider.GenerateCalls)
	assert.Contains(t, provider.LastRequest.Prompt, "Location: Riverside")
	assert.Contains(t, provider.LastRequest.Prompt, "Notes: after storm")
}

func TestPlanner_EnhancementFailureFallsBack(t *testing.T) {
	input := detections(16, "plastic_bottle", "glass_bottle", "can")
	baseline := Baseline(input, DefaultRules())

	tests := []struct {
		name      string
		configure func(p *mock.Provider)
		generator func(p *mock.Provider) narrative.Generator
		timeout   time.Duration
	}{
		{
			name:      "provider error",
			configure: func(p *mock.Provider) { p.Error = errors.New("boom") },
		},
		{
			name:      "unauthorized",
			configure: func(p *mock.Provider) { p.Error = narrative.ErrUnauthorized },
		},
		{
			name:      "blank response",
			configure: func(p *mock.Provider) { p.Response = &narrative.Result{Text: "   "} },
		},
		{
			name:      "timeout",
			configure: func(p *mock.Provider) { p.Delay = time.Second },
			timeout:   10 * time.Millisecond,
		},
		{
			name:      "no generator",
			configure: func(p *mock.Provider) {},
			generator: func(p *mock.Provider) narrative.Generator { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.New(testLogger())
			tt.configure(provider)
			var gen narrative.Generator = provider
			if tt.generator != nil {
				gen = tt.generator(provider)
			}
			p := New(Config{Generator: gen, NarrativeTimeout: tt.timeout}, testLogger())

			plan := p.Plan(context.Background(), input, PlanOptions{Enhance: true})

			assert.Equal(t, baseline, plan)
			assert.NotEmpty(t, plan.ActionSummary)
			assert.Equal(t, domain.NarrativeTemplate, plan.NarrativeSource)
		})
	}
}

func TestPlanner_NarrateReportsDegradation(t *testing.T) {
	provider := mock.New(testLogger())
	provider.Error = narrative.ErrRateLimit
	p := New(Config{Generator: provider}, testLogger())

	input := detections(3, "can")
	n := p.Narrate(context.Background(), Baseline(input, DefaultRules()), input, PlanOptions{})

	assert.True(t, n.Degraded())
	assert.ErrorIs(t, n.Err, narrative.ErrRateLimit)
	assert.Equal(t, domain.NarrativeTemplate, n.Source)
}

func TestPlanner_EmptyInputSkipsEnhancement(t *testing.T) {
	provider := mock.New(testLogger())
	p := New(Config{Generator: provider}, testLogger())

	plan := p.Plan(context.Background(), nil, PlanOptions{Enhance: true})

	assert.Equal(t, EmptySummary, plan.ActionSummary)
	assert.Equal(t, 0, provider.GenerateCalls)
}
