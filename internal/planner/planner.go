// Package planner turns a detection list into a severity-rated cleanup plan.
//
// Severity, resource estimates and equipment are a pure function of the
// detections. Only the action summary can be replaced by an optional
// narrative generator, and any generator failure falls back to the
// deterministic template.
package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/metrics"
	"github.com/AlBaraa63/Clean-City/internal/narrative"
)

// DefaultNarrativeTimeout bounds a single enhancement call.
const DefaultNarrativeTimeout = 20 * time.Second

// Canned texts for the empty plan.
const (
	EmptyImpact  = "No trash detected - area appears clean."
	EmptySummary = "No cleanup action needed at this time."
)

var impacts = map[domain.Severity]string{
	domain.SeverityHigh:   "Significant environmental concern. Risk of wildlife harm, water contamination, and community health issues. Immediate action recommended.",
	domain.SeverityMedium: "Moderate environmental impact. Potential for wildlife interaction and visual pollution. Timely cleanup will prevent escalation.",
	domain.SeverityLow:    "Minor environmental impact. Early intervention will maintain area cleanliness and prevent accumulation.",
}

// tier is one row of the severity table. The first matching tier wins.
type tier struct {
	severity      domain.Severity
	minCount      int
	minCategories int
	urgencyDays   int
	baseVolunteer int
	volunteerDiv  int
	baseMinutes   int
	minutesPer    int
}

var tiers = []tier{
	{domain.SeverityHigh, 15, 6, 1, 4, 10, 90, 3},
	{domain.SeverityMedium, 7, 4, 3, 2, 8, 45, 2},
	{domain.SeverityLow, 1, 1, 7, 1, 5, 20, 2},
}

func classify(count, categories int) tier {
	for _, t := range tiers {
		if count >= t.minCount || categories >= t.minCategories {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// Baseline computes the deterministic plan, including the template summary.
func Baseline(detections []domain.Detection, rules Rules) domain.Plan {
	count := len(detections)
	if count == 0 {
		return domain.Plan{
			Severity:            domain.SeverityLow,
			EquipmentNeeded:     []string{},
			EnvironmentalImpact: EmptyImpact,
			ActionSummary:       EmptySummary,
			NarrativeSource:     domain.NarrativeTemplate,
		}
	}

	labels := domain.DistinctLabels(detections)
	t := classify(count, len(labels))
	volunteers := t.baseVolunteer + count/t.volunteerDiv
	minutes := t.baseMinutes + t.minutesPer*count

	return domain.Plan{
		Severity:              t.severity,
		RecommendedVolunteers: volunteers,
		EstimatedTimeMinutes:  minutes,
		EquipmentNeeded:       rules.EquipmentFor(labels, count),
		UrgencyDays:           t.urgencyDays,
		EnvironmentalImpact:   impacts[t.severity],
		ActionSummary:         templateSummary(t.severity, volunteers, minutes, count, labels),
		NarrativeSource:       domain.NarrativeTemplate,
	}
}

// PlanOptions carries the optional inputs that only affect the narrative.
type PlanOptions struct {
	Location string
	Notes    string
	Enhance  bool
}

// Config configures a Planner.
type Config struct {
	Rules            Rules
	Generator        narrative.Generator // nil disables enhancement
	NarrativeTimeout time.Duration
}

// Planner computes cleanup plans.
type Planner struct {
	rules     Rules
	generator narrative.Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a Planner. A zero Rules value selects DefaultRules.
func New(cfg Config, logger *slog.Logger) *Planner {
	if cfg.Rules.Equipment == nil {
		cfg.Rules = DefaultRules()
	}
	if cfg.NarrativeTimeout <= 0 {
		cfg.NarrativeTimeout = DefaultNarrativeTimeout
	}
	return &Planner{
		rules:     cfg.Rules,
		generator: cfg.Generator,
		timeout:   cfg.NarrativeTimeout,
		logger:    logger,
	}
}

// Plan returns the cleanup plan for detections. It never fails; enhancement
// problems are logged and replaced by the template summary.
func (p *Planner) Plan(ctx context.Context, detections []domain.Detection, opts PlanOptions) domain.Plan {
	plan := Baseline(detections, p.rules)
	metrics.PlansCreated.WithLabelValues(plan.Severity.String()).Inc()

	if !opts.Enhance || len(detections) == 0 {
		return plan
	}

	n := p.Narrate(ctx, plan, detections, opts)
	plan.ActionSummary = n.Text
	plan.NarrativeSource = n.Source
	return plan
}

// Narrative is the typed outcome of an enhancement attempt. Err is set when
// the template was used because generation failed.
type Narrative struct {
	Text   string
	Source domain.NarrativeSource
	Err    error
}

// Degraded reports whether enhancement was attempted and failed.
func (n Narrative) Degraded() bool { return n.Err != nil }

// Narrate asks the generator for a replacement summary of plan.
func (p *Planner) Narrate(ctx context.Context, plan domain.Plan, detections []domain.Detection, opts PlanOptions) Narrative {
	fallback := Narrative{Text: plan.ActionSummary, Source: domain.NarrativeTemplate}
	if p.generator == nil {
		fallback.Err = domain.Errorf(domain.EUNAVAILABLE, "planner.narrate", "no narrative generator configured")
		metrics.NarrativeOutcomes.WithLabelValues("none", "unconfigured").Inc()
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := narrative.BuildPlanPrompt(narrative.PlanContext{
		LabelCounts: domain.CountLabels(detections),
		Total:       len(detections),
		Severity:    plan.Severity,
		Volunteers:  plan.RecommendedVolunteers,
		Minutes:     plan.EstimatedTimeMinutes,
		Equipment:   plan.EquipmentNeeded,
		Location:    opts.Location,
		Notes:       opts.Notes,
	})

	res, err := p.generator.Generate(ctx, narrative.Request{Prompt: prompt})
	if err == nil && res != nil {
		_, err = narrative.CleanText(res.Text)
	} else if err == nil {
		err = narrative.ErrEmptyResponse
	}
	if err != nil {
		err = narrative.Classify(err)
		p.logger.Warn("narrative enhancement failed, using template",
			"provider", p.generator.Name(),
			"error", err,
		)
		metrics.NarrativeOutcomes.WithLabelValues(p.generator.Name(), "fallback").Inc()
		fallback.Err = err
		return fallback
	}

	metrics.NarrativeOutcomes.WithLabelValues(p.generator.Name(), "generated").Inc()
	text, _ := narrative.CleanText(res.Text)
	return Narrative{Text: text, Source: domain.NarrativeGenerated}
}
