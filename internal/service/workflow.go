package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/planner"
	"github.com/AlBaraa63/Clean-City/internal/report"
)

// WorkflowStatus reports how a workflow run ended.
type WorkflowStatus string

const (
	StatusSuccess WorkflowStatus = "success"
	StatusNoTrash WorkflowStatus = "no_trash"
)

// NoTrashSummary is the summary of a run with no detections.
const NoTrashSummary = "No trash detected in this image. The area appears clean!"

// WorkflowInput is one pass through plan, log and report.
type WorkflowInput struct {
	Detections       []domain.Detection
	Location         string
	Notes            string
	Latitude         *float64
	Longitude        *float64
	SaveToHistory    bool
	Enhance          bool
	ReportStyle      string
	Image            []byte
	ImageContentType string
}

// WorkflowResult collects everything a run produced. Plan and Report are
// absent when nothing was detected; EventID is 0 when the event was not
// logged.
type WorkflowResult struct {
	Status     WorkflowStatus     `json:"status"`
	Count      int                `json:"count"`
	Categories []string           `json:"categories"`
	Detections []domain.Detection `json:"detections"`
	Plan       *domain.Plan       `json:"plan,omitempty"`
	Report     *report.Report     `json:"report,omitempty"`
	EventID    int64              `json:"event_id,omitempty"`
	ImagePath  string             `json:"image_path,omitempty"`
	Summary    string             `json:"summary"`
}

// =============================================================================
// Workflow
// =============================================================================

func (s *cleanupService) Run(ctx context.Context, in WorkflowInput) (*WorkflowResult, error) {
	const op = "CleanupService.Run"

	if err := domain.ValidateDetections(op, in.Detections); err != nil {
		return nil, err
	}
	if msg := domain.ValidateCoordinates(in.Latitude, in.Longitude); msg != "" {
		return nil, domain.NewValidationError(op, "coordinates", msg)
	}
	style, err := report.ParseStyle(in.ReportStyle)
	if err != nil {
		return nil, err
	}

	result := &WorkflowResult{
		Count:      len(in.Detections),
		Categories: domain.DistinctLabels(in.Detections),
		Detections: in.Detections,
	}
	if result.Detections == nil {
		result.Detections = []domain.Detection{}
	}

	if len(in.Detections) == 0 {
		result.Status = StatusNoTrash
		result.Summary = NoTrashSummary
		s.logger.Info("workflow finished without detections", "location", in.Location)
		return result, nil
	}

	plan := s.planner.Plan(ctx, in.Detections, planner.PlanOptions{
		Location: in.Location,
		Notes:    in.Notes,
		Enhance:  in.Enhance,
	})
	result.Plan = &plan

	if in.SaveToHistory {
		res, imagePath, err := s.logEvent(ctx, LogEventInput{
			Event: domain.NewEvent{
				Detections: in.Detections,
				Severity:   plan.Severity,
				Location:   in.Location,
				Latitude:   in.Latitude,
				Longitude:  in.Longitude,
				Notes:      in.Notes,
			},
			Image:            in.Image,
			ImageContentType: in.ImageContentType,
		})
		if err != nil {
			return nil, err
		}
		result.EventID = res.ID
		result.ImagePath = imagePath
	}

	rep, err := s.format(report.Input{
		Detections:  in.Detections,
		Severity:    plan.Severity,
		Location:    in.Location,
		Notes:       in.Notes,
		EventID:     result.EventID,
		Plan:        &plan,
		GeneratedAt: s.now(),
	}, style)
	if err != nil {
		return nil, err
	}
	result.Report = &rep

	result.Status = StatusSuccess
	result.Summary = workflowSummary(result.Count, result.Categories, plan, result.EventID)

	s.logger.Info("workflow completed",
		"severity", plan.Severity,
		"trash_count", result.Count,
		"event_id", result.EventID,
		"narrative_source", plan.NarrativeSource,
	)
	return result, nil
}

func (s *cleanupService) AnalyzeImage(ctx context.Context, detector domain.Detector, image []byte, in WorkflowInput) (*WorkflowResult, error) {
	const op = "CleanupService.AnalyzeImage"

	if detector == nil {
		return nil, domain.Errorf(domain.EUNAVAILABLE, op, "no detector configured")
	}
	if len(image) == 0 {
		return nil, domain.NewValidationError(op, "image", "image is required")
	}

	detections, err := detector.Detect(ctx, image)
	if err != nil {
		s.logger.Error("detection failed", "error", err, "op", op)
		return nil, domain.Wrap(err, domain.EUNAVAILABLE, op, "trash detection failed")
	}

	in.Detections = detections
	if in.Image == nil {
		in.Image = image
	}
	return s.Run(ctx, in)
}

// workflowSummary is the short human-readable recap of a run.
func workflowSummary(count int, categories []string, plan domain.Plan, eventID int64) string {
	shown := categories
	if len(shown) > 3 {
		shown = shown[:3]
	}
	categoryText := strings.Join(shown, ", ")
	if len(categories) > 3 {
		categoryText += fmt.Sprintf(" and %d more", len(categories)-3)
	}

	var sb strings.Builder
	sb.WriteString("**Analysis Complete**\n\n")
	fmt.Fprintf(&sb, "Detected **%d trash items** across %d categories (%s).\n\n", count, len(categories), categoryText)
	fmt.Fprintf(&sb, "**Severity:** %s\n\n", strings.ToUpper(string(plan.Severity)))
	sb.WriteString("**Recommended Action:**\n")
	fmt.Fprintf(&sb, "- %d volunteer(s) needed\n", plan.RecommendedVolunteers)
	fmt.Fprintf(&sb, "- Approximately %d minutes\n", plan.EstimatedTimeMinutes)
	fmt.Fprintf(&sb, "- Action within %d day(s)\n", plan.UrgencyDays)
	if eventID > 0 {
		fmt.Fprintf(&sb, "\nEvent saved to history (ID: %d)\n", eventID)
	}
	return sb.String()
}

// =============================================================================
// Hotspot Analysis
// =============================================================================

// HotspotAnalysis is a hotspot listing with a recommendation for the most
// frequent location.
type HotspotAnalysis struct {
	Days           int              `json:"days"`
	Hotspots       []domain.Hotspot `json:"hotspots"`
	Count          int              `json:"count"`
	Top            *domain.Hotspot  `json:"top_hotspot,omitempty"`
	Message        string           `json:"message,omitempty"`
	Recommendation string           `json:"recommendation"`
}

// AnalyzeHotspots looks back days days; days <= 0 means the default window.
func (s *cleanupService) AnalyzeHotspots(ctx context.Context, days int) (*HotspotAnalysis, error) {
	if days <= 0 {
		days = domain.DefaultHotspotDays
	}

	hotspots, err := s.store.Hotspots(ctx, domain.HotspotQuery{
		MinEvents: domain.DefaultHotspotMinEvents,
		Days:      days,
	})
	if err != nil {
		return nil, err
	}

	analysis := &HotspotAnalysis{Days: days, Hotspots: hotspots, Count: len(hotspots)}
	if len(hotspots) == 0 {
		analysis.Message = fmt.Sprintf("No recurring hotspots found in the last %d days.", days)
		analysis.Recommendation = "Continue monitoring and logging new events."
		return analysis, nil
	}

	top := hotspots[0]
	analysis.Top = &top

	var sb strings.Builder
	sb.WriteString("**Hotspot Alert**\n\n")
	fmt.Fprintf(&sb, "%d location(s) with recurring trash issues identified.\n\n", len(hotspots))
	fmt.Fprintf(&sb, "**Top Problem Area:** %s\n", top.Location)
	fmt.Fprintf(&sb, "- %d events recorded\n", top.EventCount)
	fmt.Fprintf(&sb, "- %d total items\n", top.TotalTrash)
	fmt.Fprintf(&sb, "- Last event: %s\n\n", report.FormatDateTime(top.LastEventTimestamp))
	sb.WriteString("**Recommendation:** Consider setting up a regular cleanup schedule or requesting permanent waste receptacles for this location.\n")
	analysis.Recommendation = sb.String()

	return analysis, nil
}
