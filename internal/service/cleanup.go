package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/metrics"
	"github.com/AlBaraa63/Clean-City/internal/planner"
	"github.com/AlBaraa63/Clean-City/internal/report"
	"github.com/AlBaraa63/Clean-City/internal/storage"
)

// CleanupService defines the operations exposed to the HTTP API and the MCP
// server.
type CleanupService interface {
	// Run plans, optionally logs, and reports on one set of detections.
	Run(ctx context.Context, in WorkflowInput) (*WorkflowResult, error)

	// AnalyzeImage runs detector on image and then Run on the result.
	AnalyzeImage(ctx context.Context, detector domain.Detector, image []byte, in WorkflowInput) (*WorkflowResult, error)

	// Plan computes a cleanup plan without storing anything.
	Plan(ctx context.Context, in PlanInput) (domain.Plan, error)

	// LogEvent stores an event and its optional image.
	LogEvent(ctx context.Context, in LogEventInput) (domain.InsertResult, error)

	// GetEvent retrieves a single event.
	GetEvent(ctx context.Context, id int64) (domain.Event, error)

	// EventImage returns the archived image of an event.
	EventImage(ctx context.Context, id int64) ([]byte, string, error)

	// QueryEvents filters event history.
	QueryEvents(ctx context.Context, filter domain.EventFilter) (domain.QueryResult, error)

	// Hotspots lists recurring locations.
	Hotspots(ctx context.Context, q domain.HotspotQuery) ([]domain.Hotspot, error)

	// AnalyzeHotspots lists recurring locations with a recommendation.
	AnalyzeHotspots(ctx context.Context, days int) (*HotspotAnalysis, error)

	// MarkCleaned flags an event as cleaned up.
	MarkCleaned(ctx context.Context, id int64) error

	// FormatReport renders a report without storing anything.
	FormatReport(ctx context.Context, in ReportInput) (report.Report, error)
}

// EventRepository is the persistence the service needs.
type EventRepository interface {
	Insert(ctx context.Context, e domain.NewEvent) (domain.InsertResult, error)
	Get(ctx context.Context, id int64) (domain.Event, error)
	Query(ctx context.Context, f domain.EventFilter) (domain.QueryResult, error)
	Hotspots(ctx context.Context, q domain.HotspotQuery) ([]domain.Hotspot, error)
	MarkCleaned(ctx context.Context, id int64) error
}

// ImageArchive stores event images.
type ImageArchive interface {
	Save(ctx context.Context, data []byte, declaredType string) (string, error)
	Discard(ctx context.Context, key string) error
	Open(ctx context.Context, key string) ([]byte, storage.ObjectInfo, error)
}

// Deps are the collaborators of a CleanupService. Archive may be nil, in
// which case uploaded images are not kept.
type Deps struct {
	Planner   *planner.Planner
	Store     EventRepository
	Archive   ImageArchive
	Formatter *report.Formatter
	Now       func() time.Time
}

// cleanupService implements CleanupService.
type cleanupService struct {
	planner   *planner.Planner
	store     EventRepository
	archive   ImageArchive
	formatter *report.Formatter
	now       func() time.Time
	logger    *slog.Logger
}

// NewCleanupService creates a new CleanupService.
func NewCleanupService(deps Deps, logger *slog.Logger) CleanupService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Formatter == nil {
		deps.Formatter = report.NewFormatter(report.WithClock(deps.Now))
	}
	return &cleanupService{
		planner:   deps.Planner,
		store:     deps.Store,
		archive:   deps.Archive,
		formatter: deps.Formatter,
		now:       deps.Now,
		logger:    logger,
	}
}

// =============================================================================
// Planning
// =============================================================================

// PlanInput holds the parameters of a standalone planning request.
type PlanInput struct {
	Detections []domain.Detection
	Location   string
	Notes      string
	Enhance    bool
}

func (s *cleanupService) Plan(ctx context.Context, in PlanInput) (domain.Plan, error) {
	const op = "CleanupService.Plan"

	if err := domain.ValidateDetections(op, in.Detections); err != nil {
		return domain.Plan{}, err
	}

	return s.planner.Plan(ctx, in.Detections, planner.PlanOptions{
		Location: in.Location,
		Notes:    in.Notes,
		Enhance:  in.Enhance,
	}), nil
}

// =============================================================================
// Event History
// =============================================================================

// LogEventInput is an event to store plus its optional image bytes. When
// Image is set, the archived key replaces Event.ImagePath.
type LogEventInput struct {
	Event            domain.NewEvent
	Image            []byte
	ImageContentType string
}

func (s *cleanupService) LogEvent(ctx context.Context, in LogEventInput) (domain.InsertResult, error) {
	res, _, err := s.logEvent(ctx, in)
	return res, err
}

// logEvent also returns the stored image path, if any.
func (s *cleanupService) logEvent(ctx context.Context, in LogEventInput) (domain.InsertResult, string, error) {
	const op = "CleanupService.LogEvent"

	if err := in.Event.Validate(op); err != nil {
		return domain.InsertResult{}, "", err
	}

	var archived string
	if len(in.Image) > 0 {
		if s.archive == nil {
			s.logger.Warn("image supplied but no storage is configured; image not kept", "op", op)
		} else {
			key, err := s.archive.Save(ctx, in.Image, in.ImageContentType)
			if err != nil {
				return domain.InsertResult{}, "", err
			}
			archived = key
			in.Event.ImagePath = key
		}
	}

	res, err := s.store.Insert(ctx, in.Event)
	if err != nil {
		if archived != "" {
			if derr := s.archive.Discard(ctx, archived); derr != nil {
				s.logger.Error("failed to discard orphaned image", "key", archived, "error", derr)
			}
		}
		s.logger.Error("failed to log event", "error", err, "op", op)
		return domain.InsertResult{}, "", err
	}
	return res, in.Event.ImagePath, nil
}

func (s *cleanupService) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	return s.store.Get(ctx, id)
}

func (s *cleanupService) EventImage(ctx context.Context, id int64) ([]byte, string, error) {
	const op = "CleanupService.EventImage"

	ev, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if ev.ImagePath == "" {
		return nil, "", domain.Errorf(domain.ENOTFOUND, op, "event %d has no image", id)
	}
	if s.archive == nil {
		return nil, "", domain.Errorf(domain.EUNAVAILABLE, op, "image storage is not configured")
	}

	data, info, err := s.archive.Open(ctx, ev.ImagePath)
	if err != nil {
		return nil, "", err
	}
	return data, info.ContentType, nil
}

func (s *cleanupService) QueryEvents(ctx context.Context, filter domain.EventFilter) (domain.QueryResult, error) {
	return s.store.Query(ctx, filter)
}

func (s *cleanupService) Hotspots(ctx context.Context, q domain.HotspotQuery) ([]domain.Hotspot, error) {
	return s.store.Hotspots(ctx, q)
}

func (s *cleanupService) MarkCleaned(ctx context.Context, id int64) error {
	return s.store.MarkCleaned(ctx, id)
}

// =============================================================================
// Reports
// =============================================================================

// ReportInput describes a standalone report request. An empty Severity is
// derived from the detections. When IncludePlan is set and Plan is nil, the
// baseline plan is computed and included.
type ReportInput struct {
	Detections  []domain.Detection
	Severity    domain.Severity
	Location    string
	Notes       string
	EventID     int64
	Plan        *domain.Plan
	IncludePlan bool
	Style       string
}

func (s *cleanupService) FormatReport(ctx context.Context, in ReportInput) (report.Report, error) {
	const op = "CleanupService.FormatReport"

	if err := domain.ValidateDetections(op, in.Detections); err != nil {
		return report.Report{}, err
	}
	if in.Severity != "" && !in.Severity.IsValid() {
		return report.Report{}, domain.NewValidationError(op, "severity", "severity must be one of low, medium, high")
	}
	style, err := report.ParseStyle(in.Style)
	if err != nil {
		return report.Report{}, err
	}

	plan := in.Plan
	if in.Severity == "" || (in.IncludePlan && plan == nil) {
		baseline := s.planner.Plan(ctx, in.Detections, planner.PlanOptions{})
		if in.Severity == "" {
			in.Severity = baseline.Severity
		}
		if in.IncludePlan && plan == nil {
			plan = &baseline
		}
	}

	return s.format(report.Input{
		Detections:  in.Detections,
		Severity:    in.Severity,
		Location:    in.Location,
		Notes:       in.Notes,
		EventID:     in.EventID,
		Plan:        plan,
		GeneratedAt: s.now(),
	}, style)
}

func (s *cleanupService) format(in report.Input, style report.Style) (report.Report, error) {
	rep, err := s.formatter.Format(in, style)
	if err != nil {
		return report.Report{}, err
	}
	metrics.ReportsGenerated.WithLabelValues(string(style)).Inc()
	return rep, nil
}
