package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/service"
)

// detectionSchema describes one element of a "detections" argument.
var detectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"bbox":  map[string]any{"type": "array", "items": map[string]any{"type": "number"}, "description": "Bounding box [x1, y1, x2, y2] in pixels"},
		"label": map[string]any{"type": "string", "description": "Item class, e.g. plastic_bottle"},
		"score": map[string]any{"type": "number", "description": "Confidence between 0 and 1"},
	},
	"required": []string{"bbox", "label", "score"},
}

func withDetections(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{
		mcp.Description("Detected trash items"),
		mcp.Items(detectionSchema),
	}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithArray("detections", opts...)
}

// =============================================================================
// plan_cleanup
// =============================================================================

func planCleanupTool() mcp.Tool {
	return mcp.NewTool(
		"plan_cleanup",
		mcp.WithDescription("Estimate the volunteers, time, equipment and urgency needed to clean up the detected trash."),
		withDetections(true),
		mcp.WithString("location", mcp.Description("Where the trash was found")),
		mcp.WithString("notes", mcp.Description("Extra context from the reporter")),
		mcp.WithBoolean("use_llm", mcp.Description("Generate the action summary with the configured language model (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

type planCleanupArgs struct {
	Detections []domain.Detection `json:"detections"`
	Location   string             `json:"location"`
	Notes      string             `json:"notes"`
	UseLLM     bool               `json:"use_llm"`
}

func (s *Server) planCleanup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args planCleanupArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArguments(err), nil
	}

	plan, err := s.svc.Plan(ctx, service.PlanInput{
		Detections: args.Detections,
		Location:   args.Location,
		Notes:      args.Notes,
		Enhance:    args.UseLLM,
	})
	if err != nil {
		return s.errorResult("plan_cleanup", err), nil
	}
	return jsonResult(plan)
}

// =============================================================================
// log_event
// =============================================================================

func logEventTool() mcp.Tool {
	return mcp.NewTool(
		"log_event",
		mcp.WithDescription("Save a trash detection event to history."),
		withDetections(true),
		mcp.WithString("severity", mcp.Required(), mcp.Enum("low", "medium", "high"), mcp.Description("Severity from plan_cleanup")),
		mcp.WithString("location", mcp.Description("Where the trash was found")),
		mcp.WithString("notes", mcp.Description("Extra context from the reporter")),
		mcp.WithString("image_path", mcp.Description("Path or key of the source image")),
		mcp.WithNumber("latitude", mcp.Description("Latitude in degrees")),
		mcp.WithNumber("longitude", mcp.Description("Longitude in degrees")),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
	)
}

type logEventArgs struct {
	Detections []domain.Detection `json:"detections"`
	Severity   domain.Severity    `json:"severity"`
	Location   string             `json:"location"`
	Notes      string             `json:"notes"`
	ImagePath  string             `json:"image_path"`
	Latitude   *float64           `json:"latitude"`
	Longitude  *float64           `json:"longitude"`
}

func (s *Server) logEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args logEventArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArguments(err), nil
	}

	res, err := s.svc.LogEvent(ctx, service.LogEventInput{
		Event: domain.NewEvent{
			Detections: args.Detections,
			Severity:   args.Severity,
			Location:   args.Location,
			Latitude:   args.Latitude,
			Longitude:  args.Longitude,
			Notes:      args.Notes,
			ImagePath:  args.ImagePath,
		},
	})
	if err != nil {
		return s.errorResult("log_event", err), nil
	}
	return jsonResult(map[string]any{
		"success":   true,
		"event_id":  res.ID,
		"timestamp": res.Timestamp,
		"message":   fmt.Sprintf("Event logged with ID %d", res.ID),
	})
}

// =============================================================================
// query_events
// =============================================================================

func queryEventsTool() mcp.Tool {
	return mcp.NewTool(
		"query_events",
		mcp.WithDescription("Search trash event history with filters. Aggregates cover every matching event, not just the returned page."),
		mcp.WithNumber("days", mcp.Description("Only events from the last N days (default: all time)")),
		mcp.WithString("location", mcp.Description("Case-sensitive substring of the location")),
		mcp.WithString("severity", mcp.Enum("low", "medium", "high"), mcp.Description("Exact severity")),
		mcp.WithNumber("min_trash_count", mcp.Description("Minimum number of items per event")),
		mcp.WithBoolean("cleaned_only", mcp.Description("Only events already marked cleaned")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return (default: 100)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type queryEventsArgs struct {
	Days          int             `json:"days"`
	Location      string          `json:"location"`
	Severity      domain.Severity `json:"severity"`
	MinTrashCount int             `json:"min_trash_count"`
	CleanedOnly   bool            `json:"cleaned_only"`
	Limit         int             `json:"limit"`
}

func (s *Server) queryEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args queryEventsArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArguments(err), nil
	}

	result, err := s.svc.QueryEvents(ctx, domain.EventFilter{
		Days:          args.Days,
		Location:      args.Location,
		Severity:      args.Severity,
		MinTrashCount: args.MinTrashCount,
		CleanedOnly:   args.CleanedOnly,
		Limit:         args.Limit,
	})
	if err != nil {
		return s.errorResult("query_events", err), nil
	}
	return jsonResult(result)
}

// =============================================================================
// get_hotspots
// =============================================================================

func getHotspotsTool() mcp.Tool {
	return mcp.NewTool(
		"get_hotspots",
		mcp.WithDescription("Find locations with recurring trash events, most frequent first."),
		mcp.WithNumber("min_events", mcp.Description("Minimum events to qualify as a hotspot (default: 2)")),
		mcp.WithNumber("days", mcp.Description("Time window in days (default: 30)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type getHotspotsArgs struct {
	MinEvents *int `json:"min_events"`
	Days      *int `json:"days"`
}

func (s *Server) getHotspots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getHotspotsArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArguments(err), nil
	}

	q := domain.HotspotQuery{
		MinEvents: domain.DefaultHotspotMinEvents,
		Days:      domain.DefaultHotspotDays,
	}
	if args.MinEvents != nil {
		q.MinEvents = *args.MinEvents
	}
	if args.Days != nil {
		q.Days = *args.Days
	}

	hotspots, err := s.svc.Hotspots(ctx, q)
	if err != nil {
		return s.errorResult("get_hotspots", err), nil
	}
	return jsonResult(map[string]any{
		"hotspots": hotspots,
		"count":    len(hotspots),
	})
}

// =============================================================================
// mark_cleaned
// =============================================================================

func markCleanedTool() mcp.Tool {
	return mcp.NewTool(
		"mark_cleaned",
		mcp.WithDescription("Mark a logged event as cleaned up."),
		mcp.WithNumber("event_id", mcp.Required(), mcp.Description("ID returned by log_event")),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

type markCleanedArgs struct {
	EventID int64 `json:"event_id"`
}

func (s *Server) markCleaned(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args markCleanedArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArguments(err), nil
	}

	if err := s.svc.MarkCleaned(ctx, args.EventID); err != nil {
		return s.errorResult("mark_cleaned", err), nil
	}
	return jsonResult(map[string]any{
		"success":  true,
		"event_id": args.EventID,
		"message":  fmt.Sprintf("Event %d marked as cleaned", args.EventID),
	})
}

// =============================================================================
// generate_report
// =============================================================================

func generateReportTool() mcp.Tool {
	return mcp.NewTool(
		"generate_report",
		mcp.WithDescription("Write a cleanup report for city services or volunteers."),
		withDetections(true),
		mcp.WithString("severity", mcp.Required(), mcp.Enum("low", "medium", "high"), mcp.Description("Severity from plan_cleanup")),
		mcp.WithString("location", mcp.Description("Where the trash was found")),
		mcp.WithString("notes", mcp.Description("Extra context from the reporter")),
		mcp.WithNumber("event_id", mcp.Description("ID returned by log_event")),
		mcp.WithObject("plan", mcp.Description("Plan returned by plan_cleanup")),
		mcp.WithString("format", mcp.Enum("email", "markdown", "structured", "plain"), mcp.Description("Report format (default: email)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type generateReportArgs struct {
	Detections []domain.Detection `json:"detections"`
	Severity   domain.Severity    `json:"severity"`
	Location   string             `json:"location"`
	Notes      string             `json:"notes"`
	EventID    int64              `json:"event_id"`
	Plan       *domain.Plan       `json:"plan"`
	Format     string             `json:"format"`
}

func (s *Server) generateReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args generateReportArgs
	if err := req.BindArguments(&args); err != nil {
		return invalidArguments(err), nil
	}

	rep, err := s.svc.FormatReport(ctx, service.ReportInput{
		Detections: args.Detections,
		Severity:   args.Severity,
		Location:   args.Location,
		Notes:      args.Notes,
		EventID:    args.EventID,
		Plan:       args.Plan,
		Style:      args.Format,
	})
	if err != nil {
		return s.errorResult("generate_report", err), nil
	}
	return jsonResult(rep)
}

// =============================================================================
// Results
// =============================================================================

// toolError is the JSON body of a failed tool call.
type toolError struct {
	Error   bool              `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorToolResult(body toolError) *mcp.CallToolResult {
	data, _ := json.Marshal(body)
	result := mcp.NewToolResultText(string(data))
	result.IsError = true
	return result
}

func invalidArguments(err error) *mcp.CallToolResult {
	return errorToolResult(toolError{
		Error:   true,
		Code:    domain.EINVALID,
		Message: fmt.Sprintf("invalid arguments: %v", err),
	})
}

// errorResult converts a service error into a tool error result. Internal
// causes are logged, not returned.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	code := domain.ErrorCode(err)
	if code == domain.EINTERNAL {
		s.logger.Error("tool failed", "tool", tool, "error", err)
	} else {
		s.logger.Info("tool rejected request", "tool", tool, "code", code, "error", err)
	}

	body := toolError{Error: true, Code: code, Message: domain.ErrorMessage(err)}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	return errorToolResult(body)
}
