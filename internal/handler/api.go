// Package handler contains the HTTP handlers for the CleanCity JSON API.
//
// Handlers decode requests, call the CleanupService, and write JSON. Error
// mapping lives in error.go.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/service"
	"github.com/AlBaraa63/Clean-City/internal/storage"
)

// maxJSONBody bounds request bodies. Base64 inflates an image by a third.
const maxJSONBody = storage.MaxImageSize*4/3 + 1<<20

// =============================================================================
// Handler Configuration
// =============================================================================

// APIHandler serves the /api routes.
type APIHandler struct {
	svc      service.CleanupService
	detector domain.Detector
	logger   *slog.Logger
}

// NewAPIHandler creates a new APIHandler. detector may be nil, in which
// case image analysis answers 503.
func NewAPIHandler(svc service.CleanupService, detector domain.Detector, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		svc:      svc,
		detector: detector,
		logger:   logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all API routes with the provided mux. limit
// wraps the routes that may call a narrative provider or a detector.
//
// Routes:
// - POST /api/plan                -> Plan
// - POST /api/workflow            -> Workflow
// - POST /api/analyze             -> Analyze
// - POST /api/events              -> LogEvent
// - GET  /api/events              -> QueryEvents
// - GET  /api/events/{id}         -> GetEvent
// - GET  /api/events/{id}/image   -> EventImage
// - POST /api/events/{id}/cleaned -> MarkCleaned
// - GET  /api/hotspots            -> Hotspots
// - GET  /api/hotspots/analysis   -> AnalyzeHotspots
// - POST /api/reports             -> FormatReport
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.Handle("POST /api/plan", limit(http.HandlerFunc(h.Plan)))
	mux.Handle("POST /api/workflow", limit(http.HandlerFunc(h.Workflow)))
	mux.Handle("POST /api/analyze", limit(http.HandlerFunc(h.Analyze)))
	mux.HandleFunc("POST /api/events", h.LogEvent)
	mux.HandleFunc("GET /api/events", h.QueryEvents)
	mux.HandleFunc("GET /api/events/{id}", h.GetEvent)
	mux.HandleFunc("GET /api/events/{id}/image", h.EventImage)
	mux.HandleFunc("POST /api/events/{id}/cleaned", h.MarkCleaned)
	mux.HandleFunc("GET /api/hotspots", h.Hotspots)
	mux.HandleFunc("GET /api/hotspots/analysis", h.AnalyzeHotspots)
	mux.HandleFunc("POST /api/reports", h.FormatReport)
}

// =============================================================================
// POST /api/plan
// =============================================================================

type planRequest struct {
	Detections []domain.Detection `json:"detections"`
	Location   string             `json:"location"`
	Notes      string             `json:"notes"`
	Enhance    bool               `json:"enhance"`
}

// Plan computes a cleanup plan without storing anything.
func (h *APIHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	plan, err := h.svc.Plan(r.Context(), service.PlanInput{
		Detections: req.Detections,
		Location:   req.Location,
		Notes:      req.Notes,
		Enhance:    req.Enhance,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// =============================================================================
// POST /api/workflow and POST /api/analyze
// =============================================================================

type workflowRequest struct {
	Detections       []domain.Detection `json:"detections"`
	Location         string             `json:"location"`
	Notes            string             `json:"notes"`
	Latitude         *float64           `json:"latitude"`
	Longitude        *float64           `json:"longitude"`
	SaveToHistory    *bool              `json:"save_to_history"` // default true
	Enhance          bool               `json:"enhance"`
	ReportStyle      string             `json:"report_style"`
	Image            []byte             `json:"image"` // base64
	ImageContentType string             `json:"image_content_type"`
}

func (req workflowRequest) input() service.WorkflowInput {
	save := true
	if req.SaveToHistory != nil {
		save = *req.SaveToHistory
	}
	return service.WorkflowInput{
		Detections:       req.Detections,
		Location:         req.Location,
		Notes:            req.Notes,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		SaveToHistory:    save,
		Enhance:          req.Enhance,
		ReportStyle:      req.ReportStyle,
		Image:            req.Image,
		ImageContentType: req.ImageContentType,
	}
}

// Workflow plans, logs and reports on detections in one call.
func (h *APIHandler) Workflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.svc.Run(r.Context(), req.input())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Analyze runs the configured detector on an uploaded image and then the
// workflow. Expects multipart/form-data with an "image" file and optional
// location, notes, latitude, longitude, save_to_history, enhance and
// report_style fields.
func (h *APIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	const op = "handler.analyze"

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		ErrorResponse(w, r, h.logger, bodyError(op, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "image", "image file is required"))
		return
	}
	image, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		ErrorResponse(w, r, h.logger, bodyError(op, err))
		return
	}

	in, err := formWorkflowInput(op, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	in.ImageContentType = header.Header.Get("Content-Type")

	result, err := h.svc.AnalyzeImage(r.Context(), h.detector, image, in)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func formWorkflowInput(op string, r *http.Request) (service.WorkflowInput, error) {
	ve := &domain.ValidationError{Op: op, Fields: map[string]string{}}

	in := service.WorkflowInput{
		Location:      r.FormValue("location"),
		Notes:         r.FormValue("notes"),
		ReportStyle:   r.FormValue("report_style"),
		SaveToHistory: formBool(ve, r, "save_to_history", true),
		Enhance:       formBool(ve, r, "enhance", false),
		Latitude:      formFloat(ve, r, "latitude"),
		Longitude:     formFloat(ve, r, "longitude"),
	}
	if len(ve.Fields) > 0 {
		return service.WorkflowInput{}, ve
	}
	return in, nil
}

// =============================================================================
// Events
// =============================================================================

type logEventRequest struct {
	Detections       []domain.Detection `json:"detections"`
	Severity         domain.Severity    `json:"severity"`
	Location         string             `json:"location"`
	Latitude         *float64           `json:"latitude"`
	Longitude        *float64           `json:"longitude"`
	Notes            string             `json:"notes"`
	ImagePath        string             `json:"image_path"`
	Image            []byte             `json:"image"` // base64
	ImageContentType string             `json:"image_content_type"`
}

// LogEvent stores an event.
func (h *APIHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	res, err := h.svc.LogEvent(r.Context(), service.LogEventInput{
		Event: domain.NewEvent{
			Detections: req.Detections,
			Severity:   req.Severity,
			Location:   req.Location,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			Notes:      req.Notes,
			ImagePath:  req.ImagePath,
		},
		Image:            req.Image,
		ImageContentType: req.ImageContentType,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// QueryEvents filters event history. Query parameters: days, location,
// severity, min_trash_count, cleaned_only, limit.
func (h *APIHandler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	const op = "handler.query_events"

	ve := &domain.ValidationError{Op: op, Fields: map[string]string{}}
	q := r.URL.Query()
	filter := domain.EventFilter{
		Days:          queryInt(ve, q.Get("days"), "days"),
		Location:      q.Get("location"),
		Severity:      domain.Severity(q.Get("severity")),
		MinTrashCount: queryInt(ve, q.Get("min_trash_count"), "min_trash_count"),
		CleanedOnly:   queryBool(ve, q.Get("cleaned_only"), "cleaned_only"),
		Limit:         queryInt(ve, q.Get("limit"), "limit"),
	}
	if len(ve.Fields) > 0 {
		ErrorResponse(w, r, h.logger, ve)
		return
	}

	result, err := h.svc.QueryEvents(r.Context(), filter)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetEvent returns a single event.
func (h *APIHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ev, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// EventImage streams the archived image of an event.
func (h *APIHandler) EventImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	data, contentType, err := h.svc.EventImage(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// MarkCleaned flags an event as cleaned up.
func (h *APIHandler) MarkCleaned(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.svc.MarkCleaned(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": id, "cleaned": true})
}

// =============================================================================
// Hotspots
// =============================================================================

// Hotspots lists recurring locations. Query parameters: min_events
// (default 2), days (default all time).
func (h *APIHandler) Hotspots(w http.ResponseWriter, r *http.Request) {
	const op = "handler.hotspots"

	ve := &domain.ValidationError{Op: op, Fields: map[string]string{}}
	q := r.URL.Query()
	query := domain.HotspotQuery{
		MinEvents: domain.DefaultHotspotMinEvents,
		Days:      queryInt(ve, q.Get("days"), "days"),
	}
	if v := q.Get("min_events"); v != "" {
		query.MinEvents = queryInt(ve, v, "min_events")
	}
	if len(ve.Fields) > 0 {
		ErrorResponse(w, r, h.logger, ve)
		return
	}

	hotspots, err := h.svc.Hotspots(r.Context(), query)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hotspots": hotspots,
		"count":    len(hotspots),
	})
}

// AnalyzeHotspots lists hotspots with a recommendation for the worst one.
// Query parameter: days (default 30).
func (h *APIHandler) AnalyzeHotspots(w http.ResponseWriter, r *http.Request) {
	const op = "handler.analyze_hotspots"

	ve := &domain.ValidationError{Op: op, Fields: map[string]string{}}
	days := queryInt(ve, r.URL.Query().Get("days"), "days")
	if days < 0 {
		ve.Fields["days"] = "days must not be negative"
	}
	if len(ve.Fields) > 0 {
		ErrorResponse(w, r, h.logger, ve)
		return
	}

	analysis, err := h.svc.AnalyzeHotspots(r.Context(), days)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// =============================================================================
// POST /api/reports
// =============================================================================

type reportRequest struct {
	Detections  []domain.Detection `json:"detections"`
	Severity    domain.Severity    `json:"severity"`
	Location    string             `json:"location"`
	Notes       string             `json:"notes"`
	EventID     int64              `json:"event_id"`
	Plan        *domain.Plan       `json:"plan"`
	IncludePlan bool               `json:"include_plan"`
	Style       string             `json:"style"`
}

// FormatReport renders a report without storing anything.
func (h *APIHandler) FormatReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rep, err := h.svc.FormatReport(r.Context(), service.ReportInput{
		Detections:  req.Detections,
		Severity:    req.Severity,
		Location:    req.Location,
		Notes:       req.Notes,
		EventID:     req.EventID,
		Plan:        req.Plan,
		IncludePlan: req.IncludePlan,
		Style:       req.Style,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// =============================================================================
// Helpers
// =============================================================================

// decodeJSON decodes a bounded JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "handler.decode"

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return bodyError(op, err)
	}
	return nil
}

func bodyError(op string, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.Errorf(domain.ETOOLARGE, op, "request body exceeds %d bytes", maxErr.Limit)
	}
	return domain.Wrap(err, domain.EINVALID, op, fmt.Sprintf("malformed request body: %v", err))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("handler.path_id", "id", "id must be a positive integer")
	}
	return id, nil
}

func queryInt(ve *domain.ValidationError, value, field string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		ve.Fields[field] = field + " must be an integer"
	}
	return n
}

func queryBool(ve *domain.ValidationError, value, field string) bool {
	if value == "" {
		return false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		ve.Fields[field] = field + " must be true or false"
	}
	return b
}

func formBool(ve *domain.ValidationError, r *http.Request, field string, fallback bool) bool {
	if r.FormValue(field) == "" {
		return fallback
	}
	return queryBool(ve, r.FormValue(field), field)
}

func formFloat(ve *domain.ValidationError, r *http.Request, field string) *float64 {
	value := r.FormValue(field)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		ve.Fields[field] = field + " must be a number"
		return nil
	}
	return &f
}
