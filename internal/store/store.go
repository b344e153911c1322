package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/metrics"
)

// EventStore is the durable event log. It is safe for concurrent use.
type EventStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithClock overrides the clock used for insert timestamps and day windows.
func WithClock(now func() time.Time) Option {
	return func(s *EventStore) {
		s.now = now
	}
}

// New creates an EventStore over an open, migrated database.
func New(db *sql.DB, driver string, logger *slog.Logger, opts ...Option) (*EventStore, error) {
	d, err := newDialect(driver)
	if err != nil {
		return nil, err
	}
	s := &EventStore{
		db:      db,
		dialect: d,
		logger:  logger.With("component", "store"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// =============================================================================
// Insert
// =============================================================================

// Insert validates and appends an event. The timestamp is assigned here and
// the id is generated by the database.
func (s *EventStore) Insert(ctx context.Context, e domain.NewEvent) (res domain.InsertResult, err error) {
	const op = "store.insert"

	if err := e.Validate(op); err != nil {
		return domain.InsertResult{}, err
	}

	start := time.Now()
	defer metrics.ObserveStoreOp("insert", start, &err)

	categories, err := json.Marshal(nonNil(e.Categories()))
	if err != nil {
		return domain.InsertResult{}, domain.Internal(err, op, "failed to encode categories")
	}
	detections := e.Detections
	if detections == nil {
		detections = []domain.Detection{}
	}
	detectionsJSON, err := json.Marshal(detections)
	if err != nil {
		return domain.InsertResult{}, domain.Internal(err, op, "failed to encode detections")
	}

	ts := s.now().UTC()
	query := s.dialect.rebind(`
		INSERT INTO events (timestamp, location, latitude, longitude, severity,
			trash_count, categories, detections_json, notes, image_path, cleaned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err = s.db.QueryRowContext(ctx, query,
		s.dialect.timeArg(ts),
		nullString(e.Location),
		nullFloat(e.Latitude),
		nullFloat(e.Longitude),
		string(e.Severity),
		e.TrashCount(),
		string(categories),
		string(detectionsJSON),
		nullString(e.Notes),
		nullString(e.ImagePath),
		false,
	).Scan(&id)
	if err != nil {
		return domain.InsertResult{}, domain.StorageFailure(err, op)
	}

	metrics.EventsLogged.WithLabelValues(string(e.Severity)).Inc()
	metrics.TrashItemsLogged.Add(float64(e.TrashCount()))

	s.logger.Info("event logged",
		"event_id", id,
		"severity", e.Severity,
		"trash_count", e.TrashCount(),
		"location", e.Location,
	)

	return domain.InsertResult{ID: id, Timestamp: ts}, nil
}

// =============================================================================
// Reads
// =============================================================================

const eventColumns = `id, timestamp, location, latitude, longitude, severity,
	trash_count, categories, detections_json, notes, image_path, cleaned`

// Get returns a single event by id.
func (s *EventStore) Get(ctx context.Context, id int64) (ev domain.Event, err error) {
	const op = "store.get"

	start := time.Now()
	defer metrics.ObserveStoreOp("get", start, &err)

	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+eventColumns+" FROM events WHERE id = ?"), id)

	ev, err = scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.NotFound(op, "event", id)
	}
	if err != nil {
		return domain.Event{}, domain.StorageFailure(err, op)
	}
	return ev, nil
}

// where builds the conjunction of active filters.
func (s *EventStore) where(f domain.EventFilter) (string, []any) {
	var conditions []string
	var args []any

	if f.Days > 0 {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, s.dialect.timeArg(s.now().AddDate(0, 0, -f.Days)))
	}
	if f.Location != "" {
		conditions = append(conditions, "location IS NOT NULL AND "+s.dialect.contains("location"))
		args = append(args, f.Location)
	}
	if f.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if f.MinTrashCount > 0 {
		conditions = append(conditions, "trash_count >= ?")
		args = append(args, f.MinTrashCount)
	}
	if f.CleanedOnly {
		conditions = append(conditions, "cleaned = ?")
		args = append(args, true)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Query returns the newest matching events, up to the filter's limit, along
// with aggregates computed over every matching event. The aggregate and the
// page are read by separate statements, so a concurrent insert may appear in
// one and not the other.
func (s *EventStore) Query(ctx context.Context, f domain.EventFilter) (res domain.QueryResult, err error) {
	const op = "store.query"

	if err := f.Validate(op); err != nil {
		return domain.QueryResult{}, err
	}

	start := time.Now()
	defer metrics.ObserveStoreOp("query", start, &err)

	where, args := s.where(f)

	var total, trash, locations int
	err = s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT COUNT(*), COALESCE(SUM(trash_count), 0), COUNT(DISTINCT location) FROM events`+where),
		args...,
	).Scan(&total, &trash, &locations)
	if err != nil {
		return domain.QueryResult{}, domain.StorageFailure(err, op)
	}

	pageArgs := append(append([]any{}, args...), f.EffectiveLimit())
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind("SELECT "+eventColumns+" FROM events"+where+" ORDER BY timestamp DESC, id DESC LIMIT ?"),
		pageArgs...,
	)
	if err != nil {
		return domain.QueryResult{}, domain.StorageFailure(err, op)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return domain.QueryResult{}, domain.StorageFailure(err, op)
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return domain.QueryResult{}, domain.StorageFailure(err, op)
	}

	return domain.QueryResult{
		Events:     events,
		TotalCount: total,
		Summary: domain.Summary{
			TotalEvents:      total,
			TotalTrashItems:  trash,
			AvgTrashPerEvent: average(trash, total),
			UniqueLocations:  locations,
		},
	}, nil
}

// Hotspots groups located events by exact location and returns the groups
// with at least MinEvents members, most frequent first.
func (s *EventStore) Hotspots(ctx context.Context, q domain.HotspotQuery) (out []domain.Hotspot, err error) {
	const op = "store.hotspots"

	if err := q.Validate(op); err != nil {
		return nil, err
	}
	minEvents := q.MinEvents
	if minEvents <= 0 {
		minEvents = domain.DefaultHotspotMinEvents
	}

	start := time.Now()
	defer metrics.ObserveStoreOp("hotspots", start, &err)

	conditions := []string{"location IS NOT NULL"}
	var args []any
	if q.Days > 0 {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, s.dialect.timeArg(s.now().AddDate(0, 0, -q.Days)))
	}
	args = append(args, minEvents)

	query := `SELECT location, COUNT(*) AS event_count, COALESCE(SUM(trash_count), 0) AS total_trash,
			MAX(timestamp), ` + s.dialect.distinctList("severity") + `
		FROM events
		WHERE ` + strings.Join(conditions, " AND ") + `
		GROUP BY location
		HAVING COUNT(*) >= ?
		ORDER BY event_count DESC, total_trash DESC, location ASC`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, domain.StorageFailure(err, op)
	}
	defer rows.Close()

	out = []domain.Hotspot{}
	for rows.Next() {
		var (
			h          domain.Hotspot
			last       dbTime
			severities sql.NullString
		)
		if err = rows.Scan(&h.Location, &h.EventCount, &h.TotalTrash, &last, &severities); err != nil {
			return nil, domain.StorageFailure(err, op)
		}
		h.AvgTrash = average(h.TotalTrash, h.EventCount)
		h.LastEventTimestamp = last.Time
		h.DistinctSeverities = splitSeverities(severities.String)
		out = append(out, h)
	}
	if err = rows.Err(); err != nil {
		return nil, domain.StorageFailure(err, op)
	}
	return out, nil
}

// =============================================================================
// Updates
// =============================================================================

// MarkCleaned sets the cleaned flag on an existing event. Marking an already
// cleaned event succeeds without change.
func (s *EventStore) MarkCleaned(ctx context.Context, id int64) (err error) {
	const op = "store.mark_cleaned"

	start := time.Now()
	defer metrics.ObserveStoreOp("mark_cleaned", start, &err)

	result, err := s.db.ExecContext(ctx,
		s.dialect.rebind("UPDATE events SET cleaned = ? WHERE id = ?"), true, id)
	if err != nil {
		return domain.StorageFailure(err, op)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.StorageFailure(err, op)
	}
	if affected == 0 {
		return domain.NotFound(op, "event", id)
	}

	metrics.EventsCleaned.Inc()
	s.logger.Info("event marked cleaned", "event_id", id)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (domain.Event, error) {
	var (
		ev                    domain.Event
		ts                    dbTime
		location, notes, img  sql.NullString
		lat, lng              sql.NullFloat64
		severity              string
		categories, detection string
	)
	err := row.Scan(&ev.ID, &ts, &location, &lat, &lng, &severity,
		&ev.TrashCount, &categories, &detection, &notes, &img, &ev.Cleaned)
	if err != nil {
		return domain.Event{}, err
	}

	ev.Timestamp = ts.Time
	ev.Location = location.String
	ev.Notes = notes.String
	ev.ImagePath = img.String
	ev.Severity = domain.Severity(severity)
	if lat.Valid {
		ev.Latitude = &lat.Float64
	}
	if lng.Valid {
		ev.Longitude = &lng.Float64
	}
	if err := json.Unmarshal([]byte(categories), &ev.Categories); err != nil {
		return domain.Event{}, err
	}
	if err := json.Unmarshal([]byte(detection), &ev.Detections); err != nil {
		return domain.Event{}, err
	}
	ev.Categories = nonNil(ev.Categories)
	if ev.Detections == nil {
		ev.Detections = []domain.Detection{}
	}
	return ev, nil
}

func splitSeverities(s string) []domain.Severity {
	out := []domain.Severity{}
	if s == "" {
		return out
	}
	for _, part := range strings.Split(s, ",") {
		out = append(out, domain.Severity(strings.TrimSpace(part)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

func average(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
