// Package domain contains core business types and interfaces.
//
// This file defines the persisted Event record, the filters used to query
// event history, and the derived Hotspot aggregate.
package domain

import (
	"fmt"
	"time"

	"github.com/golang/geo/s2"
)

// =============================================================================
// Event
// =============================================================================

// Event is a persisted detection occurrence. Severity, TrashCount and
// Categories are frozen at insert time; only Cleaned may change afterwards.
type Event struct {
	ID         int64       `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Location   string      `json:"location,omitempty"`
	Latitude   *float64    `json:"latitude,omitempty"`
	Longitude  *float64    `json:"longitude,omitempty"`
	Severity   Severity    `json:"severity"`
	TrashCount int         `json:"trash_count"`
	Categories []string    `json:"categories"`
	Detections []Detection `json:"detections"`
	Notes      string      `json:"notes,omitempty"`
	ImagePath  string      `json:"image_path,omitempty"`
	Cleaned    bool        `json:"cleaned"`
}

// NewEvent holds the caller-supplied fields of an event about to be inserted.
// Empty strings mean the optional field is absent.
type NewEvent struct {
	Detections []Detection
	Severity   Severity
	Location   string
	Latitude   *float64
	Longitude  *float64
	Notes      string
	ImagePath  string
}

// TrashCount is the number of detections recorded with the event.
func (e NewEvent) TrashCount() int {
	return len(e.Detections)
}

// Categories is the sorted set of distinct labels recorded with the event.
func (e NewEvent) Categories() []string {
	return DistinctLabels(e.Detections)
}

// Validate checks the event before insertion.
func (e NewEvent) Validate(op string) error {
	ve := &ValidationError{Op: op, Fields: map[string]string{}}
	if !e.Severity.IsValid() {
		ve.Fields["severity"] = "severity must be one of low, medium, high"
	}
	for i, d := range e.Detections {
		d.Validate(fmt.Sprintf("detections[%d]", i), ve)
	}
	if err := ValidateCoordinates(e.Latitude, e.Longitude); err != "" {
		ve.Fields["coordinates"] = err
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// ValidateCoordinates returns a message describing why the optional
// latitude/longitude pair is unusable, or "" when it is acceptable.
func ValidateCoordinates(lat, lng *float64) string {
	if lat == nil && lng == nil {
		return ""
	}
	if lat == nil || lng == nil {
		return "latitude and longitude must be provided together"
	}
	if !s2.LatLngFromDegrees(*lat, *lng).IsValid() {
		return "latitude must be within [-90, 90] and longitude within [-180, 180]"
	}
	return ""
}

// InsertResult identifies a newly stored event.
type InsertResult struct {
	ID        int64     `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// Querying
// =============================================================================

// DefaultQueryLimit caps the number of events returned by a query.
const DefaultQueryLimit = 100

// EventFilter narrows an event query. Zero values disable a filter; all
// active filters must match.
type EventFilter struct {
	Days          int      // events within the last N days; 0 = all time
	Location      string   // case-sensitive substring of the location
	Severity      Severity // exact severity
	MinTrashCount int      // trash_count >= MinTrashCount
	CleanedOnly   bool     // only events already marked cleaned
	Limit         int      // maximum rows returned; 0 = DefaultQueryLimit
}

// Validate rejects negative bounds and unknown severities.
func (f EventFilter) Validate(op string) error {
	ve := &ValidationError{Op: op, Fields: map[string]string{}}
	if f.Days < 0 {
		ve.Fields["days"] = "days must not be negative"
	}
	if f.MinTrashCount < 0 {
		ve.Fields["min_trash_count"] = "min_trash_count must not be negative"
	}
	if f.Limit < 0 {
		ve.Fields["limit"] = "limit must not be negative"
	}
	if f.Severity != "" && !f.Severity.IsValid() {
		ve.Fields["severity"] = "severity must be one of low, medium, high"
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// EffectiveLimit returns the row cap to apply.
func (f EventFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	return f.Limit
}

// Summary aggregates the full filtered set, independent of the row limit.
type Summary struct {
	TotalEvents      int     `json:"total_events"`
	TotalTrashItems  int     `json:"total_trash_items"`
	AvgTrashPerEvent float64 `json:"avg_trash_per_event"`
	UniqueLocations  int     `json:"unique_locations"`
}

// QueryResult is a page of events plus aggregates over every matching event.
type QueryResult struct {
	Events     []Event `json:"events"`
	TotalCount int     `json:"total_count"`
	Summary    Summary `json:"aggregate_summary"`
}

// =============================================================================
// Hotspots
// =============================================================================

// DefaultHotspotMinEvents is the minimum group size reported as a hotspot.
const DefaultHotspotMinEvents = 2

// DefaultHotspotDays is the window used by callers that do not specify one.
const DefaultHotspotDays = 30

// HotspotQuery selects recurring locations. Days of 0 means all time.
type HotspotQuery struct {
	MinEvents int
	Days      int
}

// Validate rejects negative bounds.
func (q HotspotQuery) Validate(op string) error {
	ve := &ValidationError{Op: op, Fields: map[string]string{}}
	if q.MinEvents < 0 {
		ve.Fields["min_events"] = "min_events must not be negative"
	}
	if q.Days < 0 {
		ve.Fields["days"] = "days must not be negative"
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// Hotspot is a location with repeated events, computed on demand.
type Hotspot struct {
	Location           string     `json:"location"`
	EventCount         int        `json:"event_count"`
	TotalTrash         int        `json:"total_trash"`
	AvgTrash           float64    `json:"avg_trash"`
	LastEventTimestamp time.Time  `json:"last_event_timestamp"`
	DistinctSeverities []Severity `json:"distinct_severities"`
}
