package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AlBaraa63/Clean-City/internal"
	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*EventStore, *fakeClock) {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "events.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, internal.RunMigrations(db, DriverSQLite))

	clock := &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	s, err := New(db, DriverSQLite, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func det(label string) domain.Detection {
	return domain.Detection{BBox: domain.BBox{1, 2, 30, 40}, Label: label, Score: 0.9}
}

func newEvent(location string, severity domain.Severity, labels ...string) domain.NewEvent {
	ds := make([]domain.Detection, len(labels))
	for i, l := range labels {
		ds[i] = det(l)
	}
	return domain.NewEvent{Detections: ds, Severity: severity, Location: location}
}

func TestInsertAndGet(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	lat, lng := 51.5, -0.12
	res, err := s.Insert(ctx, domain.NewEvent{
		Detections: []domain.Detection{det("plastic_bottle"), det("can"), det("plastic_bottle")},
		Severity:   domain.SeverityMedium,
		Location:   "Main St",
		Latitude:   &lat,
		Longitude:  &lng,
		Notes:      "near the bus stop",
		ImagePath:  "events/2025/03/a.jpg",
	})
	require.NoError(t, err)
	assert.Positive(t, res.ID)
	assert.True(t, clock.Now().Equal(res.Timestamp))

	ev, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, ev.ID)
	assert.True(t, res.Timestamp.Equal(ev.Timestamp))
	assert.Equal(t, "Main St", ev.Location)
	assert.Equal(t, domain.SeverityMedium, ev.Severity)
	assert.Equal(t, 3, ev.TrashCount)
	assert.Equal(t, []string{"can", "plastic_bottle"}, ev.Categories)
	assert.Len(t, ev.Detections, 3)
	assert.Equal(t, "near the bus stop", ev.Notes)
	assert.Equal(t, "events/2025/03/a.jpg", ev.ImagePath)
	require.NotNil(t, ev.Latitude)
	assert.Equal(t, lat, *ev.Latitude)
	assert.False(t, ev.Cleaned)
}

func TestInsert_EmptyOptionalFields(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	res, err := s.Insert(ctx, domain.NewEvent{Severity: domain.SeverityLow})
	require.NoError(t, err)

	ev, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, ev.Location)
	assert.Nil(t, ev.Latitude)
	assert.Equal(t, 0, ev.TrashCount)
	assert.NotNil(t, ev.Categories)
	assert.NotNil(t, ev.Detections)
}

func TestInsert_Invalid(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Insert(context.Background(), domain.NewEvent{Severity: "extreme"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = s.Insert(context.Background(), domain.NewEvent{
		Severity:   domain.SeverityLow,
		Detections: []domain.Detection{{Label: "", Score: 2}},
	})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	result, err := s.Query(context.Background(), domain.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCount)
}

func TestInsert_IDsIncrease(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		res, err := s.Insert(ctx, newEvent("Main St", domain.SeverityLow, "can"))
		require.NoError(t, err)
		assert.Greater(t, res.ID, last)
		last = res.ID
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), 999)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestMarkCleaned(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	res, err := s.Insert(ctx, newEvent("Main St", domain.SeverityLow, "can"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, newEvent("Oak Ave", domain.SeverityLow, "can"))
	require.NoError(t, err)

	require.NoError(t, s.MarkCleaned(ctx, res.ID))
	require.NoError(t, s.MarkCleaned(ctx, res.ID), "marking twice succeeds")

	cleaned, err := s.Query(ctx, domain.EventFilter{CleanedOnly: true})
	require.NoError(t, err)
	require.Len(t, cleaned.Events, 1)
	assert.Equal(t, res.ID, cleaned.Events[0].ID)
	assert.True(t, cleaned.Events[0].Cleaned)

	err = s.MarkCleaned(ctx, 12345)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestQuery_SummaryCoversFullFilteredSet(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	counts := []int{1, 2, 3, 4, 5}
	locations := []string{"Main St", "Oak Ave", "Main St", "Pier 4", "Main St"}
	for i, n := range counts {
		labels := make([]string, n)
		for j := range labels {
			labels[j] = "can"
		}
		_, err := s.Insert(ctx, newEvent(locations[i], domain.SeverityLow, labels...))
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	result, err := s.Query(ctx, domain.EventFilter{Limit: 2})
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	assert.Equal(t, 5, result.Events[0].TrashCount, "newest first")
	assert.Equal(t, 4, result.Events[1].TrashCount)

	assert.Equal(t, 5, result.TotalCount)
	assert.Equal(t, domain.Summary{
		TotalEvents:      5,
		TotalTrashItems:  15,
		AvgTrashPerEvent: 3,
		UniqueLocations:  3,
	}, result.Summary)
}

func TestQuery_Filters(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, newEvent("Main St", domain.SeverityHigh, "can", "can", "glass"))
	require.NoError(t, err)
	clock.Advance(10 * 24 * time.Hour)
	_, err = s.Insert(ctx, newEvent("main street park", domain.SeverityLow, "can"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, newEvent("", domain.SeverityMedium, "can", "bag"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter domain.EventFilter
		want   int
	}{
		{name: "no filter", filter: domain.EventFilter{}, want: 3},
		{name: "last 7 days", filter: domain.EventFilter{Days: 7}, want: 2},
		{name: "last 30 days", filter: domain.EventFilter{Days: 30}, want: 3},
		{name: "location is case-sensitive", filter: domain.EventFilter{Location: "Main"}, want: 1},
		{name: "location substring", filter: domain.EventFilter{Location: "street"}, want: 1},
		{name: "severity", filter: domain.EventFilter{Severity: domain.SeverityMedium}, want: 1},
		{name: "min trash count", filter: domain.EventFilter{MinTrashCount: 2}, want: 2},
		{name: "combined", filter: domain.EventFilter{Days: 7, MinTrashCount: 2}, want: 1},
		{name: "cleaned only", filter: domain.EventFilter{CleanedOnly: true}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.TotalCount)
			assert.Len(t, result.Events, tt.want)
			assert.NotNil(t, result.Events)
		})
	}
}

func TestQuery_InvalidFilter(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Query(context.Background(), domain.EventFilter{Days: -1})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = s.Query(context.Background(), domain.EventFilter{Severity: "urgent"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestHotspots(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	inserts := []domain.NewEvent{
		newEvent("Main St", domain.SeverityLow, "can"),
		newEvent("Oak Ave", domain.SeverityHigh, "can", "can", "can", "can"),
		newEvent("Main St", domain.SeverityHigh, "can", "bag"),
		newEvent("", domain.SeverityLow, "can"),
		newEvent("", domain.SeverityLow, "can"),
		newEvent("Main St", domain.SeverityMedium, "can", "bag", "cup"),
	}
	var last time.Time
	for _, e := range inserts {
		res, err := s.Insert(ctx, e)
		require.NoError(t, err)
		if e.Location == "Main St" {
			last = res.Timestamp
		}
		clock.Advance(time.Hour)
	}

	hotspots, err := s.Hotspots(ctx, domain.HotspotQuery{MinEvents: 2})
	require.NoError(t, err)
	require.Len(t, hotspots, 1)

	h := hotspots[0]
	assert.Equal(t, "Main St", h.Location)
	assert.Equal(t, 3, h.EventCount)
	assert.Equal(t, 6, h.TotalTrash)
	assert.InDelta(t, 2.0, h.AvgTrash, 1e-9)
	assert.True(t, last.Equal(h.LastEventTimestamp))
	assert.Equal(t, []domain.Severity{domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh}, h.DistinctSeverities)

	all, err := s.Hotspots(ctx, domain.HotspotQuery{MinEvents: 1})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Main St", all[0].Location)
	assert.Equal(t, "Oak Ave", all[1].Location)
}

func TestHotspots_DaysWindowAndDefaults(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, newEvent("Pier 4", domain.SeverityLow, "can"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, newEvent("Pier 4", domain.SeverityLow, "can"))
	require.NoError(t, err)
	clock.Advance(40 * 24 * time.Hour)

	hotspots, err := s.Hotspots(ctx, domain.HotspotQuery{})
	require.NoError(t, err)
	assert.Len(t, hotspots, 1, "zero min events uses the default of two")

	hotspots, err = s.Hotspots(ctx, domain.HotspotQuery{Days: 30})
	require.NoError(t, err)
	assert.NotNil(t, hotspots)
	assert.Empty(t, hotspots)
}

func TestConcurrentInserts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Insert(ctx, newEvent("Main St", domain.SeverityLow, "can"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	result, err := s.Query(ctx, domain.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 20, result.TotalCount)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, internal.RunMigrations(s.db, DriverSQLite))
}
