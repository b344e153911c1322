package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AlBaraa63/Clean-City/internal"
	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway PostgreSQL container. Skipped in short mode
// and when Docker is unavailable.
func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "cleancity",
				"POSTGRES_USER":     "cleancity",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://cleancity:test_password@%s:%s/cleancity?sslmode=disable", host, port.Port())
}

func TestPostgresEventStore(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	db, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, internal.RunMigrations(db, DriverPostgres))
	require.NoError(t, internal.RunMigrations(db, DriverPostgres))

	clock := &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	s, err := New(db, DriverPostgres, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(clock.Now))
	require.NoError(t, err)

	first, err := s.Insert(ctx, newEvent("Main St", domain.SeverityLow, "can"))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = s.Insert(ctx, newEvent("Main St", domain.SeverityHigh, "can", "glass"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, newEvent("main st", domain.SeverityLow, "can"))
	require.NoError(t, err)

	result, err := s.Query(ctx, domain.EventFilter{Location: "Main", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Len(t, result.Events, 1)
	assert.Equal(t, 3, result.Summary.TotalTrashItems)

	hotspots, err := s.Hotspots(ctx, domain.HotspotQuery{MinEvents: 2})
	require.NoError(t, err)
	require.Len(t, hotspots, 1)
	assert.Equal(t, []domain.Severity{domain.SeverityLow, domain.SeverityHigh}, hotspots[0].DistinctSeverities)

	require.NoError(t, s.MarkCleaned(ctx, first.ID))
	ev, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ev.Cleaned)
	assert.True(t, first.Timestamp.Equal(ev.Timestamp))
}
