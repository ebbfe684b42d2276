package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotahub/saas-auth-api/internal/model"
)

func ms(v float64) *float64 { return &v }

func TestRecordAppendsOneEventPerCall(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := rec.Record(ctx, 1, "/v1/protected", "GET", 200, ms(10))
		require.NoError(t, err)
	}
	_, err := rec.Record(ctx, 2, "/v1/protected", "GET", 200, ms(10))
	require.NoError(t, err)

	stats, err := rec.UserStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalRequests)
}

func TestRecordPublishes(t *testing.T) {
	store := NewMemoryStore()
	var published []model.UsageLog
	rec := NewRecorder(store, func(_ context.Context, ev model.UsageLog) {
		published = append(published, ev)
	})

	ev, err := rec.Record(context.Background(), 1, "/v1/me", "GET", 200, nil)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, ev.ID, published[0].ID)
}

func TestAverageResponseTimeExcludesMissingLatency(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	_, err := rec.Record(ctx, 1, "/a", "GET", 200, ms(10))
	require.NoError(t, err)
	_, err = rec.Record(ctx, 1, "/a", "GET", 200, ms(30))
	require.NoError(t, err)
	_, err = rec.Record(ctx, 1, "/a", "GET", 200, nil) // no latency recorded
	require.NoError(t, err)

	stats, err := rec.UserStats(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, stats.AverageResponseTime, 1e-9)
}

func TestAverageResponseTimeZeroWhenNoneRecorded(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	_, err := rec.Record(ctx, 1, "/a", "GET", 200, nil)
	require.NoError(t, err)

	stats, err := rec.UserStats(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, stats.AverageResponseTime)
}

func TestMostUsedEndpointTieBreak(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	// /b leads on count.
	for _, e := range []string{"/a", "/b", "/b"} {
		_, err := rec.Record(ctx, 1, e, "GET", 200, nil)
		require.NoError(t, err)
	}
	stats, err := rec.UserStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "/b", stats.MostUsedEndpoint)

	// Tied counts break on ascending endpoint string.
	_, err = rec.Record(ctx, 1, "/a", "GET", 200, nil)
	require.NoError(t, err)
	stats, err = rec.UserStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "/a", stats.MostUsedEndpoint)
}

func TestMostUsedEndpointEmpty(t *testing.T) {
	rec := NewRecorder(NewMemoryStore(), nil)
	stats, err := rec.UserStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "N/A", stats.MostUsedEndpoint)
	assert.Zero(t, stats.TotalRequests)
}

func TestRequestsThisMonthBoundary(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	// One event late last month, two this month.
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	rec.SetClock(func() time.Time { return time.Date(2026, time.February, 27, 0, 0, 0, 0, time.UTC) })
	_, err := rec.Record(ctx, 1, "/a", "GET", 200, nil)
	require.NoError(t, err)

	rec.SetClock(func() time.Time { return now })
	_, err = rec.Record(ctx, 1, "/a", "GET", 200, nil)
	require.NoError(t, err)
	_, err = rec.Record(ctx, 1, "/a", "GET", 200, nil)
	require.NoError(t, err)

	stats, err := rec.UserStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.RequestsThisMonth)
}
