package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	clock := newManualClock(utc(2024, 1, 1, 0, 0, 0))
	s := MustNew(WithLocation(time.UTC), WithClock(clock))

	_, err := s.Weekly(OnAt(Friday, Clock(4, 0, 0).UTC()), noop, WithName("report"), Distributed())
	require.NoError(t, err)
	_, err = s.Weekly(Monday, func(context.Context) error { return errors.New("disk full") }, WithName("cleanup"))
	require.NoError(t, err)

	_ = s.ExecJobs(context.Background())

	status := s.Status()
	require.Len(t, status, 2)

	assert.Equal(t, "report", status[0].Name)
	assert.Equal(t, "Friday 04:00:00Z", status[0].Timing)
	assert.Equal(t, []string{"Friday 04:00:00"}, status[0].Offsets)
	assert.True(t, status[0].Aware)
	assert.True(t, status[0].Distributed)
	assert.Zero(t, status[0].Attempts)
	assert.True(t, status[0].LastRunAt.IsZero())
	assert.Equal(t, utc(2024, 1, 5, 4, 0, 0), status[0].NextDue)

	assert.Equal(t, "cleanup", status[1].Name)
	assert.EqualValues(t, 1, status[1].Attempts)
	assert.EqualValues(t, 1, status[1].FailCount)
	assert.Equal(t, "disk full", status[1].LastError)
	assert.Equal(t, utc(2024, 1, 8, 0, 0, 0), status[1].NextDue)
}

func TestStatusHandler(t *testing.T) {
	s := MustNew(WithLocation(time.UTC), WithClock(newManualClock(utc(2024, 1, 1, 0, 0, 0))))
	_, err := s.Weekly(Timing{On(Wednesday), On(Sunday)}, noop, WithName("cleanup"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.StatusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "cleanup", body[0]["name"])
	assert.Equal(t, "2024-01-03T00:00:00Z", body[0]["next_due"])
	assert.NotContains(t, body[0], "last_run_at")
	assert.NotContains(t, body[0], "last_error")

	rec = httptest.NewRecorder()
	s.StatusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}
