package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func newPingableDB(t *testing.T) (*HealthChecker, sqlmock.Sqlmock, func(cache Pinger) *HealthChecker) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	build := func(cache Pinger) *HealthChecker {
		return NewHealthChecker(db, cache)
	}
	return build(nil), mock, build
}

func TestHealthCheckerCheck(t *testing.T) {
	t.Run("healthy without a cache", func(t *testing.T) {
		checker, mock, _ := newPingableDB(t)
		mock.ExpectPing()

		status := checker.Check(context.Background())

		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["postgres"].Status)
		_, probed := status.Dependencies["redis"]
		assert.False(t, probed)
	})

	t.Run("database failure is unhealthy", func(t *testing.T) {
		checker, mock, _ := newPingableDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		status := checker.Check(context.Background())

		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, "connection refused", status.Dependencies["postgres"].Error)
	})

	t.Run("cache failure only degrades", func(t *testing.T) {
		_, mock, build := newPingableDB(t)
		mock.ExpectPing()
		checker := build(&stubPinger{err: errors.New("redis down")})

		status := checker.Check(context.Background())

		assert.Equal(t, StatusDegraded, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["postgres"].Status)
		assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
	})

	t.Run("cache failure does not mask an unhealthy database", func(t *testing.T) {
		_, mock, build := newPingableDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		checker := build(&stubPinger{err: errors.New("redis down")})

		status := checker.Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
	})
}

func TestReadinessHandler(t *testing.T) {
	t.Run("degraded still serves 200", func(t *testing.T) {
		_, mock, build := newPingableDB(t)
		mock.ExpectPing()
		checker := build(&stubPinger{err: errors.New("redis down")})

		w := httptest.NewRecorder()
		checker.ReadinessHandler()(w, httptest.NewRequest("GET", "/readyz", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var status HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, StatusDegraded, status.Status)
	})

	t.Run("unreachable database serves 503", func(t *testing.T) {
		checker, mock, _ := newPingableDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		w := httptest.NewRecorder()
		checker.ReadinessHandler()(w, httptest.NewRequest("GET", "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestLivenessHandler(t *testing.T) {
	checker, _, _ := newPingableDB(t)

	w := httptest.NewRecorder()
	checker.LivenessHandler()(w, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), StatusHealthy)
}
