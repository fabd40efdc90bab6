package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/edgetrack/internal/achievements"
	"github.com/2beens/edgetrack/internal/analytics"
	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/middleware"
	"github.com/2beens/edgetrack/internal/misc"
	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/internal/telemetry/metrics"
	"github.com/2beens/edgetrack/internal/timer"
)

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(_ context.Context, _ string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{Limit: limit, Allowed: 1}, nil
}

func newTestRouter(t *testing.T) (*mux.Router, *metrics.Manager) {
	t.Helper()
	metricsManager := metrics.NewTestManager()
	registry := timer.NewRegistry(timer.RegistryParams{Metrics: metricsManager})
	return newRouter(routerParams{
		miscHandler:         misc.NewHandler("v1.2.3", nil),
		timerHandler:        timer.NewHandler(registry),
		sessionsHandler:     sessions.NewHandler(nil, nil, 100),
		analyticsHandler:    analytics.NewHandler(nil),
		achievementsHandler: achievements.NewHandler(nil),
		checker:             auth.NewSecretChecker("edge-secret"),
		rateLimiter:         allowAllLimiter{},
		metricsManager:      metricsManager,
		allowedOrigins:      []string{"http://localhost:8080"},
		mutationsLimit:      10,
	}), metricsManager
}

func TestRouter_PublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/version", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "v1.2.3", rr.Body.String())
}

func TestRouter_Auth(t *testing.T) {
	r, metricsManager := newTestRouter(t)

	testCases := []struct {
		name           string
		token          string
		userID         string
		expectedStatus int
	}{
		{name: "NoToken", userID: "user-1", expectedStatus: http.StatusUnauthorized},
		{name: "WrongToken", token: "nope", userID: "user-1", expectedStatus: http.StatusUnauthorized},
		{name: "NoUser", token: "edge-secret", expectedStatus: http.StatusBadRequest},
		{name: "OK", token: "edge-secret", userID: "user-1", expectedStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/timer", nil)
			req.Header.Set("User-Agent", "EdgeTimer/1.0")
			if tc.token != "" {
				req.Header.Set(middleware.HeaderToken, tc.token)
			}
			if tc.userID != "" {
				req.Header.Set(middleware.HeaderUserID, tc.userID)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tc.expectedStatus, rr.Code)

			if tc.expectedStatus == http.StatusOK {
				var snapshot timer.Snapshot
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
				assert.Equal(t, timer.PhaseIdle, snapshot.Phase)
			}
		})
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("GET", "200")))
}

func TestRouter_InvalidTransitionIsConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest("POST", "/timer/edge/end", nil)
	req.Header.Set("User-Agent", "EdgeTimer/1.0")
	req.Header.Set(middleware.HeaderToken, "edge-secret")
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRouter_CorsRejectsForeignOrigin(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/analytics", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set(middleware.HeaderToken, "edge-secret")
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRouter_Unknown(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/whatever", nil)
	req.Header.Set("User-Agent", "EdgeTimer/1.0")
	req.Header.Set(middleware.HeaderToken, "edge-secret")
	req.Header.Set(middleware.HeaderUserID, "user-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
