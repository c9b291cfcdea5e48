package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/shutterworks/api/internal/domain"
	"github.com/shutterworks/api/internal/services"
)

func TestHealthz(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-90 * time.Second)

	handlers := NewHealthHandlers(
		WithHealthBuildInfo(services.BuildInfo{
			Version:     "1.4.0",
			CommitSHA:   "abc1234",
			Environment: "production",
			StartedAt:   started,
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	handlers.Healthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["status"] != domain.HealthStatusOK {
		t.Fatalf("expected ok status, got %v", body["status"])
	}
	if body["version"] != "1.4.0" {
		t.Fatalf("expected version 1.4.0, got %v", body["version"])
	}
	if body["commitSha"] != "abc1234" {
		t.Fatalf("expected commitSha abc1234, got %v", body["commitSha"])
	}
	if body["uptime"] != "1m30s" {
		t.Fatalf("expected uptime 1m30s, got %v", body["uptime"])
	}
}

func TestReadyz(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("healthy report", func(t *testing.T) {
		system := &stubSystemService{report: domain.SystemHealthReport{
			Status: domain.HealthStatusOK,
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond},
			},
			Version:     "1.4.0",
			Environment: "production",
			Uptime:      5 * time.Minute,
			GeneratedAt: now,
		}}
		handlers := NewHealthHandlers(
			WithHealthSystemService(system),
			WithHealthClock(func() time.Time { return now }),
		)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()

		handlers.Readyz(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		if body["status"] != domain.HealthStatusOK {
			t.Fatalf("expected ok status, got %v", body["status"])
		}
		checks, ok := body["checks"].(map[string]any)
		if !ok {
			t.Fatalf("expected checks object, got %T", body["checks"])
		}
		firestore, ok := checks["firestore"].(map[string]any)
		if !ok {
			t.Fatalf("expected firestore check, got %v", checks)
		}
		if firestore["status"] != domain.HealthStatusOK {
			t.Fatalf("expected firestore ok, got %v", firestore["status"])
		}
		if firestore["latencyMs"] != float64(12) {
			t.Fatalf("expected latencyMs 12, got %v", firestore["latencyMs"])
		}
	})

	t.Run("degraded report yields 503", func(t *testing.T) {
		system := &stubSystemService{report: domain.SystemHealthReport{
			Status: domain.HealthStatusDegraded,
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusError, Error: "deadline exceeded"},
				"pubsub":    {Status: domain.HealthStatusOK},
			},
			GeneratedAt: now,
		}}
		handlers := NewHealthHandlers(
			WithHealthSystemService(system),
			WithHealthClock(func() time.Time { return now }),
		)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()

		handlers.Readyz(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", rr.Code)
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		details, ok := body["details"].([]any)
		if !ok || len(details) != 1 {
			t.Fatalf("expected single detail, got %v", body["details"])
		}
		if details[0] != "firestore: deadline exceeded" {
			t.Fatalf("unexpected detail: %v", details[0])
		}
	})

	t.Run("report error yields 503", func(t *testing.T) {
		system := &stubSystemService{err: errors.New("collect failed")}
		handlers := NewHealthHandlers(
			WithHealthSystemService(system),
			WithHealthClock(func() time.Time { return now }),
		)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()

		handlers.Readyz(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", rr.Code)
		}
	})

	t.Run("missing system service yields 503", func(t *testing.T) {
		handlers := NewHealthHandlers(WithHealthClock(func() time.Time { return now }))

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()

		handlers.Readyz(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", rr.Code)
		}
	})
}
