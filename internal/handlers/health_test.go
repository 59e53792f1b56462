package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func getHealth(t *testing.T, handler *HealthHandler) healthResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	return resp
}

func TestHealthNoDependencies(t *testing.T) {
	resp := getHealth(t, NewHealthHandler(nil))
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Dependencies != nil {
		t.Errorf("dependencies = %v, want omitted", resp.Dependencies)
	}
}

func TestHealthAllDependenciesUp(t *testing.T) {
	resp := getHealth(t, NewHealthHandler(map[string]Pinger{
		"database": fakePinger{},
		"vectors":  fakePinger{},
	}))
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Dependencies["database"] != "ok" || resp.Dependencies["vectors"] != "ok" {
		t.Errorf("dependencies = %v, want all ok", resp.Dependencies)
	}
}

func TestHealthDegradedDependency(t *testing.T) {
	resp := getHealth(t, NewHealthHandler(map[string]Pinger{
		"database": fakePinger{},
		"vectors":  fakePinger{err: fmt.Errorf("connection refused")},
	}))
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Dependencies["vectors"] != "unavailable" {
		t.Errorf("vectors = %q, want unavailable", resp.Dependencies["vectors"])
	}
}
