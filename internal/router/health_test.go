package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReadinessHandlerReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health/ready", readinessHandler(
		readinessCheck{Name: "database", Probe: func(context.Context) error { return nil }},
		readinessCheck{Name: "cache", Probe: func(context.Context) error { return errors.New("connection refused") }},
	))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("envelope responses always use http 200, got %d", w.Code)
	}
	var body struct {
		StatusCode int `json:"status_code"`
		Data       struct {
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != 500 {
		t.Fatalf("expected status_code 500, got %d", body.StatusCode)
	}
	if body.Data.Checks["database"] != "ok" || body.Data.Checks["cache"] != "connection refused" {
		t.Fatalf("unexpected checks: %+v", body.Data.Checks)
	}
}

func TestReadinessHandlerAllHealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health/ready", readinessHandler(
		readinessCheck{Name: "database", Probe: func(context.Context) error { return nil }},
	))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != 0 {
		t.Fatalf("expected status_code 0, got %d", body.StatusCode)
	}
}
