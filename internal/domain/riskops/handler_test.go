package riskops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/strokewatch/strokewatch/internal/risk"
)

func newTestHandler(repo *mockPatientRepo, stats StatsRepository) (*Handler, *echo.Echo) {
	sweeper := risk.NewSweeper(NewRecordStore(repo), risk.SweepThresholds, risk.DefaultBatchSize, zerolog.Nop())
	h := NewHandler(NewService(sweeper, stats, nil))
	e := echo.New()
	return h, e
}

func TestHandler_RecomputeAll(t *testing.T) {
	repo := newMockPatientRepo()
	repo.add(registryPatient("A", 72, 250, 31))
	repo.add(registryPatient("B", 40, 90, 22))
	incomplete := registryPatient("C", 50, 100, 0)
	incomplete.BMI = nil
	repo.add(incomplete)

	h, e := newTestHandler(repo, &mockStatsRepo{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/recompute", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.RecomputeAll(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var out risk.Outcome
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.TotalPatients != 3 {
		t.Errorf("total_patients = %d, want 3", out.TotalPatients)
	}
	if out.UpdatedCount != 2 || out.SkippedCount != 1 {
		t.Errorf("outcome = %+v, want 2 updated, 1 skipped", out)
	}
	if out.SuccessRate != 66.67 {
		t.Errorf("success_rate = %v, want 66.67", out.SuccessRate)
	}
}

func TestHandler_RecomputeOne(t *testing.T) {
	repo := newMockPatientRepo()
	repo.add(registryPatient("Target", 72, 250, 31))

	h, e := newTestHandler(repo, &mockStatsRepo{})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("PT00001")

	if err := h.RecomputeOne(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		PatientID string `json:"patient_id"`
		RiskScore int    `json:"risk_score"`
		RiskLevel string `json:"risk_level"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.PatientID != "PT00001" {
		t.Errorf("patient_id = %q, want PT00001", resp.PatientID)
	}
	if resp.RiskScore != 65 || resp.RiskLevel != "High" {
		t.Errorf("score/level = %d/%s, want 65/High", resp.RiskScore, resp.RiskLevel)
	}
}

func TestHandler_RecomputeOne_NotFound(t *testing.T) {
	h, e := newTestHandler(newMockPatientRepo(), &mockStatsRepo{})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("PT09999")

	err := h.RecomputeOne(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("error = %v, want 404", err)
	}
}

func TestHandler_RecomputeOne_MissingFields(t *testing.T) {
	repo := newMockPatientRepo()
	p := registryPatient("No BMI", 50, 100, 0)
	p.BMI = nil
	repo.add(p)

	h, e := newTestHandler(repo, &mockStatsRepo{})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("PT00001")

	err := h.RecomputeOne(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("error = %v, want 422", err)
	}
	msg, _ := he.Message.(string)
	if msg != "missing required fields: bmi" {
		t.Errorf("message = %q, want missing required fields: bmi", msg)
	}
}

func TestHandler_Statistics(t *testing.T) {
	stats := &mockStatsRepo{stats: &RiskStatistics{
		TotalPatients:   5,
		AvgRiskScore:    38.4,
		MaxRiskScore:    82,
		MinRiskScore:    10,
		HighRiskCount:   1,
		MediumRiskCount: 2,
		LowRiskCount:    2,
	}}
	h, e := newTestHandler(newMockPatientRepo(), stats)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/statistics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Statistics(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var got RiskStatistics
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.TotalPatients != 5 || got.HighRiskCount != 1 {
		t.Errorf("stats = %+v, want 5 total, 1 high", got)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler(newMockPatientRepo(), &mockStatsRepo{})
	api := e.Group("/api/v1")

	h.RegisterRoutes(api)

	routePaths := make(map[string]bool)
	for _, r := range e.Routes() {
		routePaths[r.Method+":"+r.Path] = true
	}

	expected := []string{
		"POST:/api/v1/risk/recompute",
		"POST:/api/v1/risk/recompute/:id",
		"GET:/api/v1/risk/statistics",
	}
	for _, path := range expected {
		if !routePaths[path] {
			t.Errorf("missing expected route: %s", path)
		}
	}
}
