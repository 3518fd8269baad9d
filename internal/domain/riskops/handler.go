package riskops

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/strokewatch/strokewatch/internal/risk"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/risk/recompute", h.RecomputeAll)
	api.POST("/risk/recompute/:id", h.RecomputeOne)
	api.GET("/risk/statistics", h.Statistics)
}

// recomputeResponse is the single-patient rescore result.
type recomputeResponse struct {
	PatientID     string     `json:"patient_id"`
	RiskScore     int        `json:"risk_score"`
	RiskLevel     string     `json:"risk_level"`
	RiskUpdatedAt *time.Time `json:"risk_updated_at"`
}

func (h *Handler) RecomputeAll(c echo.Context) error {
	out, err := h.svc.RunSweep(c.Request().Context())
	if errors.Is(err, ErrSweepInProgress) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) RecomputeOne(c echo.Context) error {
	rec, err := h.svc.RecomputePatient(c.Request().Context(), c.Param("id"))
	if errors.Is(err, risk.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	var missing *risk.MissingFieldsError
	if errors.As(err, &missing) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, missing.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := recomputeResponse{
		PatientID:     rec.Key,
		RiskLevel:     rec.RiskLevel,
		RiskUpdatedAt: rec.RiskUpdatedAt,
	}
	if rec.RiskScore != nil {
		resp.RiskScore = *rec.RiskScore
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Statistics(c echo.Context) error {
	stats, err := h.svc.Statistics(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
