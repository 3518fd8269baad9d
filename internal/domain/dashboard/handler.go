package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the dashboard endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers dashboard routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/stats", h.Stats)
	api.GET("/dashboard/analytics", h.Analytics)
}

// Stats handles GET /dashboard/stats
func (h *Handler) Stats(c echo.Context) error {
	resp, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// Analytics handles GET /dashboard/analytics
func (h *Handler) Analytics(c echo.Context) error {
	resp, err := h.svc.Analytics(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
