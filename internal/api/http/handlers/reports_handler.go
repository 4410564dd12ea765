package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-insight/internal/api/dto"
	"github.com/spec-kit/incident-insight/internal/auth"
	"github.com/spec-kit/incident-insight/internal/service"
	"github.com/spec-kit/incident-insight/pkg/util"
)

// ReportsHandler serves fleet metrics for the dashboard.
type ReportsHandler struct {
	reporting *service.ReportingService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reporting *service.ReportingService) *ReportsHandler {
	return &ReportsHandler{reporting: reporting}
}

// FleetMetrics GET /reports/metrics.
func (h *ReportsHandler) FleetMetrics(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return util.NewUnauthorized("authentication required")
	}
	query, err := parseReportQuery(c)
	if err != nil {
		return err
	}
	query.Caller = user
	metrics, err := h.reporting.FleetMetrics(c.Context(), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFleetMetricsResponse(metrics)})
}
