package handlers

import (
	"chargeback/internal/services/report"
	"chargeback/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReportHandler struct {
	reportService report.Service
	log           *zap.Logger
}

func NewReportHandler(reportService report.Service, log *zap.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, log: log}
}

// Aggregate answers GET /api/reports/aggregate?metric=...&group_by=...
func (h *ReportHandler) Aggregate(c *fiber.Ctx) error {
	metric := c.Query("metric", report.MetricVolume)
	groupBy := c.Query("group_by", report.GroupMonth)
	if !report.ValidMetric(metric) {
		return response.BadRequest(c, report.ErrUnknownMetric.Error()+": "+metric)
	}
	if !report.ValidGroupBy(groupBy) {
		return response.BadRequest(c, report.ErrUnknownGroupBy.Error()+": "+groupBy)
	}

	rows, err := h.reportService.Aggregate(c.UserContext(), disputeFilter(c), metric, groupBy)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"metric":   metric,
		"group_by": groupBy,
		"rows":     rows,
	})
}

func (h *ReportHandler) Anomalies(c *fiber.Ctx) error {
	anomalies, err := h.reportService.Anomalies(c.UserContext(), disputeFilter(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"anomalies": anomalies})
}

func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	dashboard, err := h.reportService.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dashboard)
}

// RefreshDashboard recomputes the cached dashboard right away.
func (h *ReportHandler) RefreshDashboard(c *fiber.Ctx) error {
	dashboard, err := h.reportService.RefreshDashboard(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dashboard)
}
