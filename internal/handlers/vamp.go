package handlers

import (
	"bytes"
	"strconv"
	"strings"

	"chargeback/internal/models"
	"chargeback/internal/services/vamp"
	"chargeback/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type VampHandler struct {
	vampService vamp.Service
	log         *zap.Logger
}

func NewVampHandler(vampService vamp.Service, log *zap.Logger) *VampHandler {
	return &VampHandler{vampService: vampService, log: log}
}

func vampFilter(c *fiber.Ctx) models.VampFilter {
	f := models.VampFilter{
		MerchantID:  c.Query("merchant_id"),
		CardNetwork: c.Query("card_network"),
		PeriodFrom:  c.Query("period_from"),
		PeriodTo:    c.Query("period_to"),
	}
	if raw := c.Query("project_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			pid := uint(id)
			f.ProjectID = &pid
		}
	}
	return f
}

func (h *VampHandler) CreateRecord(c *fiber.Ctx) error {
	var input models.VampRecord
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	input.ID = 0

	view, err := h.vampService.Create(c.UserContext(), &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, view)
}

func (h *VampHandler) GetRecords(c *fiber.Ctx) error {
	views, err := h.vampService.List(c.UserContext(), vampFilter(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"data": views})
}

func (h *VampHandler) GetRecord(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid record id")
	}
	view, err := h.vampService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}

func (h *VampHandler) UpdateRecord(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid record id")
	}
	var input models.VampRecord
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	view, err := h.vampService.Update(c.UserContext(), id, &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}

func (h *VampHandler) DeleteRecord(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid record id")
	}
	if err := h.vampService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *VampHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.vampService.Summary(c.UserContext(), vampFilter(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(summary)
}

func (h *VampHandler) GetThresholds(c *fiber.Ctx) error {
	return c.JSON(h.vampService.Thresholds())
}

// Export streams the filtered records as a CSV attachment.
func (h *VampHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.vampService.Export(c.UserContext(), &buf, vampFilter(c)); err != nil {
		return respondError(c, h.log, err)
	}

	name := "vamp-export.csv"
	if m := strings.TrimSpace(c.Query("merchant_id")); m != "" {
		name = "vamp-export-" + m + ".csv"
	}
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}
