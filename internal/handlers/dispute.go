package handlers

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"chargeback/internal/models"
	"chargeback/internal/services/dispute"
	"chargeback/internal/utils"
	"chargeback/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DisputeHandler struct {
	disputeService *dispute.Service
	log            *zap.Logger
}

func NewDisputeHandler(disputeService *dispute.Service, log *zap.Logger) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService, log: log}
}

// disputeFilter reads the list filters shared by dispute listings and reports.
func disputeFilter(c *fiber.Ctx) models.DisputeFilter {
	f := models.DisputeFilter{
		Status:      strings.ToLower(c.Query("status")),
		Processor:   c.Query("processor"),
		CardNetwork: c.Query("card_network"),
		MerchantID:  c.Query("merchant_id"),
		From:        c.Query("from"),
		To:          c.Query("to"),
	}
	if raw := c.Query("project_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			pid := uint(id)
			f.ProjectID = &pid
		}
	}
	return f
}

func (h *DisputeHandler) CreateDispute(c *fiber.Ctx) error {
	var input models.Dispute
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	input.ID = 0

	created, err := h.disputeService.Create(c.UserContext(), &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, created)
}

func (h *DisputeHandler) GetDisputes(c *fiber.Ctx) error {
	p := utils.GetPagination(c)
	filter := disputeFilter(c)
	filter.Limit = p.Limit
	filter.Offset = p.Offset

	disputes, total, err := h.disputeService.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	p.SetTotal(total)
	return c.JSON(utils.NewPaginatedResponse(disputes, p))
}

func (h *DisputeHandler) GetDispute(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid dispute id")
	}
	d, err := h.disputeService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(d)
}

func (h *DisputeHandler) UpdateDispute(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid dispute id")
	}
	var input models.Dispute
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	updated, err := h.disputeService.Update(c.UserContext(), id, &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(updated)
}

func (h *DisputeHandler) PatchStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid dispute id")
	}
	var patch dispute.StatusPatch
	if err := c.BodyParser(&patch); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	updated, err := h.disputeService.PatchStatus(c.UserContext(), id, patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(updated)
}

func (h *DisputeHandler) DeleteDispute(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid dispute id")
	}
	if err := h.disputeService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkStatus applies a CSV of status changes. The file is taken from the
// multipart "file" field, or from the raw request body otherwise.
func (h *DisputeHandler) BulkStatus(c *fiber.Ctx) error {
	var src io.Reader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return response.BadRequest(c, "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return response.BadRequest(c, "unable to read file")
		}
		defer f.Close()
		src = f
	} else {
		src = bytes.NewReader(c.Body())
	}

	result, err := h.disputeService.ImportStatuses(c.UserContext(), src)
	if err != nil && result != nil {
		h.log.Warn("status import interrupted", zap.Int("updated", result.Updated), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "import interrupted",
			"partial": result,
		})
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}
