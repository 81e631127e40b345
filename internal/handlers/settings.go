package handlers

import (
	"strconv"

	"chargeback/internal/models"
	"chargeback/internal/services/audit"
	"chargeback/internal/services/customfield"
	"chargeback/internal/services/project"
	"chargeback/internal/utils"
	"chargeback/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SettingsHandler manages projects, custom field definitions and the audit
// trail.
type SettingsHandler struct {
	projects project.Service
	fields   customfield.Service
	audit    audit.Service
	log      *zap.Logger
}

func NewSettingsHandler(projects project.Service, fields customfield.Service, auditService audit.Service, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{projects: projects, fields: fields, audit: auditService, log: log}
}

func (h *SettingsHandler) GetProjects(c *fiber.Ctx) error {
	projects, err := h.projects.List(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"data": projects})
}

func (h *SettingsHandler) GetProject(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid project id")
	}
	p, err := h.projects.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(p)
}

func (h *SettingsHandler) CreateProject(c *fiber.Ctx) error {
	var input models.Project
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	input.ID = 0
	p, err := h.projects.Create(c.UserContext(), &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, p)
}

func (h *SettingsHandler) UpdateProject(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid project id")
	}
	var input models.Project
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	p, err := h.projects.Update(c.UserContext(), id, &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(p)
}

func (h *SettingsHandler) DeleteProject(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid project id")
	}
	if err := h.projects.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SettingsHandler) GetCustomFields(c *fiber.Ctx) error {
	fields, err := h.fields.List(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"data": fields})
}

func (h *SettingsHandler) CreateCustomField(c *fiber.Ctx) error {
	var input models.CustomField
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	input.ID = 0
	f, err := h.fields.Create(c.UserContext(), &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, f)
}

func (h *SettingsHandler) UpdateCustomField(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid field id")
	}
	var input models.CustomField
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	f, err := h.fields.Update(c.UserContext(), id, &input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(f)
}

func (h *SettingsHandler) DeleteCustomField(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid field id")
	}
	if err := h.fields.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAuditLog lists audit entries, optionally for one entity.
func (h *SettingsHandler) GetAuditLog(c *fiber.Ctx) error {
	p := utils.GetPagination(c)
	var entityID uint
	if raw := c.Query("entity_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return response.BadRequest(c, "invalid entity_id")
		}
		entityID = uint(id)
	}

	entries, total, err := h.audit.List(c.UserContext(), c.Query("entity_type"), entityID, p.Limit, p.Offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	p.SetTotal(total)
	return c.JSON(utils.NewPaginatedResponse(entries, p))
}
