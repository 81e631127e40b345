package handlers

import (
	"chargeback/internal/services/workflow"
	"chargeback/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WorkflowHandler struct {
	workflowService workflow.Service
	log             *zap.Logger
}

func NewWorkflowHandler(workflowService workflow.Service, log *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService, log: log}
}

func (h *WorkflowHandler) GenerateTasks(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid dispute id")
	}
	generated, err := h.workflowService.Generate(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	checklist, err := h.workflowService.Checklist(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	status := fiber.StatusOK
	if generated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"generated": generated,
		"checklist": checklist,
	})
}

func (h *WorkflowHandler) GetChecklist(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid dispute id")
	}
	checklist, err := h.workflowService.Checklist(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(checklist)
}

func (h *WorkflowHandler) UpdateTask(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid task id")
	}
	var update workflow.TaskUpdate
	if err := c.BodyParser(&update); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	task, err := h.workflowService.UpdateTask(c.UserContext(), id, update)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(task)
}

// ReconcileOverdue sweeps overdue tasks across every dispute.
func (h *WorkflowHandler) ReconcileOverdue(c *fiber.Ctx) error {
	n, err := h.workflowService.ReconcileOverdue(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"marked_overdue": n})
}
