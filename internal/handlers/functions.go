package handlers

import (
	"chargeback/internal/services/currency"
	"chargeback/internal/services/stripepull"
	"chargeback/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// FunctionsHandler serves the server-side helper endpoints under
// /api/functions.
type FunctionsHandler struct {
	converter currency.Converter
	puller    stripepull.Service
	log       *zap.Logger
}

func NewFunctionsHandler(converter currency.Converter, puller stripepull.Service, log *zap.Logger) *FunctionsHandler {
	return &FunctionsHandler{converter: converter, puller: puller, log: log}
}

func (h *FunctionsHandler) ConvertCurrency(c *fiber.Ctx) error {
	var input struct {
		Currency string   `json:"currency"`
		Amount   *float64 `json:"amount"`
		Date     string   `json:"date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if input.Currency == "" || input.Amount == nil {
		return response.BadRequest(c, "currency and amount are required")
	}

	result, err := h.converter.Convert(c.UserContext(), currency.Request{
		Currency: input.Currency,
		Amount:   *input.Amount,
		Date:     input.Date,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *FunctionsHandler) StripeVampPull(c *fiber.Ctx) error {
	var req stripepull.Request
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	result, err := h.puller.Pull(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}
