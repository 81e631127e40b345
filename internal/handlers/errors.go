package handlers

import (
	"errors"

	"chargeback/internal/services/auth"
	"chargeback/internal/services/currency"
	"chargeback/internal/services/customfield"
	"chargeback/internal/services/dispute"
	"chargeback/internal/services/project"
	"chargeback/internal/services/report"
	"chargeback/internal/services/stripepull"
	"chargeback/internal/services/vamp"
	"chargeback/internal/services/workflow"
	"chargeback/internal/utils/response"
	"chargeback/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// errorStatus maps service sentinels to HTTP status codes.
var errorStatus = []struct {
	err    error
	status int
}{
	{dispute.ErrDisputeNotFound, fiber.StatusNotFound},
	{workflow.ErrDisputeNotFound, fiber.StatusNotFound},
	{workflow.ErrTaskNotFound, fiber.StatusNotFound},
	{vamp.ErrRecordNotFound, fiber.StatusNotFound},
	{customfield.ErrFieldNotFound, fiber.StatusNotFound},
	{project.ErrProjectNotFound, fiber.StatusNotFound},
	{auth.ErrUserNotFound, fiber.StatusNotFound},

	{dispute.ErrDuplicateCase, fiber.StatusConflict},
	{vamp.ErrDuplicatePeriod, fiber.StatusConflict},
	{customfield.ErrDuplicateKey, fiber.StatusConflict},
	{auth.ErrEmailTaken, fiber.StatusConflict},

	{dispute.ErrInvalidStatus, fiber.StatusBadRequest},
	{dispute.ErrMissingColumns, fiber.StatusBadRequest},
	{dispute.ErrEmptyFile, fiber.StatusBadRequest},
	{workflow.ErrInvalidTaskStatus, fiber.StatusBadRequest},
	{report.ErrUnknownMetric, fiber.StatusBadRequest},
	{report.ErrUnknownGroupBy, fiber.StatusBadRequest},
	{currency.ErrInvalidCurrency, fiber.StatusBadRequest},
	{currency.ErrInvalidDate, fiber.StatusBadRequest},
	{stripepull.ErrInvalidPeriod, fiber.StatusBadRequest},
	{stripepull.ErrMissingKey, fiber.StatusBadRequest},
	{stripepull.ErrMissingProject, fiber.StatusBadRequest},
	{stripepull.ErrProjectNotFound, fiber.StatusBadRequest},

	{auth.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{auth.ErrInvalidToken, fiber.StatusUnauthorized},
	{auth.ErrSessionExpired, fiber.StatusUnauthorized},
	{auth.ErrUserInactive, fiber.StatusForbidden},

	{currency.ErrRateUnavailable, fiber.StatusUnprocessableEntity},
}

// respondError writes err as a JSON error. Unknown errors are logged and
// reported as 500 without their message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return response.ValidationError(c, verr.Error(), verr.Fields)
	}

	var upstream *stripepull.UpstreamError
	if errors.As(err, &upstream) {
		return response.Error(c, fiber.StatusUnprocessableEntity, upstream.Error())
	}

	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return response.Error(c, m.status, err.Error())
		}
	}

	log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return response.ServerError(c, "internal server error")
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
