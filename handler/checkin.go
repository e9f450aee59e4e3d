package handler

import (
	"concert_manager/engine"
	"concert_manager/middleware"
	"concert_manager/model"
	"concert_manager/monitoring"
	"concert_manager/utils"

	"github.com/gofiber/fiber/v2"
)

// Scan validates a presented ticket token and records the single
// check-in. Status codes follow the outcome: 200 VALID, 404 NOT_FOUND,
// 403 NOT_ASSIGNED, 400 for everything else.
func (h *Handler) Scan(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
	}
	input := c.Locals("input").(model.ScanInput)

	result := h.Gate.Scan(c.Context(), input.QRCode, actor, input.EventID)
	monitoring.GateScans.WithLabelValues(result.Status).Inc()

	status := fiber.StatusBadRequest
	switch result.Status {
	case engine.ScanValid:
		status = fiber.StatusOK
	case engine.ScanNotFound:
		status = fiber.StatusNotFound
	case engine.ScanNotAssigned:
		status = fiber.StatusForbidden
	}
	return c.Status(status).JSON(result)
}
