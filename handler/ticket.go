package handler

import (
	"errors"

	"concert_manager/middleware"
	"concert_manager/model"
	"concert_manager/monitoring"
	"concert_manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Purchase opens a checkout session: Order + Transaction + gateway
// redirect URL. The Idempotency-Key header makes retried requests return
// the same pair without a second charge.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
	}
	input := c.Locals("input").(model.PurchaseInput)
	idempotencyKey := c.Get("Idempotency-Key")

	meta := model.ClientMeta{IP: c.IP(), UserAgent: c.Get("User-Agent")}
	result, err := h.Engine.Initiate(c.Context(), actor, input, idempotencyKey, meta)
	if err != nil {
		return engineError(c, err)
	}
	if !result.IsIdempotent {
		monitoring.PaymentsInitiated.Inc()
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"order":          result.Order,
		"transaction":    result.Transaction,
		"paymentUrl":     result.PaymentURL,
		"idempotencyKey": result.IdempotencyKey,
		"isIdempotent":   result.IsIdempotent,
	})
}

// VerifyPayment resolves a gateway reference after the buyer returns from
// checkout. Safe to race with the webhook: the later caller sees the
// completed order and gets the same tickets back.
func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	input := c.Locals("input").(model.VerifyInput)

	result, err := h.Engine.VerifyAndComplete(c.Context(), input.Reference)
	if err != nil {
		return engineError(c, err)
	}
	if !result.AlreadyCompleted {
		monitoring.PaymentsCompleted.Inc()
		monitoring.TicketsMinted.Add(float64(len(result.Tickets)))

		utils.SendTicketConfirmationEmail(h.Cfg, result.Transaction.MetaEmail, result.Order, result.Tickets)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"order": fiber.Map{
			"id":      result.Order.ID,
			"status":  result.Order.PaymentStatus,
			"tickets": result.Tickets,
		},
		"transaction": result.Transaction,
	})
}

// TicketQR renders the ticket's signed token as a PNG for wallet apps.
func (h *Handler) TicketQR(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
	}
	ticketID := c.Locals("inputId").(uint)

	var ticket model.Ticket
	if err := h.DB.First(&ticket, "id = ?", ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Ticket not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Lookup failed", err)
	}
	if ticket.UserID != actor.UserID && actor.Role != model.RoleAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not your ticket", nil)
	}

	png, err := utils.GenerateQRCode(ticket.QRCode, 400)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "QR render failed", err)
	}
	c.Set("Content-Type", "image/png")
	return c.Send(png)
}
