package handler

import (
	"concert_manager/middleware"
	"concert_manager/model"
	"concert_manager/monitoring"
	"concert_manager/utils"

	"github.com/gofiber/fiber/v2"
)

// RetryTransaction reopens a failed payment with a fresh checkout session.
func (h *Handler) RetryTransaction(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
	}
	transactionID := c.Locals("inputId").(uint)

	var txn model.Transaction
	if err := h.DB.First(&txn, "id = ?", transactionID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Transaction not found", nil)
	}
	if txn.UserID != actor.UserID && actor.Role != model.RoleAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not your transaction", nil)
	}

	result, err := h.Engine.Retry(c.Context(), transactionID)
	if err != nil {
		return engineError(c, err)
	}
	monitoring.RetriesAttempted.Inc()

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"transaction": result.Transaction,
		"paymentUrl":  result.PaymentURL,
	})
}

// RefundTransaction refunds part or all of a completed payment. Organizer
// and admin only.
func (h *Handler) RefundTransaction(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
	}
	transactionID := c.Locals("inputId").(uint)
	input := c.Locals("input").(model.RefundInput)

	txn, err := h.Engine.Refund(c.Context(), transactionID, input.Amount, input.Reason, actor)
	if err != nil {
		return engineError(c, err)
	}
	monitoring.RefundsProcessed.Inc()

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"transaction": txn})
}

// ListTransactions returns the actor's ledger, newest first.
func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
	}

	var pagination model.Pagination
	if err := c.QueryParser(&pagination); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", err)
	}

	var transactions []model.Transaction
	query := h.DB.Preload("Refunds").
		Where("user_id = ?", actor.UserID).
		Order("created_at desc")
	if err := utils.ApplyPagination(query, pagination.Limit, pagination.Page).
		Find(&transactions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Query failed", err)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, transactions)
}
