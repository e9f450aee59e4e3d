package handler

import (
	"errors"

	"concert_manager/middleware"
	"concert_manager/model"
	"concert_manager/payment"
	"concert_manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CreateSubaccount onboards the calling organizer at the gateway so their
// revenue share settles directly. Stores the returned subaccount code.
func (h *Handler) CreateSubaccount(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
	}
	input := c.Locals("input").(model.CreateSubaccountInput)

	var organizer model.Organizer
	if err := h.DB.First(&organizer, "user_id = ?", actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Organizer profile not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Lookup failed", err)
	}
	if organizer.SubaccountCode != "" {
		return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
			"subaccountCode": organizer.SubaccountCode,
			"existing":       true,
		})
	}

	result, err := h.Gateway.CreateSubaccount(c.Context(), payment.CreateSubaccountRequest{
		BusinessName:     input.BusinessName,
		BankCode:         input.BankCode,
		AccountNumber:    input.AccountNumber,
		PercentageCharge: organizer.PlatformFeePercent,
	})
	if err != nil || !result.OK {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Subaccount creation failed", err)
	}

	updates := map[string]any{
		"business_name":   input.BusinessName,
		"bank_code":       input.BankCode,
		"account_number":  input.AccountNumber,
		"subaccount_code": result.SubaccountCode,
	}
	if err := h.DB.Model(&organizer).UpdateColumns(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Could not store subaccount", err)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"subaccountCode": result.SubaccountCode,
	})
}
