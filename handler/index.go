package handler

import (
	"errors"

	"concert_manager/audit"
	"concert_manager/config"
	"concert_manager/engine"
	"concert_manager/model"
	"concert_manager/payment"
	"concert_manager/utils"
	"concert_manager/webhook"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Handler bundles the injected collaborators for every route. No global
// state: main wires one of these and hands it to the router.
type Handler struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Engine  *engine.TransactionEngine
	Gate    *engine.GateValidator
	Webhook *webhook.Processor
	Gateway payment.Gateway
	Audit   *audit.Emitter
}

func New(db *gorm.DB, cfg *config.Config, eng *engine.TransactionEngine, gate *engine.GateValidator, processor *webhook.Processor, gw payment.Gateway, emitter *audit.Emitter) *Handler {
	return &Handler{
		DB:      db,
		Cfg:     cfg,
		Engine:  eng,
		Gate:    gate,
		Webhook: processor,
		Gateway: gw,
		Audit:   emitter,
	}
}

// engineError maps engine sentinels onto HTTP statuses.
func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrTierNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not found", err)
	case errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrEventNotPurchasable),
		errors.Is(err, engine.ErrTierSoldOut),
		errors.Is(err, engine.ErrTierLimit),
		errors.Is(err, engine.ErrNotRefundable),
		errors.Is(err, engine.ErrRefundExceedsNet),
		errors.Is(err, engine.ErrNotRetryable),
		errors.Is(err, engine.ErrRetryExhausted),
		errors.Is(err, engine.ErrVerificationFailed),
		errors.Is(err, engine.ErrOversold):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, model.ErrInvalidTransition):
		return utils.ErrorResponse(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, engine.ErrGatewayInit),
		errors.Is(err, engine.ErrGatewayRefund),
		errors.Is(err, payment.ErrGateway):
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Payment gateway error", err)
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal error", err)
	}
}
