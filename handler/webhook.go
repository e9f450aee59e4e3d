package handler

import (
	"concert_manager/monitoring"

	"github.com/gofiber/fiber/v2"
)

// PaystackWebhook ingests gateway notifications. Always 200: the gateway
// treats any non-2xx as a delivery failure and retries, including for
// signature mismatches we will never accept.
func (h *Handler) PaystackWebhook(c *fiber.Ctx) error {
	signature := c.Get("x-paystack-signature")
	result := h.Webhook.Ingest(c.Context(), c.Body(), signature)

	disposition := "rejected"
	if result.Success && result.Handled {
		disposition = "handled"
	} else if result.Success {
		disposition = "ignored"
	}
	monitoring.WebhooksReceived.WithLabelValues("paystack", disposition).Inc()

	return c.Status(fiber.StatusOK).JSON(result)
}
