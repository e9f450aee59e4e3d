package router

import (
	"concert_manager/handler"
	"concert_manager/middleware"
	"concert_manager/model"
	"concert_manager/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, h *handler.Handler, limiter *middleware.RateLimiter, jwtSecret string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// gateway-facing, stays outside the authenticated API group
	app.Post("/webhooks/paystack", h.PaystackWebhook)

	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1")
	protected := middleware.Protected(jwtSecret)

	tickets := v1.Group("/tickets")
	tickets.Post("/purchase", protected, limiter.Limit("purchase"), validate.Purchase(), h.Purchase)
	tickets.Post("/verify", protected, validate.Verify(), h.VerifyPayment)
	tickets.Get("/:ticketId/qr", protected, validate.IdParam("ticketId"), h.TicketQR)

	v1.Post("/validate/scan", protected,
		middleware.RequireRole(model.RoleValidator, model.RoleOrganizer),
		limiter.Limit("scan"), validate.Scan(), h.Scan)

	transactions := v1.Group("/transactions")
	transactions.Get("/", protected, h.ListTransactions)
	transactions.Post("/:transactionId/retry", protected, validate.IdParam("transactionId"), h.RetryTransaction)
	transactions.Post("/:transactionId/refund", protected,
		middleware.RequireRole(model.RoleOrganizer),
		validate.IdParam("transactionId"), validate.Refund(), h.RefundTransaction)

	organizers := v1.Group("/organizers")
	organizers.Post("/subaccount", protected,
		middleware.RequireRole(model.RoleOrganizer),
		validate.CreateSubaccount(), h.CreateSubaccount)
}
