package main

import (
	"os"
	"os/signal"
	"syscall"

	"concert_manager/audit"
	"concert_manager/config"
	"concert_manager/database"
	"concert_manager/engine"
	"concert_manager/handler"
	"concert_manager/middleware"
	"concert_manager/payment"
	"concert_manager/qrtoken"
	"concert_manager/router"
	"concert_manager/scheduler"
	"concert_manager/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Environment == "development" {
		database.SeedData(db)
	}

	gateway := payment.NewPaystack(cfg.PaymentSecretKey, cfg.PaystackBaseURL, cfg.GatewayTimeout)
	codec := qrtoken.NewCodec(cfg.QRSecretKey)
	emitter := audit.NewEmitter(db)

	eng := engine.NewTransactionEngine(db, gateway, codec, emitter, engine.Options{
		OrganizerPercent: cfg.OrganizerPercent,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		RetryMaxDelay:    cfg.RetryMaxDelay,
		MaxRetries:       cfg.RetryMaxAttempts,
		GatewayTimeout:   cfg.GatewayTimeout,
	})
	gate := engine.NewGateValidator(db, codec, emitter)
	processor := webhook.NewProcessor(eng, gateway, emitter)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)

	retries, err := scheduler.NewRetryScheduler(eng, cfg.RetryScanEvery)
	if err != nil {
		log.Fatal(err)
	}
	if err := retries.Start(); err != nil {
		log.Fatal(err)
	}
	defer retries.Stop()

	sweeper := scheduler.NewSweeper(db, eng, cfg.StaleTxnAfter)
	if err := sweeper.Start(); err != nil {
		log.Fatal(err)
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName: "concert_manager",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:5173",
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Authorization, Accept, Idempotency-Key",
	}))

	h := handler.New(db, cfg, eng, gate, processor, gateway, emitter)
	router.SetupRoutes(app, h, limiter, cfg.JWTSecret)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		_ = app.Shutdown()
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
