package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/skillhat/configs"
	"github.com/anjiri1684/skillhat/database"
	"github.com/anjiri1684/skillhat/handlers"
	"github.com/anjiri1684/skillhat/jobs"
	"github.com/anjiri1684/skillhat/middleware"
	"github.com/anjiri1684/skillhat/mq"
	"github.com/anjiri1684/skillhat/notifications"
	"github.com/anjiri1684/skillhat/obs"
	"github.com/anjiri1684/skillhat/payments"
	"github.com/anjiri1684/skillhat/routes"
	"github.com/anjiri1684/skillhat/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := obs.NewLogger(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracer, err := obs.InitTracer(context.Background(), "skillhat-api", cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		logger.Fatal("Failed to initialise tracing", zap.Error(err))
	}

	db, err := database.ConnectDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	var events notifications.EventPublisher
	if cfg.RabbitURL != "" {
		publisher, err := mq.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()
		events = publisher
		logger.Info("Publishing domain events", zap.String("exchange", cfg.EventsExchange))
	}

	notifier := notifications.NewNotifier(db, events, logger)
	gateway := payments.NewSSLCommerz(cfg.StoreID, cfg.StorePassword, cfg.GatewayBaseURL(), cfg.GatewayTimeout)

	h := &handlers.Handler{
		Accounts: services.NewAccountService(db, cfg.JWTSecret, time.Duration(cfg.JWTExpireHours)*time.Hour, logger),
		Bookings: services.NewBookingService(db, notifier, logger, cfg.BookingDefaultHours),
		Payments: services.NewPaymentService(db, gateway, notifier, logger),
		Reviews:  services.NewReviewService(db, notifier, logger),
		Messages: services.NewMessagingService(db, notifier, logger),
		Notifier: notifier,
		Log:      logger,
		BaseURL:  cfg.AppBaseURL,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReminderCron, jobs.NewReminderJob(db, notifier, logger).Run); err != nil {
		logger.Fatal("Failed to schedule reminder job", zap.Error(err))
	}
	scheduler.Start()
	logger.Info("Cron job for booking reminders scheduled", zap.String("schedule", cfg.ReminderCron))

	app := fiber.New(fiber.Config{
		AppName:       "SkillHat",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  45 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Error("unhandled error",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()))
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		MaxAge:       86400,
	}))
	app.Use(recover.New())
	app.Use(middleware.Tracing())
	app.Use(middleware.RequestLogger(logger))
	app.Use(middleware.Metrics())

	routes.Register(app, h, middleware.Protected(cfg.JWTSecret))

	go func() {
		logger.Info("Server is running", zap.String("addr", cfg.HTTPAddr))
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	<-scheduler.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(ctx); err != nil {
		logger.Error("Tracer shutdown failed", zap.Error(err))
	}
}
