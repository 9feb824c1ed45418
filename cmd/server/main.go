package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/tenderwatch/tenderwatch/internal/config"
	"github.com/tenderwatch/tenderwatch/internal/database"
	"github.com/tenderwatch/tenderwatch/internal/handlers"
	"github.com/tenderwatch/tenderwatch/internal/middleware"
	"github.com/tenderwatch/tenderwatch/internal/services"
	"github.com/tenderwatch/tenderwatch/internal/types"
	"github.com/tenderwatch/tenderwatch/internal/upstream"

	_ "github.com/tenderwatch/tenderwatch/docs/api" // Swagger docs
)

// @title TenderWatch API
// @version 1.0.0
// @description Tender monitoring service: keyword subscriptions over a third-party tender API with dedup, versioning, and per-user view state
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/tenderwatch/tenderwatch

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Upstream tender API client
	client := upstream.New(cfg)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("tenderwatch")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Lazy authorizer initialization, keyed off the first inbound request
	app.Use(func(c *fiber.Ctx) error {
		if !services.IsAuthorizerInitialized() {
			if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
				log.Printf("Authorizer initialization failed: %v", err)
			}
		}
		return c.Next()
	})

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	tenderHandler := &handlers.TenderHandler{DB: db, Upstream: client}
	keywordHandler := &handlers.KeywordHandler{DB: db, Cfg: cfg}
	billingHandler := &handlers.BillingHandler{DB: db, Cfg: cfg}
	healthHandler := &handlers.HealthHandler{DB: db, Cfg: cfg}

	// Health (unauthenticated, used by container healthchecks)
	api.Get("/health", healthHandler.GetHealth)

	// Tender routes (all require user authentication)
	api.Get("/tenders", middleware.AuthUser(), tenderHandler.GetTenders)
	api.Post("/tenders/:tenderId/archive", middleware.AuthUser(), tenderHandler.ArchiveTender)
	api.Post("/tenders/:tenderId/highlight", middleware.AuthUser(), tenderHandler.HighlightTender)

	// Keyword subscription routes
	api.Get("/keywords", middleware.AuthUser(), keywordHandler.ListKeywords)
	api.Post("/keywords", middleware.AuthUser(), keywordHandler.AddKeyword)
	api.Delete("/keywords/:keywordId", middleware.AuthUser(), keywordHandler.DeleteKeyword)

	// Billing routes; the webhook authenticates via body signature, not session
	api.Get("/subscription", middleware.AuthUser(), billingHandler.GetSubscription)
	api.Post("/billing/webhook", billingHandler.Webhook)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Errors raised by the auth middleware carry their own code and type
	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	// Check for version conflict errors
	versionError := false
	if code == fiber.StatusConflict || (len(message) >= 9 && message[:9] == "E_VERSION") {
		versionError = true
		errorType = "version"
		code = fiber.StatusConflict
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       code,
		"message":      message,
		"ok":           false,
		"versionError": versionError,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         errorType,
	})
}
