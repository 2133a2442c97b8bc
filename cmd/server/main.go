package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"facewatch/internal/config"
	"facewatch/internal/database"
	"facewatch/internal/handlers"
	"facewatch/internal/jobs"
	"facewatch/internal/logging"
	"facewatch/internal/middleware"
	"facewatch/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting facewatch telemetry server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DataFile: %s)", cfg.Port, cfg.DataFile)

	// Select the storage backend once. A bad or missing MongoDB credential
	// is never fatal: the local file store carries development mode.
	store := database.Open(cfg.MongoURI, cfg.DataFile)
	defer store.Close(context.Background())

	metrics := services.InitMetrics()
	statsService := services.NewStatsService(store)

	// Background store health checks
	healthChecker, err := jobs.NewStoreHealthChecker(store, metrics, cfg.StoreHealthInterval)
	if err != nil {
		log.Printf("⚠️  Failed to create store health checker: %v", err)
	} else {
		healthChecker.Start()
	}

	app := fiber.New(fiber.Config{
		AppName:      "facewatch v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // descriptors are ~128 floats; 1MB is generous
		UnescapePath: true,            // student emails arrive URL-encoded in the path
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("facewatch")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		// The dashboard dev server and the producer both run locally
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Ingest=%d/min, Read=%d/min, Admin=%d/min",
		rateLimitConfig.IngestMax, rateLimitConfig.ReadMax, rateLimitConfig.AdminMax)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(store)
	faceHandler := handlers.NewFaceHandler(store)
	eventHandler := handlers.NewEventHandler(store)
	sessionHandler := handlers.NewSessionHandler(store)
	studentHandler := handlers.NewStudentHandler(store)
	statsHandler := handlers.NewStatsHandler(statsService)
	adminHandler := handlers.NewAdminHandler(store, statsService)

	// Routes
	app.Get("/health", healthHandler.Handle)

	readLimiter := middleware.ReadRateLimiter(rateLimitConfig)
	ingestLimiter := middleware.IngestRateLimiter(rateLimitConfig)

	app.Get("/faces", readLimiter, faceHandler.List)
	app.Post("/faces", ingestLimiter, faceHandler.Enroll)
	app.Get("/events", readLimiter, eventHandler.List)
	app.Post("/events", ingestLimiter, eventHandler.Ingest)
	app.Get("/sessions", readLimiter, sessionHandler.List)
	app.Post("/sessions", ingestLimiter, sessionHandler.Create)
	app.Get("/students/:email/history", readLimiter, studentHandler.Get)
	app.Post("/students/:email/history", ingestLimiter, studentHandler.Set)
	app.Get("/stats", readLimiter, statsHandler.Summary)

	// Dev-only, unauthenticated; not production-safe
	app.Post("/_admin/clear", middleware.AdminRateLimiter(rateLimitConfig), adminHandler.Clear)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if healthChecker != nil {
			healthChecker.Stop()
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
