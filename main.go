package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"smokestore-backend/controllers"
	"smokestore-backend/database"
	"smokestore-backend/mailbox"
	"smokestore-backend/metrics"
	"smokestore-backend/middlewares"
	"smokestore-backend/orders"
	"smokestore-backend/routes"
	"smokestore-backend/verifier"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// ---- Database (audit log + idempotency keys)
	database.Connect()
	database.AutoMigrate()
	if err := database.EnsureSchema(); err != nil {
		log.Fatalf("schema migration failed: %v", err)
	}

	// ---- Verification engine wiring
	tokens := mailbox.NewTokenSource(
		os.Getenv("GMAIL_CLIENT_ID"),
		os.Getenv("GMAIL_CLIENT_SECRET"),
		os.Getenv("GMAIL_REFRESH_TOKEN"),
	)
	mail := mailbox.NewClient(tokens)
	orderSvc := orders.NewClient(os.Getenv("ORDER_SERVICE_URL"), os.Getenv("ORDER_SERVICE_SECRET"))

	deadline := time.Duration(envInt("VERIFY_DEADLINE_SECONDS", 300)) * time.Second
	svc := verifier.New(mail, orderSvc, database.NewAuditLogs(database.DB), verifier.Config{
		Deadline:     deadline,
		PollInterval: time.Duration(envInt("VERIFY_POLL_SECONDS", 5)) * time.Second,
		MaxResults:   envInt("VERIFY_MAX_RESULTS", 20),
	})
	controllers.Setup(svc)
	metrics.Register()

	// ---- Limits (configurable via env)
	bodyLimitBytes := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimitBytes <= 0 {
		bodyLimitBytes = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	// ---- Fiber app with global error handler + body limit.
	// A verification request is held open for the whole poll loop, so the
	// write timeout must outlast the deadline.
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    bodyLimitBytes,
		WriteTimeout: deadline + 30*time.Second,
	})

	// ---- CORS
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter (applies to all routes; tune via env)
	rlMax := envInt("RATE_LIMIT_MAX", 60)
	rlWindow := time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	app.Use(limiter.New(limiter.Config{
		Max:        rlMax,
		Expiration: rlWindow,
	}))

	// ---- Routes
	routes.Register(app)

	// ---- Start
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
