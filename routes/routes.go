package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smokestore-backend/controllers"
	"smokestore-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/health", controllers.Health)

	// Payment verification: shared-secret auth, optional idempotent replay
	verify := api.Group("", middlewares.RequireVerifySecret(), middlewares.Idempotency())
	verify.Post("/verify-payment", controllers.VerifyPayment)

	// Back-office diagnostics (JWT auth, tokens issued by the admin backend)
	admin := api.Group("", middlewares.IsAuthenticatedHeader())
	admin.Get("/verification-logs", controllers.ListVerificationLogs)
	admin.Get("/verification-logs/:id", controllers.GetVerificationLog)
}
