package controllers

import (
	"errors"

	"smokestore-backend/database"
	"smokestore-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ListVerificationLogs returns recent verification runs, newest first, for
// the back-office diagnostics screen. Filterable by order_id and status.
func ListVerificationLogs(c *fiber.Ctx) error {
	limit := utils.ParseIntDefault(c.Query("limit"), 50)
	if limit > 200 {
		limit = 200
	}

	store := database.NewAuditLogs(database.DB)
	logs, err := store.List(c.UserContext(), c.Query("order_id"), c.Query("status"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "could not list verification logs",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"logs":    logs,
		"message": "success",
	})
}

// GetVerificationLog returns one verification run by id.
func GetVerificationLog(c *fiber.Ctx) error {
	store := database.NewAuditLogs(database.DB)
	lg, err := store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "verification log not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "could not load verification log",
			"error":   err.Error(),
		})
	}
	return c.JSON(lg)
}

// Health is a plain liveness probe.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
