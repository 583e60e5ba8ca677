package controllers

import (
	"context"
	"errors"
	"time"

	"smokestore-backend/middlewares"
	"smokestore-backend/verifier"

	"github.com/gofiber/fiber/v2"
)

var verify *verifier.Service

// Setup injects the verification service. Called once from main.
func Setup(svc *verifier.Service) {
	verify = svc
}

// VerifyPaymentDTO is the inbound request body.
type VerifyPaymentDTO struct {
	OrderID        string     `json:"order_id" validate:"required"`
	TransactionID  string     `json:"transaction_id" validate:"required"`
	Amount         float64    `json:"amount" validate:"required,gt=0"`
	OrderCreatedAt *time.Time `json:"order_created_at"`
}

// VerifyPayment runs one verification attempt. The request is held open for
// the whole poll loop; every reachable business outcome (not found yet,
// mismatch, order-update failure) comes back as 200 with verified=false so
// the storefront can tell "try again later" from "something is broken".
func VerifyPayment(c *fiber.Ctx) error {
	var dto VerifyPaymentDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}

	req := verifier.Request{
		OrderID:       dto.OrderID,
		TransactionID: dto.TransactionID,
		Amount:        dto.Amount,
	}
	if dto.OrderCreatedAt != nil {
		req.OrderCreatedAt = *dto.OrderCreatedAt
	}

	res, err := verify.Verify(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Caller went away mid-run; nobody is reading this response.
			return fiber.NewError(fiber.StatusRequestTimeout, "verification cancelled")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "verification aborted: "+err.Error())
	}

	out := fiber.Map{
		"verified": res.Verified,
		"message":  res.Message,
		"log_id":   res.LogID,
	}
	if res.Payment != nil {
		out["payment"] = res.Payment
	}
	return c.JSON(out)
}
