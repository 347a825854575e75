package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wamwagii/stk-push/internal/payments"
)

// RegisterPaymentRoutes wires the payment initiation endpoints.
func RegisterPaymentRoutes(group fiber.Router, handler *payments.Handler) {
	group.Post("/stk-push", handler.StkPush)
	group.Get("/debug-timestamp", handler.DebugTimestamp)
	group.Get("/status/:checkoutRequestID", handler.Status)
}
