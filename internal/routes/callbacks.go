package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wamwagii/stk-push/internal/callbacks"
)

// RegisterCallbackRoutes wires the gateway webhook endpoints.
func RegisterCallbackRoutes(group fiber.Router, handler *callbacks.Handler) {
	group.Post("/mpesa", handler.Mpesa)
}
