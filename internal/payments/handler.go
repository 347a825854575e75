package payments

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Deriver exposes the time-bound credential derivation for the debug endpoint.
type Deriver interface {
	Timestamp() string
	Password(timestamp string) string
}

// Handler exposes payment initiation endpoints.
type Handler struct {
	service *Service
	deriver Deriver
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service, deriver Deriver) *Handler {
	return &Handler{service: service, deriver: deriver}
}

// StkPush validates the request and delegates to the payment service.
func (h *Handler) StkPush(c *fiber.Ctx) error {
	var req StkPushRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(StkPushResponse{
			Success: false,
			Error:   "Invalid request body",
		})
	}

	if req.Phone == "" || req.Amount == 0 || req.Package == "" {
		return c.Status(http.StatusBadRequest).JSON(StkPushResponse{
			Success: false,
			Error:   "Missing required fields: phone, amount, package",
		})
	}

	result, err := h.service.Initiate(c.UserContext(), req.Phone, req.Amount, req.Package)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			return c.Status(http.StatusBadRequest).JSON(StkPushResponse{
				Success: false,
				Error:   "Invalid amount",
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(StkPushResponse{
			Success: false,
			Error:   "Internal server error",
		})
	}

	if !result.Success {
		return c.Status(http.StatusBadRequest).JSON(StkPushResponse{
			Success: false,
			Error:   result.Message,
			Details: result.Details,
		})
	}

	return c.JSON(StkPushResponse{
		Success: true,
		Data:    result.Data,
		Message: "STK Push initiated successfully",
	})
}

// DebugTimestamp reports the current credential derivation. Diagnostic only.
func (h *Handler) DebugTimestamp(c *fiber.Ctx) error {
	timestamp := h.deriver.Timestamp()
	password := h.deriver.Password(timestamp)

	return c.JSON(fiber.Map{
		"timestamp":       timestamp,
		"password":        password,
		"timestampLength": len(timestamp),
		"passwordLength":  len(password),
		"expectedFormat":  "YYYYMMDDHHmmss (14 characters)",
		"currentTime":     time.Now().UTC().Format(time.RFC3339),
	})
}

// Status looks up the gateway-side state of an initiated push.
func (h *Handler) Status(c *fiber.Ctx) error {
	checkoutRequestID := c.Params("checkoutRequestID")

	resp, err := h.service.Status(c.UserContext(), checkoutRequestID)
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(StkPushResponse{
			Success: false,
			Error:   "Status lookup failed",
		})
	}

	return c.JSON(StkPushResponse{Success: true, Data: resp})
}
