package callbacks

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/wamwagii/stk-push/internal/fulfillment"
)

// Handler receives the gateway's asynchronous webhook. It must always answer
// with a well-formed acknowledgement; a parsing failure is reported to the
// gateway, never raised as an HTTP error.
type Handler struct {
	interpreter *Interpreter
	granter     fulfillment.Granter
	logger      *slog.Logger
}

// NewHandler constructs a callback handler.
func NewHandler(interpreter *Interpreter, granter fulfillment.Granter, logger *slog.Logger) *Handler {
	return &Handler{interpreter: interpreter, granter: granter, logger: logger}
}

// Mpesa handles POST callbacks from the Daraja STK push flow.
func (h *Handler) Mpesa(c *fiber.Ctx) error {
	var envelope Envelope
	if err := c.BodyParser(&envelope); err != nil {
		h.logger.Warn("callback body is not valid json", slog.Any("error", err))
		return c.Status(http.StatusOK).JSON(Ack{ResultCode: 1, ResultDesc: "Invalid callback data"})
	}

	ack, outcome := h.interpreter.Interpret(envelope)

	if outcome != nil && outcome.Succeeded {
		if err := h.granter.Grant(c.UserContext(), fulfillment.Entitlement{
			CheckoutRequestID: outcome.CheckoutRequestID,
			Fields:            outcome.Fields,
		}); err != nil {
			// The payment already happened; fulfillment problems are an
			// internal concern and must not change the acknowledgement.
			h.logger.Error("entitlement grant failed",
				slog.String("checkout_request_id", outcome.CheckoutRequestID),
				slog.Any("error", err),
			)
		}
	}

	return c.JSON(ack)
}
