package fulfillment

import (
	"context"
	"log/slog"
)

// Entitlement describes what a confirmed payment entitles the payer to.
// Fields carries the flattened callback metadata (amount, receipt number,
// phone number and so on) as received from the gateway.
type Entitlement struct {
	CheckoutRequestID string
	Fields            map[string]any
}

// Granter applies the business effect of a confirmed payment.
type Granter interface {
	Grant(ctx context.Context, e Entitlement) error
}

// LoggerGranter is a stub implementation that writes grants to the logger.
type LoggerGranter struct {
	logger *slog.Logger
}

// NewLoggerGranter constructs a logging granter stub.
func NewLoggerGranter(logger *slog.Logger) *LoggerGranter {
	return &LoggerGranter{logger: logger}
}

// Grant writes the entitlement to the structured logger.
func (g *LoggerGranter) Grant(_ context.Context, e Entitlement) error {
	if g == nil || g.logger == nil {
		return nil
	}
	g.logger.Info("entitlement granted",
		slog.String("checkout_request_id", e.CheckoutRequestID),
		slog.Any("fields", e.Fields),
	)
	return nil
}
