package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wamwagii/stk-push/internal/mpesa"
)

// Gateway is the outbound boundary to the payment provider.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*mpesa.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// PushResult is the tagged outcome of a push-payment initiation. Exactly one
// of the two arms is populated: Data on success, Message (plus optional raw
// Details) on failure. No error ever crosses this boundary.
type PushResult struct {
	Success bool
	Data    *mpesa.STKPushResponse
	Message string
	Details json.RawMessage
}

// ErrInvalidAmount rejects non-positive amounts before any gateway traffic.
var ErrInvalidAmount = errors.New("amount must be positive")

// Service orchestrates push-payment initiation against the gateway.
type Service struct {
	gateway Gateway
	logger  *slog.Logger
}

// NewService constructs a payment service.
func NewService(gateway Gateway, logger *slog.Logger) *Service {
	return &Service{gateway: gateway, logger: logger}
}

// Initiate triggers a push-payment prompt for the selected package. Callers
// must have validated field presence; amount positivity is enforced here.
// Gateway and transport failures are folded into the failure arm of the
// result, with the raw provider payload retained for logs.
func (s *Service) Initiate(ctx context.Context, phone string, amount int64, packageName string) (PushResult, error) {
	if amount <= 0 {
		return PushResult{}, ErrInvalidAmount
	}

	s.logger.Info("initiating stk push",
		slog.String("phone", mpesa.FormatPhone(phone)),
		slog.Int64("amount", amount),
		slog.String("package", packageName),
	)

	resp, err := s.gateway.STKPush(ctx, phone, amount, packageName, fmt.Sprintf("Payment for %s", packageName))
	if err != nil {
		message := mpesa.FailureMessage(err)
		details := mpesa.ProviderDetails(err)
		s.logger.Error("stk push failed",
			slog.String("message", message),
			slog.Any("error", err),
		)
		return PushResult{Success: false, Message: message, Details: details}, nil
	}

	s.logger.Info("stk push accepted",
		slog.String("merchant_request_id", resp.MerchantRequestID),
		slog.String("checkout_request_id", resp.CheckoutRequestID),
	)

	return PushResult{Success: true, Data: resp}, nil
}

// Status fetches the gateway-side state of an initiated push.
func (s *Service) Status(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	return s.gateway.QueryStatus(ctx, checkoutRequestID)
}
