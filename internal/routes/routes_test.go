package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/wamwagii/stk-push/internal/config"
	"github.com/wamwagii/stk-push/internal/logging"
	"github.com/wamwagii/stk-push/internal/mpesa"
	"github.com/wamwagii/stk-push/internal/payments"
)

type stubGateway struct{}

func (stubGateway) STKPush(_ context.Context, _ string, _ int64, _, _ string) (*mpesa.STKPushResponse, error) {
	return &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_test"}, nil
}

func (stubGateway) QueryStatus(_ context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	return &mpesa.STKQueryResponse{CheckoutRequestID: checkoutRequestID}, nil
}

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{
		AppName:     "StkPush",
		Environment: "sandbox",
		Mpesa: config.MpesaConfig{
			ShortCode: "174379",
			Passkey:   "passkey",
			BaseURL:   "http://unused",
		},
	}

	var gateway payments.Gateway = stubGateway{}
	deriver := mpesa.NewClient(cfg.Mpesa)

	app := fiber.New()
	if err := Setup(app, Deps{
		Cfg:     cfg,
		Logger:  logging.Discard(),
		Gateway: gateway,
		Deriver: deriver,
	}); err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app
}

func TestHealthRoute(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}

	var body map[string]any
	payload, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("decode %s: %v", payload, err)
	}
	if body["status"] != "OK" {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestFullInitiateAndCallbackFlow(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/api/payments/stk-push",
		strings.NewReader(`{"phone":"0712345678","amount":500,"package":"10GB"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}

	cbReq := httptest.NewRequest(fiber.MethodPost, "/api/callbacks/mpesa",
		strings.NewReader(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_test","ResultCode":0,"CallbackMetadata":{"Item":[{"Name":"PhoneNumber","Value":254712345678}]}}}}`))
	cbReq.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	cbResp, err := app.Test(cbReq)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	defer cbResp.Body.Close()

	payload, _ := io.ReadAll(cbResp.Body)
	var ack map[string]any
	if err := json.Unmarshal(payload, &ack); err != nil {
		t.Fatalf("decode ack %s: %v", payload, err)
	}
	if ack["ResultCode"] != float64(0) || ack["ResultDesc"] != "Success" {
		t.Fatalf("unexpected ack %v", ack)
	}
}

func TestDebugTimestampRoute(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/payments/debug-timestamp", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}
