package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/wamwagii/stk-push/internal/callbacks"
	"github.com/wamwagii/stk-push/internal/config"
	"github.com/wamwagii/stk-push/internal/fulfillment"
	"github.com/wamwagii/stk-push/internal/logging"
	"github.com/wamwagii/stk-push/internal/middleware"
	"github.com/wamwagii/stk-push/internal/mpesa"
	"github.com/wamwagii/stk-push/internal/payments"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Cache  *redis.Client
	Logger *slog.Logger

	// Gateway overrides the default Daraja client. Tests inject fakes here.
	Gateway payments.Gateway
	Deriver payments.Deriver
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(logging.WithComponent(d.Logger, "http")))

	RegisterHealthRoutes(app, d)

	gateway := d.Gateway
	deriver := d.Deriver
	if gateway == nil {
		client := mpesa.NewClient(d.Cfg.Mpesa)
		gateway = client
		deriver = client
	} else if deriver == nil {
		deriver = mpesa.NewClient(d.Cfg.Mpesa)
	}

	var granter fulfillment.Granter
	if d.Cache != nil {
		granter = fulfillment.NewRedisGranter(d.Cache, d.Cfg.EntitlementTTL, logging.WithComponent(d.Logger, "fulfillment"))
	} else {
		granter = fulfillment.NewLoggerGranter(logging.WithComponent(d.Logger, "fulfillment"))
	}

	paymentSvc := payments.NewService(gateway, logging.WithComponent(d.Logger, "payments"))
	paymentHandler := payments.NewHandler(paymentSvc, deriver)

	interpreter := callbacks.NewInterpreter(logging.WithComponent(d.Logger, "callbacks"))
	callbackHandler := callbacks.NewHandler(interpreter, granter, logging.WithComponent(d.Logger, "callbacks"))

	api := app.Group("/api")

	paymentsGroup := api.Group("/payments")
	if d.Cache != nil {
		paymentsGroup.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterPaymentRoutes(paymentsGroup, paymentHandler)

	// The gateway posts here out-of-band; no idempotency layer, the ack
	// protocol itself tells the gateway whether to retry.
	RegisterCallbackRoutes(api.Group("/callbacks"), callbackHandler)

	return nil
}
