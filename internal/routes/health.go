package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds a liveness endpoint. Redis health is reported
// when configured but never fails liveness on its own; the service can
// initiate payments without it.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":      "OK",
			"environment": d.Cfg.Environment,
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		}

		if d.Cache != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			redisStatus := "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
			body["redis"] = redisStatus
		}

		return c.Status(http.StatusOK).JSON(body)
	})
}
