package middleware

import (
	"log/slog"
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	slogfiber "github.com/samber/slog-fiber"
)

func FiberMiddleware(app *fiber.App) {
	ignorePaths := []string{"/api/healthz"}

	// log requests
	app.Use(slogfiber.NewWithConfig(slog.Default(), slogfiber.Config{
		Filters: []slogfiber.Filter{
			func(c *fiber.Ctx) bool {
				return !slices.Contains(ignorePaths, c.Path())
			},
		},
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
}
