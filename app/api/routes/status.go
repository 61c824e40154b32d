package routes

import (
	"time"

	"adsplice/app/dto"
	"adsplice/app/service/splice"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"go.szostok.io/version"
)

type healthResponse struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
}

type statusResponse struct {
	SessionID     string `json:"sessionId"`
	PlayerMode    string `json:"playerMode"`
	CurrentAdID   string `json:"currentAdId,omitempty"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// StatusRoutes exposes read-only engine introspection. There is no control
// surface, the engine is driven by its config alone.
func StatusRoutes(app *fiber.App, di *do.Injector) {
	splicer := do.MustInvoke[*splice.Service](di)
	sessionID := do.MustInvoke[dto.SessionID](di)
	started := time.Now()

	app.Get("/api/healthz", func(c *fiber.Ctx) error {
		info := version.Get()

		return c.JSON(healthResponse{
			Version:   info.Version,
			BuildDate: info.BuildDate,
		})
	})

	app.Get("/api/status", func(c *fiber.Ctx) error {
		return c.JSON(statusResponse{
			SessionID:     string(sessionID),
			PlayerMode:    string(splicer.Mode()),
			CurrentAdID:   splicer.CurrentAdID(),
			UptimeSeconds: int64(time.Since(started).Seconds()),
		})
	})
}
