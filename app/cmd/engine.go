package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"adsplice/app/api/middleware"
	"adsplice/app/api/routes"
	"adsplice/app/client/adtracker"
	"adsplice/app/client/assetlist"
	"adsplice/app/client/eventsink"
	"adsplice/app/client/manifest"
	"adsplice/app/config"
	"adsplice/app/dto"
	"adsplice/app/player"
	"adsplice/app/service/lifecycle"
	"adsplice/app/service/poller"
	"adsplice/app/service/pubsub"
	"adsplice/app/service/splice"
	"adsplice/app/util/mylog"
	"adsplice/app/util/telemetry"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

const mimeHLS = "application/vnd.apple.mpegurl"

var configPath string

var Engine = &cobra.Command{
	Use:   "engine",
	Short: "Run the SGAI ad insertion engine",
	Run:   runEngine,
}

func init() {
	Engine.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config yaml file (required)")
}

func runEngine(_ *cobra.Command, _ []string) {
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	di := do.New()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config",
			slog.Any("error", err),
		)
		os.Exit(1) //nolint:gocritic
		return
	}
	do.ProvideValue(di, cfg)

	if err = telemetry.InitSentry(cfg); err != nil {
		slog.Error("Failed to init sentry",
			slog.Any("error", err),
		)
		os.Exit(1)
		return
	}
	defer sentry.Flush(3 * time.Second)

	tel, err := telemetry.Init(cfg)
	if err != nil {
		slog.Error("Failed to init telemetry",
			slog.Any("error", err),
		)
		os.Exit(1)
		return
	}
	defer tel.Shutdown(appCtx)
	do.ProvideValue(di, tel)

	if err = mylog.Init(cfg); err != nil {
		slog.Error("Failed to init logging",
			slog.Any("error", err),
		)
		os.Exit(1)
		return
	}

	tracing := telemetry.NewTracing(cfg, tel.Tracer)
	do.ProvideValue(di, tracing)

	sessionID := dto.SessionID(uuid.NewString())
	do.ProvideValue(di, sessionID)

	slog.InfoContext(appCtx, "Starting engine...",
		slog.String("session_id", string(sessionID)),
		slog.String("stream_url", cfg.Stream.URL),
	)

	do.Provide(di, pubsub.New)
	do.Provide(di, manifest.NewClient)
	do.Provide(di, assetlist.NewClient)
	do.Provide(di, eventsink.NewClient)
	do.Provide(di, adtracker.NewClient)

	bus := do.MustInvoke[*pubsub.Service](di)
	do.ProvideValue[player.Player](di, player.NewClock(bus))

	do.Provide(di, lifecycle.New)
	do.Provide(di, splice.New)
	do.Provide(di, poller.New)

	if err = do.MustInvoke[*eventsink.Client](di).HealthCheck(appCtx); err != nil {
		slog.Error("Event sink health check failed",
			slog.Any("error", err),
		)
		os.Exit(1)
		return
	}

	lifecycleService := do.MustInvoke[*lifecycle.Service](di)
	splicerService := do.MustInvoke[*splice.Service](di)

	bus.Subscribe(pubsub.PlayerChannel, lifecycleService.HandleNotification)
	bus.Subscribe(pubsub.PlayerChannel, splicerService.HandleNotification)

	lifecycleService.Initialize()

	p := do.MustInvoke[player.Player](di)
	p.SetSource(cfg.Stream.URL, mimeHLS)
	p.Prepare()
	p.Play()

	go do.MustInvoke[*poller.Service](di).RunPollLoop(appCtx)
	go lifecycleService.RunHeartbeatLoop(appCtx)

	app := fiber.New(fiber.Config{
		AppName:               "adsplice status API",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
		ReadTimeout:           time.Second * 60,
		WriteTimeout:          time.Second * 60,
	})

	middleware.FiberMiddleware(app)
	routes.StatusRoutes(app, di)
	routes.NotFoundRoute(app)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		slog.Info("Shutting down engine...")

		lifecycleService.StopTracking("Engine shutting down")

		_ = app.Shutdown()
		cancel()
	}()

	slog.Info(fmt.Sprintf("Status server started on port %d", cfg.Server.HttpPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.HttpPort)); err != nil {
		slog.Warn("Status server stopped",
			slog.Any("error", err),
		)
	}

	slog.Info("Waiting for services to finish...")
	_ = di.Shutdown()
}
