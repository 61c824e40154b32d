package mylog

import (
	"log/slog"
	"os"

	"adsplice/app/config"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// Preinit installs a console handler before the config is available, so
// config loading failures are already readable.
func Preinit() {
	handler := console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: slog.LevelDebug,
	})

	slog.SetDefault(slog.New(handler))
}

// Init wires the final logging pipeline: console always, plus a telegram
// sink for errors when a bot token is configured.
func Init(cfg *config.Config) error {
	consoleHandler := console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: slog.LevelDebug,
	})

	handlers := []slog.Handler{consoleHandler}

	if cfg.Log.Telegram.Token != "" && cfg.Log.Telegram.ChatID != "" {
		telegramHandler := slogtelegram.Option{
			Level:    slog.LevelError,
			Token:    cfg.Log.Telegram.Token,
			Username: cfg.Log.Telegram.ChatID,
		}.NewTelegramHandler()

		handlers = append(handlers, telegramHandler)
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))

	return nil
}
