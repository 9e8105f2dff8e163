// Package main contains the entrypoint for the welcome bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/welcomebot/internal/bot"
	"github.com/edgard/welcomebot/internal/bot/handlers"
	"github.com/edgard/welcomebot/internal/config"
	"github.com/edgard/welcomebot/internal/health"
	"github.com/edgard/welcomebot/internal/logger"
	"github.com/edgard/welcomebot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, logger, Telegram client, scheduler and liveness server,
// then blocks until shutdown. It returns 0 on a clean stop and 1 on failure.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", logger.MaskTokens(err.Error()))
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	sched, err := bot.NewScheduler(log)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(handlers.Recover(log), logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewDefaultHandler(handlers.HandlerDeps{Logger: log})),
		tgbot.WithErrorsHandler(telegram.ErrorsHandler(log)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	// Retrieve bot info so the welcome handler can recognise its own joins
	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Messenger: telegram.NewRateLimitedMessenger(tg, cfg.Telegram.RateLimit, cfg.Telegram.RateBurst),
		Scheduler: sched,
	}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllHandlers(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	if cfg.Telegram.DropPendingUpdates {
		if err := telegram.DropPendingUpdates(ctx, tg, log); err != nil {
			log.Warn("Could not drop pending updates, continuing", "error", err)
		}
	}

	app := bot.NewBot(log, cfg, tg, sched, health.NewServer(cfg.HTTP, log))

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
