// Package telegram handles Telegram client construction, handler
// registration and classification of platform errors.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot"

	"github.com/edgard/welcomebot/internal/config"
)

// RegisteredHandler describes one update handler and the middleware wrapped
// around it. Handlers with a MatchFunc are registered by predicate; the rest
// by HandlerType, Pattern and MatchType.
type RegisteredHandler struct {
	HandlerType bot.HandlerType
	Pattern     string
	MatchType   bot.MatchType
	MatchFunc   bot.MatchFunc
	Handler     bot.HandlerFunc
	Middleware  []bot.Middleware
}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
// Long polling uses cfg.PollTimeout and every API call is bounded by cfg.RequestTimeout.
func NewTelegramBot(cfg config.TelegramConfig, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	baseOpts := []bot.Option{
		bot.WithHTTPClient(cfg.PollTimeout, &http.Client{Timeout: cfg.RequestTimeout}),
		bot.WithAllowedUpdates(bot.AllowedUpdates{"message"}),
	}

	b, err := bot.New(cfg.Token, append(baseOpts, opts...)...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully",
		"poll_timeout", cfg.PollTimeout,
		"request_timeout", cfg.RequestTimeout)
	return b, nil
}

// DropPendingUpdates discards updates queued while the bot was offline.
func DropPendingUpdates(ctx context.Context, b *bot.Bot, logger *slog.Logger) error {
	if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("failed to drop pending updates: %w", err)
	}
	logger.Info("Dropped pending updates")
	return nil
}

// ErrorsHandler returns the catch-all handler for errors raised inside the
// client's polling and dispatch loop. Errors are logged and never stop polling.
func ErrorsHandler(logger *slog.Logger) bot.ErrorsHandler {
	log := logger.With("component", "telegram_dispatch")
	return func(err error) {
		log.Error("Telegram dispatch error", "error", err, "kind", ClassifyError(err).String())
	}
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers handlers with the Telegram bot instance, applying
// each handler's own middleware.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registeredHandlers map[string]RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registeredHandlers) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	for name, regHandler := range registeredHandlers {
		if regHandler.Handler == nil {
			log.Warn("Skipping registration for nil handler", "name", name)
			continue
		}

		finalHandler := applyMiddleware(regHandler.Handler, regHandler.Middleware)
		if regHandler.MatchFunc != nil {
			b.RegisterHandlerMatchFunc(regHandler.MatchFunc, finalHandler)
		} else {
			b.RegisterHandler(regHandler.HandlerType, regHandler.Pattern, regHandler.MatchType, finalHandler)
		}
		log.Debug("Registered handler", "name", name, "middleware_count", len(regHandler.Middleware))
	}

	log.Info("Registered Telegram handlers successfully", "count", len(registeredHandlers))
	return nil
}
