// Package handlers contains Telegram update handlers, along with their
// registration logic and middleware.
package handlers

import (
	"context"
	"log/slog"
	"runtime/debug"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover creates a middleware that turns a panic in any handler into an
// error log entry so the polling loop keeps running.
func Recover(logger *slog.Logger) tgbot.Middleware {
	log := logger.With("middleware", "Recover")
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "Recovered panic in update handler",
						"update_id", update.ID,
						"panic", r,
						"stack", string(debug.Stack()))
				}
			}()
			next(ctx, bot, update)
		}
	}
}

// NewDefaultHandler returns the handler for updates no registered handler matched.
func NewDefaultHandler(deps HandlerDeps) tgbot.HandlerFunc {
	log := deps.Logger.With("handler", "default")
	return func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
		log.DebugContext(ctx, "Ignoring update", "update_id", update.ID)
	}
}
