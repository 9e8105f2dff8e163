package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/welcomebot/internal/config"
	"github.com/edgard/welcomebot/internal/telegram"
)

// Scheduler runs a task once after a delay without blocking the caller.
type Scheduler interface {
	After(delay time.Duration, name string, task func(ctx context.Context)) error
}

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Messenger telegram.Messenger
	Scheduler Scheduler
}
