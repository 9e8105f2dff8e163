// Package bot implements the core bot lifecycle and component orchestration
// for the welcome bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/welcomebot/internal/config"
)

// Listener is the long-polling Telegram client. *tgbot.Bot satisfies it.
type Listener interface {
	Start(ctx context.Context)
}

var _ Listener = (*tgbot.Bot)(nil)

// LivenessServer serves health checks until ctx is cancelled.
type LivenessServer interface {
	Run(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	listener  Listener
	scheduler *Scheduler
	liveness  LivenessServer
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	listener Listener,
	scheduler *Scheduler,
	liveness LivenessServer,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		listener:  listener,
		scheduler: scheduler,
		liveness:  liveness,
	}
}

// Run starts the liveness server, the scheduler and the Telegram listener,
// and blocks until ctx is cancelled or the listener stops unexpectedly.
// A liveness failure is logged but never stops the relay.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.liveness.Run(gCtx); err != nil {
			b.logger.Error("Liveness server stopped, health checks will fail", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...", "pending_deletes", b.scheduler.Pending())

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")

		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	b.notify(daemon.SdNotifyReady)
	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()
	b.notify(daemon.SdNotifyStopping)

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

// notify reports state to systemd; it is a no-op outside a systemd unit.
func (b *Bot) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		b.logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		b.logger.Debug("Notified systemd", "state", state)
	}
}
