package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// Messenger is the subset of the Telegram API the welcome relay needs.
// *bot.Bot satisfies it.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

var _ Messenger = (*bot.Bot)(nil)

// RateLimitedMessenger paces outbound calls so a burst of joins cannot trip
// Telegram's flood limits.
type RateLimitedMessenger struct {
	next    Messenger
	limiter *rate.Limiter
}

// NewRateLimitedMessenger wraps next with a token bucket of ratePerSec and burst.
func NewRateLimitedMessenger(next Messenger, ratePerSec float64, burst int) *RateLimitedMessenger {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedMessenger{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

func (m *RateLimitedMessenger) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return m.next.SendMessage(ctx, params)
}

func (m *RateLimitedMessenger) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}
	return m.next.DeleteMessage(ctx, params)
}
