package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/welcomebot/internal/telegram"
)

type welcomeHandler struct {
	deps HandlerDeps
}

// NewWelcomeHandler creates a handler that greets every member listed in a
// new_chat_members update and removes the greeting after the configured delay.
// Outbound calls go through deps.Messenger rather than the dispatching *bot.Bot.
func NewWelcomeHandler(deps HandlerDeps) bot.HandlerFunc {
	return welcomeHandler{deps}.Handle
}

func (h welcomeHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "welcome")

	msg := update.Message
	if msg == nil || len(msg.NewChatMembers) == 0 {
		log.WarnContext(ctx, "Welcome handler received update with nil message or no new members", "update_id", update.ID)
		return
	}

	log = log.With("chat_id", msg.Chat.ID, "chat_title", msg.Chat.Title)
	for _, member := range msg.NewChatMembers {
		h.welcomeMember(ctx, log, msg, member)
	}
}

func (h welcomeHandler) welcomeMember(ctx context.Context, log *slog.Logger, msg *models.Message, member models.User) {
	log = log.With("member_id", member.ID, "member_username", member.Username)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while welcoming member", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if h.isSelf(member) {
		log.InfoContext(ctx, "Skipping welcome for the bot's own account")
		return
	}

	welcome := h.deps.Config.Welcome
	sent, err := h.deps.Messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      BuildGreeting(member, welcome.Template),
		ParseMode: models.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{
			MessageID:                msg.ID,
			AllowSendingWithoutReply: true,
		},
		ReplyMarkup: WelcomeKeyboard(welcome.ButtonText, welcome.ButtonURL),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message", "error", err)
		return
	}
	if sent == nil {
		log.ErrorContext(ctx, "Telegram returned no message for welcome send")
		return
	}

	chatID, messageID := msg.Chat.ID, sent.ID
	log = log.With("message_id", messageID)
	log.InfoContext(ctx, "Sent welcome message", "delete_after", welcome.DeleteAfter)

	jobName := fmt.Sprintf("delete_welcome_%d_%d", chatID, messageID)
	err = h.deps.Scheduler.After(welcome.DeleteAfter, jobName, func(jobCtx context.Context) {
		h.deleteWelcome(jobCtx, log, chatID, messageID)
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to schedule welcome message deletion", "error", err)
	}
}

// isSelf reports whether member is the bot's own account.
func (h welcomeHandler) isSelf(member models.User) bool {
	self := h.deps.Config.Telegram.BotInfo
	if self == nil {
		return false
	}
	if self.Username != "" && strings.EqualFold(member.Username, self.Username) {
		return true
	}
	return self.ID != 0 && member.ID == self.ID
}

func (h welcomeHandler) deleteWelcome(ctx context.Context, log *slog.Logger, chatID int64, messageID int) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Panic while deleting welcome message", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	_, err := h.deps.Messenger.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	if err == nil {
		log.InfoContext(ctx, "Deleted welcome message")
		return
	}
	if ctx.Err() != nil {
		log.DebugContext(ctx, "Welcome message deletion abandoned on shutdown", "error", err)
		return
	}

	switch telegram.ClassifyError(err) {
	case telegram.ErrorKindPermission:
		log.WarnContext(ctx, "Cannot delete welcome message: bot lacks the can_delete_messages admin right", "error", err)
	case telegram.ErrorKindBadRequest:
		log.WarnContext(ctx, "Telegram rejected welcome message deletion", "error", err)
	default:
		log.ErrorContext(ctx, "Failed to delete welcome message", "error", err)
	}
}
