package handlers

import (
	"github.com/go-telegram/bot/models"

	"github.com/edgard/welcomebot/internal/telegram"
)

// RegisterAllHandlers returns every update handler keyed by name.
func RegisterAllHandlers(deps HandlerDeps) map[string]telegram.RegisteredHandler {
	return map[string]telegram.RegisteredHandler{
		"new_chat_members": {
			MatchFunc: IsNewChatMembers,
			Handler:   NewWelcomeHandler(deps),
		},
	}
}

// IsNewChatMembers matches service messages announcing joined members.
func IsNewChatMembers(update *models.Update) bool {
	return update.Message != nil && len(update.Message.NewChatMembers) > 0
}
