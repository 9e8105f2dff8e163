package handlers

import (
	"fmt"
	"html"

	"github.com/go-telegram/bot/models"
)

// MentionHTML returns an HTML link that mentions user by ID, labelled with
// their first name (or username when the first name is empty).
func MentionHTML(user models.User) string {
	name := user.FirstName
	if name == "" {
		name = user.Username
	}
	if name == "" {
		name = "friend"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(name))
}

// BuildGreeting concatenates the member mention with the welcome template.
// The template is trusted HTML from configuration.
func BuildGreeting(user models.User, template string) string {
	return MentionHTML(user) + template
}

// WelcomeKeyboard builds the single-button inline keyboard attached to greetings.
func WelcomeKeyboard(text, url string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: text, URL: url}},
		},
	}
}
