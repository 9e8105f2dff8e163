package telegram

import (
	"errors"

	"github.com/go-telegram/bot"
)

// ErrorKind groups Telegram API failures by how callers should react.
type ErrorKind int

const (
	ErrorKindOther ErrorKind = iota
	// ErrorKindPermission means the bot lacks rights in the chat (HTTP 403).
	ErrorKindPermission
	// ErrorKindBadRequest means Telegram rejected the call, e.g. the
	// message was already deleted (HTTP 400).
	ErrorKindBadRequest
	// ErrorKindRateLimited means Telegram asked us to slow down (HTTP 429).
	ErrorKindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindPermission:
		return "permission"
	case ErrorKindBadRequest:
		return "bad_request"
	case ErrorKindRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// ClassifyError maps an error returned by the go-telegram/bot client to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	var tooMany *bot.TooManyRequestsError
	switch {
	case err == nil:
		return ErrorKindOther
	case errors.Is(err, bot.ErrorForbidden):
		return ErrorKindPermission
	case errors.Is(err, bot.ErrorBadRequest):
		return ErrorKindBadRequest
	case errors.As(err, &tooMany):
		return ErrorKindRateLimited
	default:
		return ErrorKindOther
	}
}
