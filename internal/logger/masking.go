package logger

import (
	"context"
	"log/slog"
	"regexp"
)

// Bot tokens look like 123456789:AAE...; the client embeds them in request
// URLs, so transport errors can leak them.
var tokenPattern = regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{30,}`)

const tokenMask = "***:***"

// MaskingHandler wraps a slog.Handler and redacts bot tokens from the
// message, attribute values and error values of every record.
type MaskingHandler struct {
	handler slog.Handler
}

// NewMaskingHandler returns h wrapped in a MaskingHandler.
func NewMaskingHandler(h slog.Handler) *MaskingHandler {
	return &MaskingHandler{handler: h}
}

// MaskTokens replaces every bot token in s.
func MaskTokens(s string) string {
	return tokenPattern.ReplaceAllString(s, tokenMask)
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	// A fresh record leaves the caller's untouched; attrs are re-added masked.
	masked := slog.NewRecord(record.Time, record.Level, MaskTokens(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = maskAttr(a)
	}
	return &MaskingHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{handler: h.handler.WithGroup(name)}
}

func maskAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: maskValue(a.Value)}
}

func maskValue(v slog.Value) slog.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.StringValue(MaskTokens(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.StringValue(MaskTokens(err.Error()))
		}
		return v
	case slog.KindGroup:
		group := v.Group()
		masked := make([]slog.Attr, len(group))
		for i, a := range group {
			masked[i] = maskAttr(a)
		}
		return slog.GroupValue(masked...)
	default:
		return v
	}
}
