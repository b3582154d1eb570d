package handlers

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"

	apperrors "github.com/edgard/habitbot/internal/errors"
)

// userText turns an application error into the reply shown to the user.
// Storage and unknown failures get the configured generic text.
func userText(ctx context.Context, log *slog.Logger, err error, generic string) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "🤷 This habit no longer exists."
	case errors.Is(err, apperrors.ErrForbidden):
		log.WarnContext(ctx, "Access to a foreign habit refused", "error", err)
		return "⛔ This habit does not belong to you."
	case errors.Is(err, apperrors.ErrAlreadyLogged):
		return "✅ Already marked for today."
	case errors.Is(err, apperrors.ErrInvalidQuantity):
		return "⚠️ Please enter a whole positive number."
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "⚠️ " + html.EscapeString(capitalize(err.Error())) + ". Please try again."
	default:
		log.ErrorContext(ctx, "Request failed", "error", err)
		return generic
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
