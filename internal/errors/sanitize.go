package errors

import (
	"context"
	"errors"
	"regexp"
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`),
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)\s*[=:]\s*\S+`),
}

// Sanitize returns a transcript-safe summary of err. Only the category
// phrase is returned; raw error text stays in the logs.
func Sanitize(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}

	mapped := NewDefaultErrorMapper().MapError(err)

	switch {
	case errors.Is(mapped, ErrTransient):
		return "The assistant is temporarily unavailable (timeout or rate limit). Please try again."
	case errors.Is(mapped, ErrPermissionDenied):
		return "The request was refused by an upstream service."
	case errors.Is(mapped, ErrInvalidModelOutput):
		return "The assistant returned a response that could not be understood."
	case errors.Is(mapped, ErrInvalidInput):
		return "The request was invalid."
	case errors.Is(mapped, ErrNotFound):
		return "A required resource could not be found."
	case errors.Is(mapped, ErrActionBlocked):
		return "A proposed action was blocked by the safety policy."
	case errors.Is(mapped, ErrModeUnavailable):
		return "The current mode is unavailable."
	default:
		return "Something went wrong while handling your message."
	}
}

// Redact masks credential-looking substrings. It is used for log fields that
// may carry collaborator output.
func Redact(text string) string {
	for _, pattern := range secretPatterns {
		text = pattern.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}
