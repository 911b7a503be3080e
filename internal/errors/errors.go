package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrInvalidInput - malformed command arguments or decision payloads (show usage inline)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found (show error inline)
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied - collaborator refused the request (show summary inline)
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTransient - timeout, rate limit or network trouble (show retry hint inline)
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model returned malformed structured output
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - anything else (generic message inline, details only in logs)
	ErrInternal = errors.New("internal error")
)

// Domain sentinels for the routing and confirmation protocol.
var (
	// ErrUnknownCommand - no command matched either resolution pass
	ErrUnknownCommand = errors.New("unknown command")

	// ErrModeUnavailable - no handler registered for the requested or active mode
	ErrModeUnavailable = errors.New("mode unavailable")

	// ErrUnhandledInput - the active handler rejected the input
	ErrUnhandledInput = errors.New("input not handled by mode")

	// ErrUnknownConfirmation - decision for an id the ledger does not hold (log and drop)
	ErrUnknownConfirmation = errors.New("unknown confirmation")

	// ErrActionBlocked - a safety policy refused a proposed action
	ErrActionBlocked = errors.New("action blocked")
)
