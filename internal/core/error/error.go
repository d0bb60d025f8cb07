package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// PostgresErrorMessage describes Postgres related failures.
	PostgresErrorMessage = "postgres operation failed"
	// FallbackErrorMessage describes a failed or timed out fallback classification.
	FallbackErrorMessage = "fallback classification failed"
)

// Kind classifies failures so the engine can decide between recovering and aborting a turn.
type Kind string

const (
	KindUnknown          Kind = "UNKNOWN"
	KindParseAmbiguous   Kind = "PARSE_AMBIGUOUS"
	KindNoMenuAvailable  Kind = "NO_MENU_AVAILABLE"
	KindNotConfirmable   Kind = "NOT_CONFIRMABLE"
	KindFallbackTimeout  Kind = "FALLBACK_TIMEOUT"
	KindFallbackError    Kind = "FALLBACK_ERROR"
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
	KindInvalidInput     Kind = "INVALID_INPUT"
	KindConflict         Kind = "CONFLICT"
)

var (
	ErrNotConfirmable  = errors.New("NOT_CONFIRMABLE")
	ErrNoMenu          = errors.New("NO_MENU_AVAILABLE")
	ErrFallbackTimeout = errors.New("FALLBACK_TIMEOUT")
	ErrNoPendingAction = errors.New("NO_PENDING_ACTION")
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, kind Kind, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// StoreUnavailable marks err as an infrastructure failure that aborts the turn.
func StoreUnavailable(err error, message string) error {
	if err == nil {
		return nil
	}
	return New(err, KindStoreUnavailable, http.StatusServiceUnavailable, message)
}

// Fallback wraps a fallback classifier failure, keeping timeouts distinguishable.
func Fallback(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrFallbackTimeout) {
		return New(err, KindFallbackTimeout, http.StatusGatewayTimeout, FallbackErrorMessage)
	}
	return New(err, KindFallbackError, http.StatusBadGateway, FallbackErrorMessage)
}

// KindOf returns the kind of the first AppError in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, ErrNotConfirmable):
		return KindNotConfirmable
	case errors.Is(err, ErrNoMenu):
		return KindNoMenuAvailable
	case errors.Is(err, ErrFallbackTimeout):
		return KindFallbackTimeout
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}
