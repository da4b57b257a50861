package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	// KindConfig marks unusable settings or persisted state: a malformed cache
	// store, a malformed command template, an invalid manifest location.
	KindConfig Kind = "config"
	// KindInvoker marks a failed or unusable translation call.
	KindInvoker Kind = "invoker"
	// KindConsistency marks an internal invariant violation.
	KindConsistency Kind = "consistency"

	KindTransient  Kind = "transient"
	KindRateLimit  Kind = "rate_limit"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindBadRequest Kind = "bad_request"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindConfig:
		return "Invalid configuration."
	case KindInvoker:
		return "Translation command failed."
	case KindConsistency:
		return "Internal consistency check failed."
	case KindTransient:
		return "Temporary upstream error. Please try again."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindValidation:
		return "Response validation failed."
	case KindBadRequest:
		return "Request rejected by upstream API."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Config(msg string, err error) error {
	return New(KindConfig, msg, err)
}

func Invoker(msg string, err error) error {
	return New(KindInvoker, msg, err)
}

func Consistency(msg string) error {
	return New(KindConsistency, msg, nil)
}

func Transient(err error) error {
	return New(KindTransient, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func Validation(err error) error {
	return New(KindValidation, "", err)
}

func BadRequest(err error) error {
	return New(KindBadRequest, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// IsRetryable reports whether a direct API backend may retry the call.
// Config, invoker and consistency failures never are.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindTransient || e.Kind == KindRateLimit
}

func IsRateLimit(err error) bool {
	return Is(err, KindRateLimit)
}
