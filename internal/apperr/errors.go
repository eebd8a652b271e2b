package apperr

import "errors"

// Kind classifies a failure for callers that need to pick a response shape.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation_failure"
	KindAlreadyProcessed Kind = "already_processed"
	KindExpired          Kind = "expired"
	KindInternal         Kind = "internal"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrAlreadyProcessed = &Error{Kind: KindAlreadyProcessed}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrInternal         = &Error{Kind: KindInternal}
)

const internalMessage = "Error interno del servidor"

// Error is a classified failure. Message is safe to show to clients; Err keeps the cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match against a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func AlreadyProcessed(msg string) error {
	return &Error{Kind: KindAlreadyProcessed, Message: msg}
}

func Expired(msg string) error {
	return &Error{Kind: KindExpired, Message: msg}
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: internalMessage, Err: err}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-facing text for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return internalMessage
}
