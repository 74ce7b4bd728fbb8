package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
)

// Kind classifies failures surfaced by the reconciliation layer.
type Kind string

const (
	KindNotAuthenticated  Kind = "NotAuthenticated"
	KindDuplicateItem     Kind = "DuplicateItem"
	KindRecordNotFound    Kind = "RecordNotFound"
	KindRemoteUnavailable Kind = "RemoteUnavailable"
	KindValidation        Kind = "ValidationError"
	KindAuth              Kind = "AuthError"
	KindCacheUnavailable  Kind = "CacheUnavailable"
)

var defaultMessages = map[Kind]string{
	KindNotAuthenticated:  "please log in to continue",
	KindDuplicateItem:     "this item is already in your cart",
	KindRecordNotFound:    "record not found",
	KindRemoteUnavailable: "remote service unavailable, please retry",
	KindValidation:        "validation failed",
	KindAuth:              "invalid email or password",
	KindCacheUnavailable:  "local cache unavailable",
}

// Sentinels for errors.Is checks. Matching is by Kind only.
var (
	ErrNotAuthenticated  = &Error{Kind: KindNotAuthenticated}
	ErrDuplicateItem     = &Error{Kind: KindDuplicateItem}
	ErrRecordNotFound    = &Error{Kind: KindRecordNotFound}
	ErrRemoteUnavailable = &Error{Kind: KindRemoteUnavailable}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrCacheUnavailable  = &Error{Kind: KindCacheUnavailable}
)

// Error is a typed failure. Err carries the underlying cause for logs and is
// never shown to end users; Message is safe to render.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := e.UserMessage()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// UserMessage returns the message intended for the end user.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if m, ok := defaultMessages[e.Kind]; ok {
		return m
	}
	return string(e.Kind)
}

// NewError builds an Error with an explicit user message.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a kind to a lower-level cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Invalid builds a ValidationError carrying per-field messages.
func Invalid(op string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Fields: fields}
}

// KindOf returns the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
