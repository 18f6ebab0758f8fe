// Package errs carries the failure kinds every public operation reports.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindForbidden
	KindNotFound
	KindConflict
	KindCapacity
	KindGameRule
	KindBadTokenFormat
	KindInvalidToken
)

var kindNames = map[Kind]string{
	KindInternal:       "internal",
	KindBadRequest:     "bad_request",
	KindForbidden:      "forbidden",
	KindNotFound:       "not_found",
	KindConflict:       "conflict",
	KindCapacity:       "capacity",
	KindGameRule:       "game_rule",
	KindBadTokenFormat: "bad_token_format",
	KindInvalidToken:   "invalid_token",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified error. Sentinels are compared by identity with errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New returns a classified sentinel.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
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

// KindOf reports the kind of the first classified error in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Internal wraps a backing-store or encoding failure.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return Wrap(KindInternal, op, err)
}
