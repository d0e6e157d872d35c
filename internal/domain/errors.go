package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. A Kind is itself an error so callers can match with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not found"
	KindConflict        Kind = "conflict"
	KindNetwork         Kind = "network"
	KindTimeout         Kind = "timeout"
	KindServer          Kind = "server"
)

// Error is the failure type surfaced by the API client, the flows and the stub API.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind target against the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or KindServer for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// IsRetryable reports whether resubmitting the same action may succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindServer:
		return true
	}
	return false
}

// ErrInFlight is returned when an action is invoked while the same action is still pending.
var ErrInFlight = errors.New("action already in flight")

var (
	// ErrSessionNotFound is returned when no session matches an id or join code.
	ErrSessionNotFound = &Error{Kind: KindNotFound, Message: "quiz session not found"}
	// ErrSessionNotWaiting is returned when joining or starting a session that already started or finished.
	ErrSessionNotWaiting = &Error{Kind: KindConflict, Message: "quiz session is not waiting for players"}
	// ErrNoParticipants is returned when starting a session nobody has joined.
	ErrNoParticipants = &Error{Kind: KindConflict, Message: "quiz session has no participants"}
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = &Error{Kind: KindNotFound, Message: "question bank not found"}
	// ErrProfileNotFound indicates the user's profile could not be loaded.
	ErrProfileNotFound = &Error{Kind: KindNotFound, Message: "profile not found"}
)
