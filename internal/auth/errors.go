package auth

import "errors"

// Kind classifies a core failure. Mapping a kind to a transport status is the
// job of the boundary layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindUnauthorized
	KindInvalidToken
	KindForbidden
	KindNotFound
	KindSigning
	KindPersistence
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidToken:
		return "invalid token"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindSigning:
		return "signing error"
	case KindPersistence:
		return "persistence error"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a typed core failure. Message is safe to show to callers; Err holds
// internal detail and is only reachable through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrInvalidToken   = &Error{Kind: KindInvalidToken}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrSigning        = &Error{Kind: KindSigning}
	ErrPersistence    = &Error{Kind: KindPersistence}
	ErrConflict       = &Error{Kind: KindConflict}
)

// E builds an *Error of the given kind.
func E(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the caller-facing text of err without internal detail.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.String()
	}
	return "internal error"
}
