package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so the boundary layer can map it to a response.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindInsufficient Kind = "INSUFFICIENT_INVENTORY"
	KindPayment      Kind = "PAYMENT"
	KindInvalid      Kind = "INVALID"
	KindInternal     Kind = "INTERNAL"
)

// Error is a typed application error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInsufficient = &Error{Kind: KindInsufficient, Message: "insufficient inventory"}
	ErrPayment      = &Error{Kind: KindPayment, Message: "payment error"}
	ErrInvalid      = &Error{Kind: KindInvalid, Message: "invalid request"}
)

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// InsufficientError carries the numbers behind an InsufficientInventory failure.
type InsufficientError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("variant %s: requested %d, available %d", e.VariantID, e.Requested, e.Available)
}

func Insufficient(variantID string, requested, available int) *Error {
	return &Error{
		Kind:    KindInsufficient,
		Message: "insufficient inventory",
		Err:     &InsufficientError{VariantID: variantID, Requested: requested, Available: available},
	}
}

func Payment(format string, args ...any) *Error {
	return &Error{Kind: KindPayment, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
