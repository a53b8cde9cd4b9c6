// Package protocol holds the shared vocabulary of the ParaShield core:
// smallest-unit amount arithmetic and the error taxonomy that every
// component reports failures through.
//
// Client apps and tests match on the literal error messages, so the
// message text carried by an Error must never be reworded.
package protocol

import "errors"

// Class partitions protocol failures by cause. Handlers map each class
// to an HTTP status; the core only ever aborts with one of these.
type Class int

const (
	// ClassValidation — missing or malformed input: bad evidence fields,
	// a future accident timestamp, a premium mismatch.
	ClassValidation Class = iota
	// ClassAuthorization — a non-administrator invoked a privileged operation.
	ClassAuthorization
	// ClassState — the operation is valid but the current record state
	// forbids it: duplicate active coverage, claim not pending.
	ClassState
	// ClassSolvency — the treasury cannot back the requested payout.
	ClassSolvency
)

// String returns the canonical name of the class.
func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassAuthorization:
		return "authorization"
	case ClassState:
		return "state"
	case ClassSolvency:
		return "solvency"
	}
	return "unknown"
}

// Error is a classified protocol failure. Message is user-visible and
// must be reproduced verbatim at the API surface.
type Error struct {
	Class   Class
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validation returns a ClassValidation error with the given message.
func Validation(msg string) error { return &Error{Class: ClassValidation, Message: msg} }

// Authorization returns a ClassAuthorization error with the given message.
func Authorization(msg string) error { return &Error{Class: ClassAuthorization, Message: msg} }

// State returns a ClassState error with the given message.
func State(msg string) error { return &Error{Class: ClassState, Message: msg} }

// Solvency returns a ClassSolvency error with the given message.
func Solvency(msg string) error { return &Error{Class: ClassSolvency, Message: msg} }

// ClassOf extracts the protocol class from err. ok is false when err is
// not a protocol error (infrastructure failures, store errors).
func ClassOf(err error) (Class, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class, true
	}
	return 0, false
}
