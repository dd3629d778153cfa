// Package txerr defines the stable error taxonomy shared by every
// translation component: Sigma parsing, condition compilation, SPL
// emission, and the reverse recognizer all fail through the same Kind set
// so the orchestrator never has to remap one component's error into
// another's vocabulary.
package txerr

import "fmt"

// Kind is a stable error category. The orchestrator surfaces it verbatim;
// callers should switch on Kind, never on Error().
type Kind string

const (
	InvalidYaml         Kind = "InvalidYaml"
	InvalidSigma        Kind = "InvalidSigma"
	UnknownModifier     Kind = "UnknownModifier"
	UnresolvedSelection Kind = "UnresolvedSelection"
	UnsupportedSpl      Kind = "UnsupportedSpl"
	NotFound            Kind = "NotFound"
	Conflict            Kind = "Conflict"
	LlmUnavailable      Kind = "LlmUnavailable"
	Internal            Kind = "Internal"
)

// Error is the single error type every component returns. Location is a
// dotted path into the offending document (e.g. "detection.selection.Image")
// and is empty when a location doesn't apply.
type Error struct {
	Kind     Kind
	Location string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Location)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, location, message string) *Error {
	return &Error{Kind: kind, Location: location, Message: message}
}

// Wrap builds an Error around an existing cause, inheriting its message.
func Wrap(kind Kind, location string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Location: location, Message: err.Error(), Err: err}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if te, ok := err.(*Error); ok {
			return te.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
