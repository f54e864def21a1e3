package capture

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/depthstream/session"
)

// Kind classifies facade errors.
type Kind string

const (
	// KindInvalidArgument indicates a rejected job id or backend url.
	KindInvalidArgument Kind = "invalid_argument"
	// KindConnection indicates the channel could not be opened or was lost.
	KindConnection Kind = "connection"
	// KindAborted indicates Stop interrupted a pending Start.
	KindAborted Kind = "aborted"
	// KindInternal is any other failure.
	KindInternal Kind = "internal"
)

// Error is the error type returned by Facade.Start.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps err onto the facade taxonomy. Nil maps to "".
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	switch {
	case errors.Is(err, session.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, session.ErrConnection):
		return KindConnection
	case errors.Is(err, session.ErrAborted):
		return KindAborted
	default:
		return KindInternal
	}
}

func wrap(err error) *Error {
	return &Error{Kind: Classify(err), Err: err}
}
