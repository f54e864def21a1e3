package encoder

import (
	"errors"
	"fmt"
)

// ErrorKind classifies encode failures.
type ErrorKind int

const (
	// ColorEncodeFailed indicates the color buffer could not be compressed.
	ColorEncodeFailed ErrorKind = iota
	// DepthEncodeFailed indicates the depth map could not be compressed.
	DepthEncodeFailed
	// MessageTooLarge indicates the compressed payloads exceed the budget.
	MessageTooLarge
)

func (k ErrorKind) String() string {
	switch k {
	case ColorEncodeFailed:
		return "color_encode_failed"
	case DepthEncodeFailed:
		return "depth_encode_failed"
	case MessageTooLarge:
		return "message_too_large"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// EncodeError is a per-frame encode failure.
// It never terminates a session on its own.
type EncodeError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an EncodeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var encErr *EncodeError
	if errors.As(err, &encErr) {
		return encErr.Kind == kind
	}
	return false
}
