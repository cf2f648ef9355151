package app

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	// KindValidation means the request itself is malformed.
	KindValidation Kind = iota + 1
	// KindDecode means the submitted frame could not be decoded.
	KindDecode
	// KindInference means a model failed while evaluating a valid input.
	KindInference
	// KindUnavailable means a required model was never loaded.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindInference:
		return "inference"
	case KindUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by the prediction operations. Err carries the internal cause and
// is meant for logs only.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
