package smf

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	// TruncatedInput means the buffer ended in the middle of a structure.
	TruncatedInput ErrorKind = iota + 1
	// MalformedEvent means a status or data byte could not be interpreted.
	MalformedEvent
	// UnsupportedDivision means the header uses SMPTE time division.
	UnsupportedDivision
	// InvalidHeader means the MThd chunk is missing or carries bad values.
	InvalidHeader
)

// Sentinel errors, one per kind. A *DecodeError matches its kind's sentinel
// with errors.Is.
var (
	ErrTruncatedInput      = errors.New("truncated input")
	ErrMalformedEvent      = errors.New("malformed event")
	ErrUnsupportedDivision = errors.New("unsupported time division")
	ErrInvalidHeader       = errors.New("invalid header")
)

func (k ErrorKind) String() string {
	switch k {
	case TruncatedInput:
		return "TruncatedInput"
	case MalformedEvent:
		return "MalformedEvent"
	case UnsupportedDivision:
		return "UnsupportedDivision"
	case InvalidHeader:
		return "InvalidHeader"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case TruncatedInput:
		return ErrTruncatedInput
	case MalformedEvent:
		return ErrMalformedEvent
	case UnsupportedDivision:
		return ErrUnsupportedDivision
	case InvalidHeader:
		return ErrInvalidHeader
	}
	return nil
}

// DecodeError reports why a file failed to decode and where.
type DecodeError struct {
	Kind   ErrorKind
	Offset int // absolute byte offset into the input
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", e.Kind.sentinel(), e.Offset, e.Msg)
}

// Unwrap lets errors.Is match the kind's sentinel.
func (e *DecodeError) Unwrap() error {
	return e.Kind.sentinel()
}

func errorf(kind ErrorKind, offset int, format string, args ...any) error {
	return &DecodeError{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
