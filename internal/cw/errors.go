// Package cw implements a CW (Morse code) engine: tone generation, a
// character sender, an iambic keyer and straight key, and a timestamp-driven
// receiver. See the Engine type for the entry point.
package cw

import "errors"

// Kind classifies an error into the taxonomy every subsystem shares. Callers
// branch on Kind rather than on a specific sentinel so that equivalent
// failures from different subsystems (e.g. a full tone queue from the sender
// vs. from the iambic keyer) are handled the same way.
type Kind int

const (
	// KindNone is the zero value; Classify returns it for errors outside
	// the taxonomy (including nil).
	KindNone Kind = iota
	KindBadArgument
	KindNotFound
	KindWouldBlock
	KindBusy
	KindOutOfOrder
	KindTryAgain
	KindNoMemory
	KindNotPermitted
	KindDeadlock
	KindNoBackend
	KindIoError
)

func (k Kind) String() string {
	switch k {
	case KindBadArgument:
		return "BadArgument"
	case KindNotFound:
		return "NotFound"
	case KindWouldBlock:
		return "WouldBlock"
	case KindBusy:
		return "Busy"
	case KindOutOfOrder:
		return "OutOfOrder"
	case KindTryAgain:
		return "TryAgain"
	case KindNoMemory:
		return "NoMemory"
	case KindNotPermitted:
		return "NotPermitted"
	case KindDeadlock:
		return "Deadlock"
	case KindNoBackend:
		return "NoBackend"
	case KindIoError:
		return "IoError"
	default:
		return "None"
	}
}

// kindError pairs a sentinel error with its taxonomy Kind.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

func newKindError(kind Kind, msg string) error {
	return &kindError{kind: kind, err: errors.New(msg)}
}

// Sentinel errors for the taxonomy in spec §7. Use errors.Is to test for a
// specific one, or Classify to recover the Kind from an error returned by
// this package (including ones wrapped with fmt.Errorf's %w).
var (
	ErrBadArgument  = newKindError(KindBadArgument, "cw: argument out of range")
	ErrNotFound     = newKindError(KindNotFound, "cw: not found")
	ErrWouldBlock   = newKindError(KindWouldBlock, "cw: would block")
	ErrBusy         = newKindError(KindBusy, "cw: subsystem busy")
	ErrOutOfOrder   = newKindError(KindOutOfOrder, "cw: operation out of order")
	ErrTryAgain     = newKindError(KindTryAgain, "cw: not yet decidable")
	ErrNoMemory     = newKindError(KindNoMemory, "cw: buffer exhausted")
	ErrNotPermitted = newKindError(KindNotPermitted, "cw: operation not permitted")
	ErrDeadlock     = newKindError(KindDeadlock, "cw: wait would deadlock")
	ErrNoBackend    = newKindError(KindNoBackend, "cw: audio backend unavailable")
	ErrIoError      = newKindError(KindIoError, "cw: audio i/o error")
)

// Classify returns the Kind of err if it (or something it wraps) is one of
// this package's sentinel errors, and KindNone otherwise.
func Classify(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindNone
}
