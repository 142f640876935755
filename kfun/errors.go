package kfun

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error Types
// ---------------------------------------------------------------------------

// Configuration errors. These indicate a broken driver build and are
// reported by Builder and Finalize; the driver must not start.
var (
	ErrDuplicateName = errors.New("duplicate kfun name")
	ErrBadPrototype  = errors.New("malformed kfun prototype")
	ErrBadName       = errors.New("invalid kfun name")
	ErrBadVersion    = errors.New("kfun version out of range")
	ErrIndexSpace    = errors.New("kfun index space exhausted")
	ErrNotRegistered = errors.New("kfun not registered")
)

// Snapshot errors. A failed restore leaves the registry as it was, but the
// snapshot cannot be resumed from.
var (
	ErrCorruptSnapshot  = errors.New("corrupt kfun snapshot")
	ErrUnknownFunction  = errors.New("restored unknown kfun")
	ErrSnapshotTooLarge = errors.New("kfun table too large for snapshot")
)

// Dispatch-time errors raised back into the running program.
var (
	ErrUnknownCipher = errors.New("Unknown cipher")
	ErrUnknownHash   = errors.New("Unknown hash algorithm")
	ErrTooFewArgs    = errors.New("Too few arguments")
	ErrTooManyArgs   = errors.New("Too many arguments")
	ErrBadArgument   = errors.New("Bad argument")
	ErrUnusedKfun    = errors.New("Unused kfun")
	ErrNoSuchIndex   = errors.New("no kfun at stable index")
)

// UnknownFunctionError reports a snapshot record that no function of the
// current build matches.
type UnknownFunctionError struct {
	Record string      // the persisted name, as written
	Index  StableIndex // the stable index it held
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("%s: %s (index %d)", ErrUnknownFunction, e.Record, e.Index)
}

func (e *UnknownFunctionError) Unwrap() error { return ErrUnknownFunction }

// RuntimeError is an error raised into the calling program by a kfun. The
// interpreter turns it into a language-level exception.
type RuntimeError struct {
	Kfun string
	Err  error
}

func (e *RuntimeError) Error() string { return e.Err.Error() }

func (e *RuntimeError) Unwrap() error { return e.Err }

// BadArg returns the error for a wrongly typed argument n (1-based).
func BadArg(kfun string, n int) error {
	return &RuntimeError{
		Kfun: kfun,
		Err:  fmt.Errorf("%w %d for kfun %s", ErrBadArgument, n, kfun),
	}
}
