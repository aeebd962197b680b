package shard

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the contract wraps exactly one of
// these so callers can classify with errors.Is.
var (
	// ErrBuildTimeType is returned by compose when the upstream type is not
	// accepted. Fatal to pipeline construction, never retried.
	ErrBuildTimeType = errors.New("incompatible input type")
	// ErrParameter covers invalid indexes, wrong value types and writes to
	// constant bindings.
	ErrParameter = errors.New("parameter error")
	// ErrDependencyUnavailable means a required context (a variable, an
	// enclosing UI) is absent at activation. Recoverable per tick.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrResourceTypeMismatch is returned when an object's tags do not match
	// the expected kind.
	ErrResourceTypeMismatch = errors.New("resource type mismatch")
	// ErrIOFailure is the generic failure surfaced for blocking I/O.
	ErrIOFailure = errors.New("i/o failure")
	// ErrLifecycle reports a contract call made in the wrong state.
	ErrLifecycle = errors.New("lifecycle violation")
	// ErrFatal marks an activation error after which the unit is unusable.
	ErrFatal = errors.New("fatal activation error")
	// ErrCancelled reports an activation cut short by cancellation.
	ErrCancelled = errors.New("activation cancelled")
)

// Parameter errors
var (
	ErrInvalidIndex     = fmt.Errorf("%w: invalid parameter index", ErrParameter)
	ErrInvalidParamType = fmt.Errorf("%w: value type not accepted", ErrParameter)
	ErrNotWritable      = fmt.Errorf("%w: binding is not writable", ErrParameter)
	ErrNotAcquired      = fmt.Errorf("%w: binding used outside warmup/cleanup", ErrParameter)
	ErrAlreadyAcquired  = fmt.Errorf("%w: binding already acquired", ErrParameter)
	ErrParamWhileWarm   = fmt.Errorf("%w: cannot set parameters while warm", ErrParameter)
)

// Object handle errors
var (
	ErrNotUnique      = fmt.Errorf("%w: handle is shared and has no clone glue", ErrResourceTypeMismatch)
	ErrHandleReleased = errors.New("object handle already released")
)

// Lifecycle and dispatch errors
var (
	ErrNotComposed            = fmt.Errorf("%w: unit not composed", ErrLifecycle)
	ErrNotWarm                = fmt.Errorf("%w: unit not warm", ErrLifecycle)
	ErrAlreadyWarm            = fmt.Errorf("%w: unit already warm", ErrLifecycle)
	ErrDropped                = fmt.Errorf("%w: unit dropped", ErrLifecycle)
	ErrSpecializationMismatch = fmt.Errorf("%w: input does not match the composed specialization", ErrResourceTypeMismatch)
)

// Blocking bridge errors
var (
	ErrAborted          = errors.New("pipeline aborted")
	ErrBlockingInFlight = errors.New("a blocking operation is already in flight")
	ErrBridgeClosed     = errors.New("blocking bridge closed")
	ErrNoSuspension     = fmt.Errorf("%w: suspend outside a coroutine", ErrLifecycle)
)

// UnitError attributes an error to the unit and contract operation that
// produced it.
type UnitError struct {
	Unit  string // Unit name, e.g. "WS.Client"
	Index int    // Position inside the wire, -1 when unknown
	Op    string // compose, warmup, activate, cleanup
	Err   error
}

func (e *UnitError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s #%d %s: %v", e.Unit, e.Index, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Unit, e.Op, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// NewUnitError wraps err with unit attribution. A nil err yields nil.
func NewUnitError(unit string, index int, op string, err error) error {
	if err == nil {
		return nil
	}
	return &UnitError{Unit: unit, Index: index, Op: op, Err: err}
}

// TypeError builds a build-time type error for the given unit.
func TypeError(unit string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrBuildTimeType, unit, fmt.Sprintf(format, args...))
}

// MismatchError builds a resource type mismatch with the offending tags.
func MismatchError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResourceTypeMismatch, fmt.Sprintf(format, args...))
}

// DependencyError reports a missing activation dependency.
func DependencyError(name string) error {
	return fmt.Errorf("%w: %s", ErrDependencyUnavailable, name)
}

// IOError wraps a blocking failure as a generic IOFailure. The cause stays
// reachable through errors.Unwrap for logging.
func IOError(msg string, cause error) error {
	return &ioError{msg: msg, cause: cause}
}

type ioError struct {
	msg   string
	cause error
}

func (e *ioError) Error() string { return fmt.Sprintf("%s: %s", ErrIOFailure, e.msg) }

func (e *ioError) Unwrap() []error { return []error{ErrIOFailure, e.cause} }

// Cause returns the underlying cause of an IOFailure, nil for any other
// error.
func Cause(err error) error {
	var e *ioError
	if errors.As(err, &e) {
		return e.cause
	}
	return nil
}

// IsFatal reports whether an activation error ends the pipeline.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal) || errors.Is(err, ErrLifecycle) || errors.Is(err, ErrAborted)
}

// IsRecoverable reports whether the pipeline may tick again after err.
func IsRecoverable(err error) bool {
	return err != nil && !IsFatal(err)
}
