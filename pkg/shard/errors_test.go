package shard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		class       error
		fatal       bool
		recoverable bool
	}{
		{"invalid index", ErrInvalidIndex, ErrParameter, false, true},
		{"not writable", ErrNotWritable, ErrParameter, false, true},
		{"not unique", ErrNotUnique, ErrResourceTypeMismatch, false, true},
		{"specialization", ErrSpecializationMismatch, ErrResourceTypeMismatch, false, true},
		{"dependency", DependencyError("UI.Parents"), ErrDependencyUnavailable, false, true},
		{"type", TypeError("UI.Image", "input %s", "Int"), ErrBuildTimeType, false, true},
		{"not warm", ErrNotWarm, ErrLifecycle, true, false},
		{"in flight", ErrBlockingInFlight, ErrBlockingInFlight, false, true},
		{"aborted", ErrAborted, ErrAborted, true, false},
		{"fatal", fmt.Errorf("%w: unit gone", ErrFatal), ErrFatal, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.class)
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
			assert.Equal(t, tt.recoverable, IsRecoverable(tt.err))
		})
	}
	assert.False(t, IsRecoverable(nil))
}

func TestUnitError(t *testing.T) {
	assert.NoError(t, NewUnitError("Const", 0, "activate", nil))

	err := NewUnitError("WS.Client", 2, "activate", ErrNotWarm)
	var ue *UnitError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, "WS.Client", ue.Unit)
	assert.Equal(t, 2, ue.Index)
	assert.ErrorIs(t, err, ErrLifecycle)
	assert.Contains(t, err.Error(), "WS.Client")
}

func TestIOError_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnitError("WS.Client", 1, "activate", IOError("connect failed", cause))

	assert.ErrorIs(t, err, ErrIOFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, Cause(err))
	assert.Nil(t, Cause(ErrNotWarm))
	assert.True(t, IsRecoverable(err))
}

func TestFrom(t *testing.T) {
	ok := From(3, nil)
	assert.True(t, ok.IsSuccess())
	assert.True(t, ok.HasResult())
	assert.Equal(t, 3, ok.Result())

	failed := From(0, ErrIOFailure)
	assert.True(t, failed.IsFailure())
	assert.False(t, failed.IsCancel())

	for _, err := range []error{ErrAborted, ErrCancelled, context.Canceled, fmt.Errorf("wrap: %w", context.DeadlineExceeded)} {
		r := From(0, err)
		assert.True(t, r.IsCancel(), err.Error())
		assert.ErrorIs(t, r.Err(), err)
	}
	assert.NotEqual(t, From(1, nil).Id(), From(1, nil).Id())
}
