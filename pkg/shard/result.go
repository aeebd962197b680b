package shard

import (
	"github.com/google/uuid"
)

// Result is the outcome of one activation: a wire tick, or a blocking task
// delivered back to the pipeline that issued it.
type Result[T any] struct {
	id        uuid.UUID
	result    T
	err       error
	isSuccess bool
	isCancel  bool
	hasResult bool
}

func Success[T any](r T) Result[T] {
	return Result[T]{
		result:    r,
		err:       nil,
		isSuccess: true,
		isCancel:  false,
		hasResult: true,
		id:        uuid.New(),
	}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{
		err:       err,
		isSuccess: false,
		isCancel:  false,
		hasResult: false,
		id:        uuid.New(),
	}
}

func Cancel[T any](err error) Result[T] {
	return Result[T]{
		err:       err,
		isSuccess: false,
		isCancel:  true,
		hasResult: false,
		id:        uuid.New(),
	}
}

// From converts an (value, error) pair into a Result. Cancellation errors
// produce a cancelled result.
func From[T any](r T, err error) Result[T] {
	if err == nil {
		return Success(r)
	}
	if IsCancellationError(err) {
		return Cancel[T](err)
	}
	return Fail[T](err)
}

func (r Result[T]) Result() T {
	return r.result
}

func (r Result[T]) Err() error {
	return r.err
}

// Unpack returns the value and error pair.
func (r Result[T]) Unpack() (T, error) {
	return r.result, r.err
}

func (r Result[T]) IsSuccess() bool {
	return r.isSuccess
}

func (r Result[T]) IsFailure() bool {
	return !r.isSuccess && !r.isCancel && r.err != nil
}

func (r Result[T]) IsCancel() bool {
	return r.isCancel
}

func (r Result[T]) HasResult() bool {
	return r.hasResult
}

func (r Result[T]) Id() uuid.UUID {
	return r.id
}
