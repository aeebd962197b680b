// Package shard holds the pieces every other package of the shard runtime
// shares: the activation Result, the error taxonomy of the execution contract
// and a few small helpers.
//
// Errors are classified by sentinel:
//   - ErrBuildTimeType: compose rejected the upstream type (fatal to the build)
//   - ErrParameter: bad index, bad value type or write to a constant binding
//   - ErrDependencyUnavailable: a required context is missing this tick
//   - ErrResourceTypeMismatch: object tags did not match on cast
//   - ErrIOFailure: a blocking operation failed
//   - ErrLifecycle: a contract call made in the wrong state
//
// Use errors.Is to classify and IsRecoverable/IsFatal to decide whether a
// pipeline keeps ticking.
package shard
