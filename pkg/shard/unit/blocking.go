package unit

import (
	"context"
	"fmt"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/bridge"
	"github.com/ib-77/shardwire/pkg/shard/core"
)

// RunBlocking executes fn on a bridge worker and suspends the calling wire
// until it completes. Only one closure per instance may be in flight, which
// is what gives fn exclusive access to the unit's state.
//
// If the wire is aborted while waiting, the future is detached: fn still
// runs to its end and its result is discarded. The instance stays busy until
// then; a later activation on a coroutine waits for it before submitting.
func RunBlocking[T any](c *Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c.bridge == nil {
		return zero, shard.ErrBridgeClosed
	}

	inst := c.current
	onDone := func() {}
	if inst != nil {
		for !inst.inflight.CompareAndSwap(false, true) {
			if err := awaitPrevious(c, inst); err != nil {
				return zero, err
			}
		}
		onDone = func() { inst.inflight.Store(false) }
	}

	fut, err := c.bridge.Submit(c.ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, onDone)
	if err != nil {
		onDone()
		return zero, err
	}
	if inst != nil {
		inst.setPending(fut)
		defer inst.setPending(nil)
	}

	res, err := await(c, fut)
	if err != nil {
		return zero, err
	}
	out, err := res.Unpack()
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%w: blocking result is %T", shard.ErrResourceTypeMismatch, out)
	}
	return typed, nil
}

// awaitPrevious suspends until the instance's last closure has finished.
// Without a coroutine there is no way to wait cooperatively.
func awaitPrevious(c *Context, inst *Instance) error {
	if c.yielder == nil {
		return shard.ErrBlockingInFlight
	}
	prev := inst.lastFuture()
	if prev == nil || core.Closed(prev.Done()) {
		return c.yielder.Sleep(0)
	}
	c.Logger().Debug("waiting for detached task", "task", prev.ID().String())
	return c.yielder.Await(prev.Done())
}

func await(c *Context, fut *bridge.Future) (shard.Result[any], error) {
	if c.yielder == nil {
		res := fut.Wait(c.ctx)
		if res.IsCancel() && fut.Detached() {
			return res, res.Err()
		}
		return res, nil
	}
	if err := c.yielder.Await(fut.Done()); err != nil {
		fut.Detach()
		c.Logger().Debug("blocking task detached", "task", fut.ID().String(), "error", err)
		return shard.Result[any]{}, err
	}
	return fut.Result(), nil
}
