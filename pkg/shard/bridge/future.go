package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/core"
)

// Task is a blocking closure executed on a bridge worker.
type Task func(ctx context.Context) (any, error)

type releaser interface {
	Release() error
}

// Future is the completion slot of one submitted Task. The result is written
// once by the worker before Done is closed.
type Future struct {
	id       uuid.UUID
	task     Task
	onDone   func()
	done     chan struct{}
	result   shard.Result[any]
	detached atomic.Bool
	discard  bool
	once     sync.Once
}

func newFuture(task Task, onDone func(), discard bool) *Future {
	return &Future{
		id:      uuid.New(),
		task:    task,
		onDone:  onDone,
		done:    make(chan struct{}),
		discard: discard,
	}
}

func (f *Future) ID() uuid.UUID {
	return f.id
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome. Only meaningful after Done is closed.
func (f *Future) Result() shard.Result[any] {
	if core.Closed(f.done) {
		return f.result
	}
	return shard.Fail[any](fmt.Errorf("%w: future %s not completed", shard.ErrLifecycle, f.id))
}

// Wait blocks until the task completes or ctx is done. On ctx the future is
// detached and a cancelled result returned.
func (f *Future) Wait(ctx context.Context) shard.Result[any] {
	select {
	case <-f.done:
		return f.result
	case <-ctx.Done():
		f.Detach()
		return shard.Cancel[any](fmt.Errorf("%w: %w", shard.ErrCancelled, ctx.Err()))
	}
}

// Detach abandons the future. The task keeps running to completion; its
// result is discarded and any object it carries released.
func (f *Future) Detach() {
	if !f.detached.CompareAndSwap(false, true) {
		return
	}
	if core.Closed(f.done) {
		f.drop()
	}
}

func (f *Future) Detached() bool {
	return f.detached.Load()
}

func (f *Future) complete(r shard.Result[any]) {
	f.result = r
	if f.onDone != nil {
		f.onDone()
	}
	close(f.done)
	if f.detached.Load() {
		f.drop()
	}
}

func (f *Future) drop() {
	if !f.discard {
		return
	}
	f.once.Do(func() {
		if rel, ok := f.result.Result().(releaser); ok {
			_ = rel.Release()
		}
	})
}
