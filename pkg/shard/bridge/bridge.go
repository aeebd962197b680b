package bridge

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/ib-77/shardwire/internal/logging"
	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/core"
)

const defaultQueueSize = 64

// Bridge runs blocking closures on a fixed set of worker lines so the
// cooperative scheduler never blocks on them.
type Bridge struct {
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan shard.Result[*Future]
	workers int
	discard bool
	logger  *logging.Logger

	mu     sync.RWMutex // Guards queue against send after close
	closed bool
	wg     sync.WaitGroup
}

// New starts the worker lines. Worker count, queue size and the discard
// policy for detached results are read from ctx (see core options).
func New(ctx context.Context, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.NopLogger()
	}
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))

	b := &Bridge{
		ctx:     base,
		cancel:  cancel,
		queue:   make(chan shard.Result[*Future], core.GetWorkerQueueSize(ctx, defaultQueueSize)),
		workers: core.GetWorkerMaxCount(ctx, runtime.NumCPU()),
		discard: core.IsDiscardOnDetachEnabled(ctx, true),
		logger:  logger.With("component", "bridge"),
	}

	handlers := core.CancellationHandlers[*Future]{
		OnCancel: func(_ context.Context, inputCh <-chan shard.Result[*Future]) {
			for _, r := range core.Drain(inputCh) {
				r.Result().complete(shard.Fail[any](shard.ErrBridgeClosed))
			}
		},
		OnCancelUnprocessed: func(_ context.Context, r shard.Result[*Future]) {
			r.Result().complete(shard.Fail[any](shard.ErrBridgeClosed))
		},
	}

	b.wg.Add(b.workers)
	for i := 0; i < b.workers; i++ {
		go core.Locomotive[*Future, any](b.ctx, b.queue, b.run, handlers, nil, &b.wg)
	}
	return b
}

func (b *Bridge) Workers() int {
	return b.workers
}

// Submit queues fn. onDone runs on the worker right before the future
// completes; it must not block. Submit waits for queue space unless ctx is
// done first.
func (b *Bridge) Submit(ctx context.Context, fn Task, onDone func()) (*Future, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, shard.ErrBridgeClosed
	}

	f := newFuture(fn, onDone, b.discard)
	select {
	case b.queue <- shard.Success(f):
	case <-b.ctx.Done():
		return nil, shard.ErrBridgeClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", shard.ErrCancelled, ctx.Err())
	}
	b.logger.Debug("blocking task queued", "task", f.id.String())
	return f, nil
}

func (b *Bridge) run(ctx context.Context, in shard.Result[*Future]) shard.Result[any] {
	f := in.Result()

	var out any
	var err error
	var pc panics.Catcher
	pc.Try(func() { out, err = f.task(ctx) })
	if r := pc.Recovered(); r != nil {
		err = shard.IOError("blocking task panicked", r.AsError())
		b.logger.Error("blocking task panicked", "task", f.id.String(), "error", r.String())
	}

	res := shard.From(out, err)
	f.complete(res)
	if f.Detached() {
		b.logger.Debug("detached task finished", "task", f.id.String(), "error", err)
	}
	return res
}

// Close stops accepting work, cancels the context handed to running tasks
// and waits for the workers. Running tasks are never interrupted; queued
// ones fail with ErrBridgeClosed.
func (b *Bridge) Close() {
	b.cancel()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	for _, r := range core.Drain(b.queue) {
		r.Result().complete(shard.Fail[any](shard.ErrBridgeClosed))
	}
}
