package core

import (
	"context"
	"sync"

	"github.com/ib-77/shardwire/pkg/shard"
)

type CancellationHandlers[In any] struct {
	OnCancel            func(ctx context.Context, inputCh <-chan shard.Result[In])
	OnCancelUnprocessed func(ctx context.Context, unprocessed shard.Result[In])
}

// Locomotive drives one worker line: it pulls inputs until the channel is
// closed or ctx is done and hands each one to engine. An input already taken
// when ctx is cancelled goes to OnCancelUnprocessed; whatever is still queued
// goes to OnCancel.
func Locomotive[In, Out any](ctx context.Context, inputCh <-chan shard.Result[In],
	engine func(ctx context.Context, input shard.Result[In]) shard.Result[Out],
	handlers CancellationHandlers[In],
	onProcessed func(ctx context.Context, in shard.Result[In], out shard.Result[Out]), wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			if handlers.OnCancel != nil {
				handlers.OnCancel(ctx, inputCh)
			}
			return
		case in, ok := <-inputCh:
			if !ok {
				return
			}

			if ctx.Err() != nil {
				if handlers.OnCancelUnprocessed != nil {
					handlers.OnCancelUnprocessed(ctx, in)
				}
				if handlers.OnCancel != nil {
					handlers.OnCancel(ctx, inputCh)
				}
				return
			}

			out := engine(ctx, in)
			if onProcessed != nil {
				onProcessed(ctx, in, out)
			}
		}
	}
}
