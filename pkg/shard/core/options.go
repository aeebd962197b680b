package core

import (
	"context"
	"time"
)

type OptionKey string

const (
	DetachOptionKey    OptionKey = "detach_options"
	WorkerOptionKey    OptionKey = "worker_options"
	SchedulerOptionKey OptionKey = "scheduler_options"
)

type MaxLimitOption struct {
	Value int
}

type WorkerOptions struct {
	MaxCount  MaxLimitOption
	QueueSize MaxLimitOption
}

type DetachOptions struct {
	DiscardOnDetach bool
}

type SchedulerOptions struct {
	TickInterval time.Duration
}

func WithDetachOptions(ctx context.Context, discardOnDetach bool) context.Context {
	return context.WithValue(ctx, DetachOptionKey, DetachOptions{DiscardOnDetach: discardOnDetach})
}

func WithWorkerOptions(ctx context.Context, maxWorkers, queueSize int) context.Context {
	return context.WithValue(ctx, WorkerOptionKey,
		WorkerOptions{MaxCount: MaxLimitOption{Value: maxWorkers}, QueueSize: MaxLimitOption{Value: queueSize}})
}

func WithSchedulerOptions(ctx context.Context, tickInterval time.Duration) context.Context {
	return context.WithValue(ctx, SchedulerOptionKey, SchedulerOptions{TickInterval: tickInterval})
}

func GetWorkerMaxCount(ctx context.Context, defaultMaxWorkers int) int {
	options, ok := ctx.Value(WorkerOptionKey).(WorkerOptions)
	if ok && options.MaxCount.Value > 0 {
		return options.MaxCount.Value
	}
	return defaultMaxWorkers
}

func GetWorkerQueueSize(ctx context.Context, defaultQueueSize int) int {
	options, ok := ctx.Value(WorkerOptionKey).(WorkerOptions)
	if ok && options.QueueSize.Value > 0 {
		return options.QueueSize.Value
	}
	return defaultQueueSize
}

func GetTickInterval(ctx context.Context, defaultInterval time.Duration) time.Duration {
	options, ok := ctx.Value(SchedulerOptionKey).(SchedulerOptions)
	if ok && options.TickInterval > 0 {
		return options.TickInterval
	}
	return defaultInterval
}

// IsDiscardOnDetachEnabled tells whether results of detached blocking tasks
// are released as soon as they arrive.
func IsDiscardOnDetachEnabled(ctx context.Context, defaultDiscard bool) bool {
	options, ok := ctx.Value(DetachOptionKey).(DetachOptions)
	if ok {
		return options.DiscardOnDetach
	}
	return defaultDiscard
}
