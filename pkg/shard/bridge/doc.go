// Package bridge lets a unit perform blocking work without stalling the
// cooperative scheduler.
//
// A Bridge owns a fixed set of worker lines. Submit queues a Task and returns
// a Future; the calling pipeline, running as a Coroutine, suspends on the
// future's Done channel while the scheduler advances other pipelines. A
// future that is no longer wanted is detached: the task still runs to its
// natural end and its result is discarded.
package bridge
