package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/core"
)

// Coroutine runs a pipeline body on its own goroutine while keeping the
// scheduler semantics of a single thread: control is handed back and forth
// over channels, so exactly one of the scheduler and the body runs at a time.
//
// The body calls Await, Sleep or Yield to suspend. The scheduler calls
// Resume; resuming with abort makes the pending suspension return
// ErrAborted.
type Coroutine struct {
	body func(co *Coroutine) error
	wake func()

	resume   chan bool
	yield    chan struct{}
	finished chan struct{}
	started  bool
	err      error

	mu     sync.Mutex
	waitOn <-chan struct{}
	until  time.Time
}

// NewCoroutine prepares body. wake, if set, is called from another goroutine
// when a suspension becomes ready to resume.
func NewCoroutine(body func(co *Coroutine) error, wake func()) *Coroutine {
	return &Coroutine{
		body:     body,
		wake:     wake,
		resume:   make(chan bool),
		yield:    make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Resume runs the body until its next suspension or its end. It reports
// whether the body has finished and, if so, its error. Scheduler side only.
func (co *Coroutine) Resume(abort bool) (bool, error) {
	select {
	case <-co.finished:
		return true, co.err
	default:
	}

	if !co.started {
		if abort {
			co.err = shard.ErrAborted
			close(co.finished)
			return true, co.err
		}
		co.started = true
		go co.run()
	} else {
		co.resume <- abort
	}

	select {
	case <-co.yield:
		return false, nil
	case <-co.finished:
		return true, co.err
	}
}

func (co *Coroutine) run() {
	defer close(co.finished)

	var pc panics.Catcher
	pc.Try(func() { co.err = co.body(co) })
	if r := pc.Recovered(); r != nil {
		co.err = fmt.Errorf("%w: %w", shard.ErrFatal, r.AsError())
	}
}

// Ready reports whether resuming would make progress: the awaited channel is
// closed or the sleep deadline has passed. Scheduler side only.
func (co *Coroutine) Ready() bool {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.waitOn != nil {
		return core.Closed(co.waitOn)
	}
	if !co.until.IsZero() {
		return !time.Now().Before(co.until)
	}
	return true
}

// Finished is closed when the body has returned.
func (co *Coroutine) Finished() <-chan struct{} {
	return co.finished
}

// Err is the body's error, valid once Finished is closed.
func (co *Coroutine) Err() error {
	if core.Closed(co.finished) {
		return co.err
	}
	return nil
}

func (co *Coroutine) suspend() error {
	co.yield <- struct{}{}
	if abort := <-co.resume; abort {
		return shard.ErrAborted
	}
	return nil
}

func (co *Coroutine) setWait(ch <-chan struct{}, until time.Time) {
	co.mu.Lock()
	co.waitOn = ch
	co.until = until
	co.mu.Unlock()
}

// Yield hands control back to the scheduler once.
func (co *Coroutine) Yield() error {
	return co.suspend()
}

// Await suspends until done is closed. Body side only.
func (co *Coroutine) Await(done <-chan struct{}) error {
	if core.Closed(done) {
		return nil
	}

	co.setWait(done, time.Time{})
	defer co.setWait(nil, time.Time{})

	if co.wake != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				co.wake()
			case <-stop:
			}
		}()
	}

	for {
		if err := co.suspend(); err != nil {
			return err
		}
		if core.Closed(done) {
			return nil
		}
	}
}

// Sleep suspends for at least d. Body side only.
func (co *Coroutine) Sleep(d time.Duration) error {
	if d <= 0 {
		return co.suspend()
	}
	deadline := time.Now().Add(d)
	co.setWait(nil, deadline)
	defer co.setWait(nil, time.Time{})

	if co.wake != nil {
		timer := time.AfterFunc(d, co.wake)
		defer timer.Stop()
	}

	for time.Now().Before(deadline) {
		if err := co.suspend(); err != nil {
			return err
		}
	}
	return nil
}
