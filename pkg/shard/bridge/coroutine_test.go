package bridge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/shardwire/pkg/shard"
)

func TestCoroutine_YieldAlternates(t *testing.T) {
	var trace []string
	co := NewCoroutine(func(co *Coroutine) error {
		for i := 0; i < 3; i++ {
			trace = append(trace, "body")
			if err := co.Yield(); err != nil {
				return err
			}
		}
		return nil
	}, nil)

	for {
		done, err := co.Resume(false)
		if done {
			require.NoError(t, err)
			break
		}
		trace = append(trace, "sched")
	}
	assert.Equal(t, []string{"body", "sched", "body", "sched", "body", "sched"}, trace)
}

func TestCoroutine_AwaitNotReadyUntilDone(t *testing.T) {
	ch := make(chan struct{})
	co := NewCoroutine(func(co *Coroutine) error {
		return co.Await(ch)
	}, nil)

	done, _ := co.Resume(false)
	require.False(t, done)
	assert.False(t, co.Ready())

	close(ch)
	assert.True(t, co.Ready())
	done, err := co.Resume(false)
	assert.True(t, done)
	assert.NoError(t, err)
}

func TestCoroutine_AbortAtSuspension(t *testing.T) {
	co := NewCoroutine(func(co *Coroutine) error {
		return co.Await(make(chan struct{}))
	}, nil)

	done, _ := co.Resume(false)
	require.False(t, done)

	done, err := co.Resume(true)
	assert.True(t, done)
	assert.ErrorIs(t, err, shard.ErrAborted)
	assert.ErrorIs(t, co.Err(), shard.ErrAborted)
}

func TestCoroutine_AbortBeforeStart(t *testing.T) {
	ran := false
	co := NewCoroutine(func(*Coroutine) error {
		ran = true
		return nil
	}, nil)

	done, err := co.Resume(true)
	assert.True(t, done)
	assert.ErrorIs(t, err, shard.ErrAborted)
	assert.False(t, ran)
}

func TestCoroutine_SleepAndWake(t *testing.T) {
	woken := make(chan struct{}, 1)
	co := NewCoroutine(func(co *Coroutine) error {
		return co.Sleep(10 * time.Millisecond)
	}, func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	})

	done, _ := co.Resume(false)
	require.False(t, done)
	assert.False(t, co.Ready())

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("wake hook not called")
	}
	assert.True(t, co.Ready())
	done, err := co.Resume(false)
	assert.True(t, done)
	assert.NoError(t, err)
}

func TestCoroutine_PanicIsFatal(t *testing.T) {
	co := NewCoroutine(func(*Coroutine) error {
		panic("bad unit")
	}, nil)

	done, err := co.Resume(false)
	assert.True(t, done)
	assert.ErrorIs(t, err, shard.ErrFatal)
}

func TestCoroutine_BodyError(t *testing.T) {
	boom := errors.New("boom")
	co := NewCoroutine(func(*Coroutine) error { return boom }, nil)

	done, err := co.Resume(false)
	assert.True(t, done)
	assert.ErrorIs(t, err, boom)
	<-co.Finished()

	done, err = co.Resume(false)
	assert.True(t, done, "resuming a finished coroutine is harmless")
	assert.ErrorIs(t, err, boom)
}
