package mesh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ib-77/shardwire/internal/logging"
	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/bridge"
	"github.com/ib-77/shardwire/pkg/shard/core"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
	"github.com/ib-77/shardwire/pkg/shard/wire"
)

const defaultTickInterval = time.Millisecond

var (
	ErrAlreadyScheduled = errors.New("wire already scheduled")
	ErrNotScheduled     = errors.New("wire not scheduled")
)

// Observer receives the result of every tick of a wire. The value inside is
// borrowed and only valid during the call.
type Observer func(w *wire.Wire, r shard.Result[value.Var])

// Mesh schedules wires cooperatively. Each scheduled wire runs as a
// coroutine and every pass resumes each ready wire once, in scheduling
// order; a wire suspended on blocking work is skipped until its result
// arrives.
type Mesh struct {
	id       uuid.UUID
	name     string
	ctx      context.Context
	bridge   *bridge.Bridge
	logger   *logging.Logger
	globals  *scope.Scope
	interval time.Duration

	mu    sync.Mutex
	flows []*flow
	ended map[*wire.Wire]*flow
	wake  chan struct{}
}

type flow struct {
	wire     *wire.Wire
	input    value.Var
	co       *bridge.Coroutine
	observer Observer
	stop     atomic.Bool
	finished chan struct{}
	err      error
}

// New creates a mesh. The tick interval is read from ctx (see core
// options). b may be shared between meshes.
func New(ctx context.Context, name string, b *bridge.Bridge, logger *logging.Logger) *Mesh {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Mesh{
		id:       uuid.New(),
		name:     name,
		ctx:      ctx,
		bridge:   b,
		logger:   logger.WithMesh(name),
		globals:  scope.New(name + "/globals"),
		interval: core.GetTickInterval(ctx, defaultTickInterval),
		ended:    make(map[*wire.Wire]*flow),
		wake:     make(chan struct{}, 1),
	}
}

func (m *Mesh) ID() uuid.UUID { return m.id }

func (m *Mesh) Name() string { return m.name }

// Globals is the mesh-wide variable table consulted after the wire chain.
func (m *Mesh) Globals() *scope.Scope { return m.globals }

type ScheduleOption func(f *flow)

// WithObserver registers fn for every tick result of the wire.
func WithObserver(fn Observer) ScheduleOption {
	return func(f *flow) { f.observer = fn }
}

// Schedule composes w against the type of input, warms it and queues it
// for execution. Composition and warmup errors are returned directly and
// the wire is not scheduled.
func (m *Mesh) Schedule(w *wire.Wire, input value.Var, opts ...ScheduleOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flows {
		if f.wire == w {
			return fmt.Errorf("%w: %s", ErrAlreadyScheduled, w.Name())
		}
	}

	if _, err := w.Compose(input.Info()); err != nil {
		return err
	}

	f := &flow{wire: w, input: input.Clone(), finished: make(chan struct{})}
	for _, opt := range opts {
		opt(f)
	}
	f.co = bridge.NewCoroutine(f.body, m.signal)

	c := unit.NewContext(m.ctx,
		unit.WithScope(m.globals),
		unit.WithBridge(m.bridge),
		unit.WithYielder(f.co),
		unit.WithLogger(m.logger))
	if err := w.Warmup(c); err != nil {
		_ = f.input.Release()
		return err
	}

	delete(m.ended, w)
	m.flows = append(m.flows, f)
	m.logger.Info("wire scheduled", "wire", w.Name(), "looped", w.Looped())
	m.signal()
	return nil
}

func (f *flow) body(co *bridge.Coroutine) error {
	for {
		res := f.wire.Tick(f.input)
		if f.observer != nil {
			f.observer(f.wire, res)
		}
		if err := res.Err(); err != nil && (shard.IsFatal(err) || res.IsCancel()) {
			return err
		}
		if !f.wire.Looped() {
			return res.Err()
		}
		if err := co.Yield(); err != nil {
			return err
		}
	}
}

func (m *Mesh) signal() {
	core.Signal(m.wake)
}

// Tick runs one scheduling pass and returns the number of wires still
// scheduled. It must not be called concurrently with itself or Run.
func (m *Mesh) Tick() int {
	m.mu.Lock()
	flows := append([]*flow(nil), m.flows...)
	m.mu.Unlock()

	for _, f := range flows {
		abort := f.stop.Load()
		if !abort && !f.co.Ready() {
			continue
		}
		if done, err := f.co.Resume(abort); done {
			m.finish(f, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

func (m *Mesh) finish(f *flow, err error) {
	m.mu.Lock()
	for i, other := range m.flows {
		if other == f {
			m.flows = append(m.flows[:i], m.flows[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	f.err = err
	if cerr := f.wire.Cleanup(); cerr != nil {
		m.logger.Error("wire cleanup failed", "wire", f.wire.Name(), "error", cerr)
		f.err = errors.Join(err, cerr)
	}
	_ = f.input.Release()

	m.mu.Lock()
	m.ended[f.wire] = f
	m.mu.Unlock()
	close(f.finished)

	if err != nil && !errors.Is(err, shard.ErrAborted) {
		m.logger.Warn("wire ended", "wire", f.wire.Name(), "ticks", f.wire.Ticks(), "error", err)
	} else {
		m.logger.Info("wire ended", "wire", f.wire.Name(), "ticks", f.wire.Ticks())
	}
}

// Stop aborts w at its next suspension point. Blocking work in flight is
// detached. The wire is cleaned up by the pass that observes the abort.
func (m *Mesh) Stop(w *wire.Wire) error {
	f := m.lookup(w)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrNotScheduled, w.Name())
	}
	f.stop.Store(true)
	m.signal()
	return nil
}

// Done returns a channel closed when w has ended, nil when w was never
// scheduled.
func (m *Mesh) Done(w *wire.Wire) <-chan struct{} {
	if f := m.lookup(w); f != nil {
		return f.finished
	}
	return nil
}

// Wait blocks until w ends and returns its final error. It must not be
// called from the scheduling goroutine.
func (m *Mesh) Wait(ctx context.Context, w *wire.Wire) error {
	f := m.lookup(w)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrNotScheduled, w.Name())
	}
	select {
	case <-f.finished:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mesh) lookup(w *wire.Wire) *flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flows {
		if f.wire == w {
			return f
		}
	}
	return m.ended[w]
}

// Len returns the number of scheduled wires.
func (m *Mesh) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

// Run drives passes until every wire has ended or ctx is done. Between
// passes it waits for the tick interval or an earlier wake-up from a
// completed blocking task.
func (m *Mesh) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if m.Tick() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.wake:
		case <-ticker.C:
		}
	}
}

// Terminate aborts every wire and clears the globals.
func (m *Mesh) Terminate() {
	m.mu.Lock()
	flows := append([]*flow(nil), m.flows...)
	m.mu.Unlock()

	for _, f := range flows {
		done, err := f.co.Resume(true)
		for !done {
			done, err = f.co.Resume(true)
		}
		m.finish(f, err)
	}
	m.globals.Clear()
	m.logger.Info("mesh terminated", "wires", len(flows))
}
