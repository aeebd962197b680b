package wire

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

var ErrEmptyWire = errors.New("wire has no units")

// Wire is an ordered chain of unit instances sharing one scope. Within a
// tick units run strictly one after another.
type Wire struct {
	id        uuid.UUID
	name      string
	looped    bool
	pure      bool
	instances []*unit.Instance

	composed bool
	input    value.TypeInfo
	output   value.TypeInfo
	exposed  []param.Requirement

	scope *scope.Scope
	ctx   *unit.Context
	ticks atomic.Int64
}

type Option func(w *Wire)

// Looped makes the wire restart after every tick until stopped.
func Looped() Option {
	return func(w *Wire) { w.looped = true }
}

// Pure isolates the wire scope from enclosing wires and globals.
func Pure() Option {
	return func(w *Wire) { w.pure = true }
}

func New(name string, instances []*unit.Instance, opts ...Option) *Wire {
	w := &Wire{
		id:        uuid.New(),
		name:      name,
		instances: instances,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wire) ID() uuid.UUID { return w.id }

func (w *Wire) Name() string { return w.name }

func (w *Wire) Looped() bool { return w.looped }

func (w *Wire) Instances() []*unit.Instance { return w.instances }

// Ticks counts completed ticks, successful or not.
func (w *Wire) Ticks() int64 { return w.ticks.Load() }

// Scope is the wire's variable table, nil unless warm.
func (w *Wire) Scope() *scope.Scope { return w.scope }

func (w *Wire) OutputType() value.TypeInfo { return w.output }

// Exposed lists the variables published by the wire's units.
func (w *Wire) Exposed() []param.Requirement { return w.exposed }

// Compose type-checks the chain starting from input. Any failure aborts the
// whole composition and names the offending unit.
func (w *Wire) Compose(input value.TypeInfo, shared ...param.Requirement) (value.TypeInfo, error) {
	if len(w.instances) == 0 {
		return value.TypeInfo{}, fmt.Errorf("%w: %s: %w", shard.ErrBuildTimeType, w.name, ErrEmptyWire)
	}
	w.composed = false

	visible := append([]param.Requirement(nil), shared...)
	var exposed []param.Requirement
	cur := input
	for i, inst := range w.instances {
		out, err := inst.Compose(unit.ComposeData{Wire: w.name, InputType: cur, Shared: visible})
		if err != nil {
			return value.TypeInfo{}, shard.NewUnitError(inst.Name(), i, "compose", err)
		}
		exp := inst.Exposed()
		visible = append(visible, exp...)
		exposed = append(exposed, exp...)
		cur = out
	}

	w.input = input
	w.output = cur
	w.exposed = exposed
	w.composed = true
	return cur, nil
}

// RequiredVariables collects the requirements of every unit that no earlier
// unit of the wire exposes.
func (w *Wire) RequiredVariables() []param.Requirement {
	provided := map[string]struct{}{}
	var reqs []param.Requirement
	for _, inst := range w.instances {
		for _, r := range inst.RequiredVariables() {
			if _, ok := provided[r.Name]; !ok {
				reqs = append(reqs, r)
			}
		}
		for _, e := range inst.Exposed() {
			provided[e.Name] = struct{}{}
		}
	}
	return reqs
}

// Warmup creates the wire scope under c's scope and warms every unit in
// order. On failure the units already warm are cleaned up.
func (w *Wire) Warmup(c *unit.Context) error {
	if !w.composed {
		return fmt.Errorf("%w: wire %s", shard.ErrNotComposed, w.name)
	}
	if w.ctx != nil {
		return fmt.Errorf("%w: wire %s", shard.ErrAlreadyWarm, w.name)
	}

	parent := c.Scope()
	if w.pure {
		w.scope = scope.New(w.name, scope.Pure())
	} else {
		w.scope = parent.Child(w.name)
	}
	w.ctx = c.Derive(unit.WithScope(w.scope), unit.WithWire(w.name), unit.WithLogger(c.Logger().WithWire(w.name)))

	for i, inst := range w.instances {
		if err := inst.Warmup(w.ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = w.instances[j].Cleanup(w.ctx)
			}
			w.scope.Clear()
			w.ctx, w.scope = nil, nil
			return shard.NewUnitError(inst.Name(), i, "warmup", err)
		}
	}
	w.ctx.Logger().Debug("wire warm", "units", len(w.instances))
	return nil
}

// Warm reports whether the wire is between Warmup and Cleanup.
func (w *Wire) Warm() bool { return w.ctx != nil }

// Tick runs every unit once, feeding each output into the next unit. The
// first error ends the tick. The returned value is borrowed from the last
// unit.
func (w *Wire) Tick(input value.Var) shard.Result[value.Var] {
	if w.ctx == nil {
		return shard.Fail[value.Var](fmt.Errorf("%w: wire %s", shard.ErrNotWarm, w.name))
	}
	defer w.ticks.Add(1)

	cur := input
	for i, inst := range w.instances {
		if err := w.ctx.Context().Err(); err != nil {
			return shard.Cancel[value.Var](fmt.Errorf("%w: %w", shard.ErrCancelled, err))
		}
		out, err := inst.Activate(w.ctx, cur)
		if err != nil {
			err = shard.NewUnitError(inst.Name(), i, "activate", err)
			w.logFailure(inst, err)
			return shard.From(value.NoneVar(), err)
		}
		cur = out
	}
	return shard.Success(cur)
}

func (w *Wire) logFailure(inst *unit.Instance, err error) {
	l := w.ctx.Logger().WithUnit(inst.Name())
	switch {
	case errors.Is(err, shard.ErrIOFailure):
		l.Error("activation failed", "error", err, "cause", shard.Cause(err))
	case shard.IsFatal(err):
		l.Error("activation failed", "error", err)
	default:
		l.Warn("activation failed", "error", err)
	}
}

// Cleanup cleans every unit in reverse order and releases the wire scope.
// All errors are reported, joined.
func (w *Wire) Cleanup() error {
	if w.ctx == nil {
		return nil
	}
	var errs []error
	for i := len(w.instances) - 1; i >= 0; i-- {
		if err := w.instances[i].Cleanup(w.ctx); err != nil {
			errs = append(errs, err)
		}
	}
	w.scope.Clear()
	w.ctx.Logger().Debug("wire cleaned up", "ticks", w.Ticks())
	w.ctx, w.scope = nil, nil
	return errors.Join(errs...)
}

// Dispose cleans the wire up if needed and drops its instances, releasing
// the objects held by their parameters. The wire is unusable afterwards.
func (w *Wire) Dispose() error {
	errs := []error{w.Cleanup()}
	for _, inst := range w.instances {
		errs = append(errs, inst.Drop())
	}
	return errors.Join(errs...)
}
