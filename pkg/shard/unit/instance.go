package unit

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/bridge"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// Instance drives one Unit through its lifecycle:
//
//	Unregistered -> Composed -> Warm -> Cold
//
// Cold instances may be warmed again or recomposed. Calls made in the wrong
// state fail with an ErrLifecycle error instead of reaching the unit.
type Instance struct {
	id     uuid.UUID
	unit   Unit
	params *param.Set
	state  State
	input  value.TypeInfo
	output value.TypeInfo

	inflight atomic.Bool
	mu       sync.Mutex
	pending  *bridge.Future
	last     *bridge.Future
	dropped  bool
}

// NewInstance wraps u. Registered units are normally created through
// Registry.Create.
func NewInstance(u Unit) *Instance {
	return &Instance{
		id:     uuid.New(),
		unit:   u,
		params: paramsOf(u),
	}
}

func (i *Instance) ID() uuid.UUID { return i.id }

func (i *Instance) Name() string { return i.unit.Name() }

// Unit returns the wrapped unit.
func (i *Instance) Unit() Unit { return i.unit }

func (i *Instance) State() State { return i.state }

// InputType is the composed input type, zero before Compose.
func (i *Instance) InputType() value.TypeInfo { return i.input }

// OutputType is the composed output type, zero before Compose.
func (i *Instance) OutputType() value.TypeInfo { return i.output }

// Busy reports whether a blocking closure of this instance is still running,
// detached or not.
func (i *Instance) Busy() bool { return i.inflight.Load() }

func (i *Instance) setPending(f *bridge.Future) {
	i.mu.Lock()
	i.pending = f
	if f != nil {
		i.last = f
	}
	i.mu.Unlock()
}

// lastFuture is the most recently submitted closure, detached or not.
func (i *Instance) lastFuture() *bridge.Future {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last
}

// Parameters returns the descriptor table, empty for units without one.
func (i *Instance) Parameters() []param.Info {
	return i.params.Infos()
}

// SetParam assigns parameter index. Rejected while warm.
func (i *Instance) SetParam(index int, v value.Var) error {
	if i.state == Warm {
		return shard.NewUnitError(i.Name(), -1, "setParam", shard.ErrParamWhileWarm)
	}
	return shard.NewUnitError(i.Name(), -1, "setParam", i.params.SetParam(index, v))
}

// GetParam returns parameter index.
func (i *Instance) GetParam(index int) (value.Var, error) {
	v, err := i.params.Get(index)
	return v, shard.NewUnitError(i.Name(), -1, "getParam", err)
}

// RequiredVariables is recomputed on every call: parameter references first,
// then the unit's implicit requirements.
func (i *Instance) RequiredVariables() []param.Requirement {
	reqs := i.params.RequiredVariables()
	if r, ok := i.unit.(Requirer); ok {
		reqs = append(reqs, r.Requirements()...)
	}
	return reqs
}

// Exposed lists the variables the unit publishes.
func (i *Instance) Exposed() []param.Requirement {
	if e, ok := i.unit.(Exposer); ok {
		return e.Exposed()
	}
	return nil
}

// Compose checks data.InputType against the unit's accepted types and
// derives the output type. Failures are build-time errors.
func (i *Instance) Compose(data ComposeData) (value.TypeInfo, error) {
	if i.state == Warm {
		return value.TypeInfo{}, shard.NewUnitError(i.Name(), -1, "compose", shard.ErrAlreadyWarm)
	}
	if i.dropped {
		return value.TypeInfo{}, shard.NewUnitError(i.Name(), -1, "compose", shard.ErrDropped)
	}
	if !i.unit.InputTypes().Accepts(data.InputType) {
		return value.TypeInfo{}, shard.TypeError(i.Name(), "input %s not in %s", data.InputType, i.unit.InputTypes())
	}

	var out value.TypeInfo
	if c, ok := i.unit.(Composer); ok {
		var err error
		if out, err = c.Compose(data); err != nil {
			return value.TypeInfo{}, shard.NewUnitError(i.Name(), -1, "compose", err)
		}
	} else {
		out = defaultOutput(data.InputType, i.unit.OutputTypes())
	}

	if !i.unit.OutputTypes().Accepts(out) {
		return value.TypeInfo{}, shard.TypeError(i.Name(), "output %s not in %s", out, i.unit.OutputTypes())
	}

	i.input = data.InputType
	i.output = out
	i.state = Composed
	return out, nil
}

// defaultOutput passes the input through when it is a valid output, and
// otherwise uses the single declared output type.
func defaultOutput(in value.TypeInfo, outputs value.Types) value.TypeInfo {
	if outputs.Accepts(in) {
		return in
	}
	if len(outputs) == 1 {
		return outputs[0]
	}
	return in
}

// Warmup binds the parameters to c's scope and warms the unit. A failing
// unit warmup releases the parameters again.
func (i *Instance) Warmup(c *Context) error {
	switch {
	case i.dropped:
		return shard.NewUnitError(i.Name(), -1, "warmup", shard.ErrDropped)
	case i.state == Unregistered:
		return shard.NewUnitError(i.Name(), -1, "warmup", shard.ErrNotComposed)
	case i.state == Warm:
		return shard.NewUnitError(i.Name(), -1, "warmup", shard.ErrAlreadyWarm)
	}
	defer c.enter(i)()

	if err := i.params.Warmup(c.Scope()); err != nil {
		return shard.NewUnitError(i.Name(), -1, "warmup", err)
	}
	if w, ok := i.unit.(Warmer); ok {
		if err := w.Warmup(c); err != nil {
			_ = i.params.Cleanup()
			return shard.NewUnitError(i.Name(), -1, "warmup", err)
		}
	}
	i.state = Warm
	c.logger.Debug("unit warm", "unit", i.Name(), "instance", i.id.String())
	return nil
}

// Activate runs one activation. Only valid while warm.
func (i *Instance) Activate(c *Context, input value.Var) (value.Var, error) {
	if i.state != Warm {
		return value.NoneVar(), shard.NewUnitError(i.Name(), -1, "activate",
			fmt.Errorf("%w (state %s)", shard.ErrNotWarm, i.state))
	}
	defer c.enter(i)()
	return i.unit.Activate(c, input)
}

// Cleanup releases the unit's resources and its parameters, in that order.
// It is valid exactly once per Warmup. A blocking closure still in flight is
// detached, not awaited.
func (i *Instance) Cleanup(c *Context) error {
	if i.state != Warm {
		return shard.NewUnitError(i.Name(), -1, "cleanup", shard.ErrNotWarm)
	}
	defer c.enter(i)()

	i.mu.Lock()
	if i.pending != nil {
		i.pending.Detach()
		i.pending = nil
	}
	i.mu.Unlock()

	var unitErr error
	if cl, ok := i.unit.(Cleaner); ok {
		unitErr = cl.Cleanup(c)
	}
	paramErr := i.params.Cleanup()
	i.state = Cold
	c.logger.Debug("unit cold", "unit", i.Name(), "instance", i.id.String())

	if unitErr != nil || paramErr != nil {
		return shard.NewUnitError(i.Name(), -1, "cleanup", errors.Join(unitErr, paramErr))
	}
	return nil
}

// Drop discards a cold instance: parameter literals are released and the
// instance can no longer be composed or warmed. Dropping twice is a no-op.
func (i *Instance) Drop() error {
	if i.state == Warm {
		return shard.NewUnitError(i.Name(), -1, "drop", shard.ErrAlreadyWarm)
	}
	if i.dropped {
		return nil
	}
	i.dropped = true
	i.state = Unregistered
	return shard.NewUnitError(i.Name(), -1, "drop", i.params.Drop())
}
